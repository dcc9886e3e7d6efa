package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "vitalwatch", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, 5, cfg.MQTT.ConnectRetries)
	assert.Equal(t, 5*time.Second, cfg.MQTT.RetryInterval)

	assert.Equal(t, "vitals/+/data", cfg.Pipeline.Topic)
	assert.Equal(t, 32, cfg.Pipeline.MaxInFlight)

	assert.Equal(t, "", cfg.Classifier.ModelBaseURL)
	assert.Equal(t, "vitalwatch:alerts:stream", cfg.Alert.Stream)
	assert.Equal(t, 300*time.Second, cfg.Alert.CaregiverCacheTTL)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 2160, cfg.HTTP.MaxQueryHours)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "db.internal")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("MQTT_BROKER", "tcp://broker.internal:1883")
	os.Setenv("MQTT_CONNECT_RETRIES", "3")
	os.Setenv("PIPELINE_MAX_IN_FLIGHT", "8")
	os.Setenv("CLASSIFIER_MODEL_URL", "http://model:9000")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "tcp://broker.internal:1883", cfg.MQTT.Broker)
	assert.Equal(t, 3, cfg.MQTT.ConnectRetries)
	assert.Equal(t, 8, cfg.Pipeline.MaxInFlight)
	assert.Equal(t, "http://model:9000", cfg.Classifier.ModelBaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "vitalwatch",
		SSLMode:  "disable",
	}

	dsn := cfg.GetDSN()
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=vitalwatch sslmode=disable", dsn)
}
