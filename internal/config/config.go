package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectRetries int           // 连接重试次数（用尽后视为致命错误）
	RetryInterval  time.Duration // 重试间隔（固定间隔）
}

// Config vitalwatch 服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 摄取管道配置
	Pipeline struct {
		Topic       string // 订阅主题，如 "vitals/+/data"（最后一段为 measurement 名称）
		AlertTopic  string // 报警事件发布主题
		MaxInFlight int    // 并发处理消息数上限
	}

	// 分类器配置
	Classifier struct {
		ModelBaseURL string        // 推理服务地址，为空时直接使用规则分类器
		Timeout      time.Duration // 单次推理超时
	}

	// 报警配置
	Alert struct {
		DirectoryBaseURL    string        // 用户目录服务地址（查询负责医护）
		NotificationBaseURL string        // 通知服务地址
		Timeout             time.Duration // 单次通知/查询超时
		CaregiverCacheTTL   time.Duration // 医护分配缓存 TTL
		Stream              string        // 报警事件 Redis Stream 名称
	}

	HTTP struct {
		Addr          string
		MaxQueryHours int // raw/aggregated 查询最大时间跨度（小时）
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量覆盖默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitalwatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "vitalwatch")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.ConnectRetries = getEnvInt("MQTT_CONNECT_RETRIES", 5)
	cfg.MQTT.RetryInterval = time.Duration(getEnvInt("MQTT_RETRY_INTERVAL_SEC", 5)) * time.Second

	cfg.Pipeline.Topic = getEnv("PIPELINE_TOPIC", "vitals/+/data")
	cfg.Pipeline.AlertTopic = getEnv("PIPELINE_ALERT_TOPIC", "vitals/alerts")
	cfg.Pipeline.MaxInFlight = getEnvInt("PIPELINE_MAX_IN_FLIGHT", 32)

	cfg.Classifier.ModelBaseURL = getEnv("CLASSIFIER_MODEL_URL", "")
	cfg.Classifier.Timeout = time.Duration(getEnvInt("CLASSIFIER_TIMEOUT_SEC", 5)) * time.Second

	cfg.Alert.DirectoryBaseURL = getEnv("ALERT_DIRECTORY_URL", "http://localhost:8180")
	cfg.Alert.NotificationBaseURL = getEnv("ALERT_NOTIFICATION_URL", "http://localhost:8181")
	cfg.Alert.Timeout = time.Duration(getEnvInt("ALERT_TIMEOUT_SEC", 10)) * time.Second
	cfg.Alert.CaregiverCacheTTL = time.Duration(getEnvInt("ALERT_CAREGIVER_CACHE_TTL_SEC", 300)) * time.Second
	cfg.Alert.Stream = getEnv("ALERT_STREAM", "vitalwatch:alerts:stream")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.MaxQueryHours = getEnvInt("HTTP_MAX_QUERY_HOURS", 2160)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
