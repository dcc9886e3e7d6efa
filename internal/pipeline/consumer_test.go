package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitalwatch/internal/config"
	"vitalwatch/internal/models"
)

// fakeClassifier 返回固定结果或固定错误
type fakeClassifier struct {
	state models.HealthState
	err   error
}

func (f *fakeClassifier) Classify(_ context.Context, _ models.VitalSample) (models.ClassificationResult, error) {
	if f.err != nil {
		return models.ClassificationResult{}, f.err
	}
	return models.ClassificationResult{State: f.state}, nil
}

func (f *fakeClassifier) Name() string { return "fake" }

// fakeStore 记录写入，或模拟写入失败
type fakeStore struct {
	mu      sync.Mutex
	records []*models.VitalRecord
	err     error
}

func (f *fakeStore) Insert(record *models.VitalRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.records = append(f.records, record)
	return int64(len(f.records)), nil
}

func (f *fakeStore) all() []*models.VitalRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.VitalRecord(nil), f.records...)
}

// fakeDispatcher 记录报警分发
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []models.HealthState
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ *models.SensorReading, _ models.VitalSample, state models.HealthState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, state)
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestConsumer(cls *fakeClassifier, store *fakeStore, dispatcher *fakeDispatcher) *Consumer {
	cfg := &config.Config{}
	cfg.Pipeline.Topic = "vitals/+/data"
	cfg.Pipeline.MaxInFlight = 4
	cfg.MQTT.QoS = 1

	return NewConsumer(cfg, nil, cls, dispatcher, store, zap.NewNop())
}

// drain 等待所有在途消息处理完成
func drain(c *Consumer) {
	c.wg.Wait()
}

func TestProcess_DangerousReadingEndToEnd(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	c := newTestConsumer(&fakeClassifier{state: models.StateDangerous}, store, dispatcher)

	payload := []byte(`{
		"user_id": "user-1",
		"user_name": "Alice",
		"sensors": [
			{"id": "s1", "name": "temperature", "value": 39.8},
			{"id": "s2", "name": "heart_rate", "value": 110},
			{"id": "s3", "name": "oxygen", "value": 89}
		]
	}`)

	require.NoError(t, c.handleMessage("vitals/user-1/data", payload))
	drain(c)

	// 报警已触发
	assert.Equal(t, 1, dispatcher.count())

	// 记录完整持久化（四个字段 + 标签），与报警结果无关
	records := store.all()
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "Alice", record.UserName)
	assert.Equal(t, 39.8, record.Temp)
	assert.Equal(t, 110, record.HeartRate)
	assert.Equal(t, 89.0, record.Oxygen)
	assert.Equal(t, models.StateDangerous, record.State)
	assert.Equal(t, "data", record.Measurement)
	assert.False(t, record.RecordedAt.IsZero())
}

func TestProcess_NormalStateSkipsAlert(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	c := newTestConsumer(&fakeClassifier{state: models.StateNormal}, store, dispatcher)

	payload := []byte(`{"user_id": "user-2", "user_name": "Bob", "sensors": []}`)

	require.NoError(t, c.handleMessage("vitals/user-2/data", payload))
	drain(c)

	assert.Equal(t, 0, dispatcher.count())
	require.Len(t, store.all(), 1)
}

func TestProcess_MissingChannelsPersistedWithDefaults(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	c := newTestConsumer(&fakeClassifier{state: models.StateNormal}, store, dispatcher)

	payload := []byte(`{"user_id": "user-3", "user_name": "Carol", "sensors": []}`)

	require.NoError(t, c.handleMessage("vitals/user-3/data", payload))
	drain(c)

	records := store.all()
	require.Len(t, records, 1)
	assert.Equal(t, 36.5, records[0].Temp)
	assert.Equal(t, 75, records[0].HeartRate)
	assert.Equal(t, 98.0, records[0].Oxygen)
}

func TestProcess_MalformedMessageDropped(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	c := newTestConsumer(&fakeClassifier{state: models.StateDangerous}, store, dispatcher)

	require.NoError(t, c.handleMessage("vitals/x/data", []byte(`{not json`)))
	drain(c)

	assert.Equal(t, 0, dispatcher.count())
	assert.Empty(t, store.all())
}

func TestProcess_MissingUserIDDropped(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	c := newTestConsumer(&fakeClassifier{state: models.StateDangerous}, store, dispatcher)

	require.NoError(t, c.handleMessage("vitals/x/data", []byte(`{"user_name": "Nobody", "sensors": []}`)))
	drain(c)

	assert.Equal(t, 0, dispatcher.count())
	assert.Empty(t, store.all())
}

func TestProcess_StoreFailureDoesNotBlockAlert(t *testing.T) {
	store := &fakeStore{err: errors.New("write timeout")}
	dispatcher := &fakeDispatcher{}
	c := newTestConsumer(&fakeClassifier{state: models.StateRisky}, store, dispatcher)

	payload := []byte(`{"user_id": "user-4", "user_name": "Dave", "sensors": [{"name": "temp", "value": 38.0}]}`)

	require.NoError(t, c.handleMessage("vitals/user-4/data", payload))
	drain(c)

	// 写入失败，但报警照常分发，消息处理不中断
	assert.Equal(t, 1, dispatcher.count())
	assert.Empty(t, store.all())
}

func TestProcess_ClassifierErrorFallsBackToRules(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	c := newTestConsumer(&fakeClassifier{err: errors.New("model unavailable")}, store, dispatcher)

	// 规则判定：temp>39 → dangerous
	payload := []byte(`{"user_id": "user-5", "user_name": "Eve", "sensors": [{"name": "temperature", "value": 39.5}]}`)

	require.NoError(t, c.handleMessage("vitals/user-5/data", payload))
	drain(c)

	records := store.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.StateDangerous, records[0].State)
	assert.Equal(t, 1, dispatcher.count())
}

func TestHandleMessage_ConcurrentBurst(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	c := newTestConsumer(&fakeClassifier{state: models.StateNormal}, store, dispatcher)

	for i := 0; i < 100; i++ {
		payload := []byte(fmt.Sprintf(`{"user_id": "user-%d", "sensors": []}`, i))
		require.NoError(t, c.handleMessage("vitals/burst/data", payload))
	}
	drain(c)

	assert.Len(t, store.all(), 100)
}
