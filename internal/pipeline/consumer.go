package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vitalwatch/internal/classifier"
	mqttcommon "vitalwatch/internal/common/mqtt"
	"vitalwatch/internal/config"
	"vitalwatch/internal/extractor"
	"vitalwatch/internal/models"
)

// Store 时序存储写入接口（由 repository.VitalsRepository 实现）
type Store interface {
	Insert(record *models.VitalRecord) (int64, error)
}

// Dispatcher 报警分发接口（由 alert.Dispatcher 实现）
type Dispatcher interface {
	Dispatch(ctx context.Context, reading *models.SensorReading, sample models.VitalSample, state models.HealthState)
}

// Consumer 摄取管道：MQTT 消息 → 提取 → 分类 → 报警 → 持久化
// 每条消息一个独立的处理单元，消息之间不共享可变状态
// slots 信号量限制在途消息数，防止消息突发导致资源无界增长
type Consumer struct {
	config     *config.Config
	mqttClient *mqttcommon.Client
	extractor  *extractor.Extractor
	classifier classifier.Classifier
	fallback   *classifier.RuleClassifier
	dispatcher Dispatcher
	store      Store
	logger     *zap.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewConsumer 创建摄取管道消费者
func NewConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	cls classifier.Classifier,
	dispatcher Dispatcher,
	store Store,
	logger *zap.Logger,
) *Consumer {
	maxInFlight := cfg.Pipeline.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 1
	}

	return &Consumer{
		config:     cfg,
		mqttClient: mqttClient,
		extractor:  extractor.NewExtractor(logger),
		classifier: cls,
		fallback:   classifier.NewRuleClassifier(),
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
		slots:      make(chan struct{}, maxInFlight),
	}
}

// Start 启动消费者
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.Pipeline.Topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	c.logger.Info("Ingestion consumer started",
		zap.String("topic", c.config.Pipeline.Topic),
		zap.Int("max_in_flight", cap(c.slots)),
		zap.String("classifier", c.classifier.Name()),
	)

	<-ctx.Done()
	return nil
}

// Stop 停止消费者：取消订阅并等待在途消息处理完成
func (c *Consumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.config.Pipeline.Topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("Shutdown timeout while draining in-flight messages")
	}

	c.logger.Info("Ingestion consumer stopped")
	return nil
}

// handleMessage MQTT 消息回调：占用一个并发槽位后交给独立 goroutine 处理
func (c *Consumer) handleMessage(topic string, payload []byte) error {
	c.slots <- struct{}{}
	c.wg.Add(1)

	go func() {
		defer func() {
			<-c.slots
			c.wg.Done()
		}()
		c.process(topic, payload)
	}()

	return nil
}

// process 单条消息的状态机：解析 → 提取 → 分类 → 报警 → 持久化
// 任何单条消息的失败只影响该消息自身，不中断其它在途消息
func (c *Consumer) process(topic string, payload []byte) {
	ctx := context.Background()

	// 解析：畸形消息直接丢弃（不重试，无死信队列）
	var reading models.SensorReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		c.logger.Error("Dropping malformed message",
			zap.String("topic", topic),
			zap.Int("payload_size", len(payload)),
			zap.Error(err),
		)
		return
	}
	if reading.UserID == "" {
		c.logger.Error("Dropping message without user_id",
			zap.String("topic", topic),
		)
		return
	}
	reading.ReceivedAt = time.Now()

	// 提取：永不失败，缺失通道已用默认值补齐
	sample := c.extractor.Extract(&reading)

	// 分类：模型出错时用规则分类兜底，消息不失败
	state := c.classify(ctx, reading.UserID, sample)

	// 报警：仅 risky/dangerous 触发；报警结果不影响持久化
	if state != models.StateNormal {
		c.dispatcher.Dispatch(ctx, &reading, sample, state)
	} else {
		c.logger.Debug("Alert skipped for normal state",
			zap.String("user_id", reading.UserID),
		)
	}

	// 持久化：每条消息恰好尝试一次，失败记录后继续
	record := &models.VitalRecord{
		UserID:      reading.UserID,
		UserName:    reading.UserName,
		Temp:        sample.Temperature,
		HeartRate:   sample.HeartRate,
		Oxygen:      sample.Oxygen,
		State:       state,
		Measurement: measurementFromTopic(topic),
		RecordedAt:  reading.ReceivedAt,
	}

	if _, err := c.store.Insert(record); err != nil {
		c.logger.Error("Message processed but not persisted",
			zap.String("user_id", reading.UserID),
			zap.String("state", string(state)),
			zap.Error(err),
		)
		return
	}

	c.logger.Debug("Reading persisted",
		zap.String("user_id", reading.UserID),
		zap.String("state", string(state)),
	)
}

// classify 调用分类器，出错时退回规则判定
func (c *Consumer) classify(ctx context.Context, userID string, sample models.VitalSample) models.HealthState {
	result, err := c.classifier.Classify(ctx, sample)
	if err != nil {
		state := c.fallback.Evaluate(sample)
		c.logger.Warn("Classifier failed, using rule-based fallback",
			zap.String("user_id", userID),
			zap.String("fallback_state", string(state)),
			zap.Error(err),
		)
		return state
	}
	return result.State
}

// measurementFromTopic 主题最后一段即 measurement 名称
func measurementFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}
