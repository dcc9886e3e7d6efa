package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vitalwatch/internal/config"
	rediscommon "vitalwatch/internal/common/redis"
	"vitalwatch/internal/models"
)

// MQTTPublisher MQTT发布接口（由 common/mqtt.Client 实现）
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// NotificationClient 通知服务客户端
type NotificationClient struct {
	httpClient *resty.Client
}

// NewNotificationClient 创建通知服务客户端
func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &NotificationClient{httpClient: client}
}

// Send 投递单条通知（尽力而为：调用方只记录失败，不重试）
func (c *NotificationClient) Send(ctx context.Context, event *models.AlertEvent) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(event).
		Post("/notify")

	if err != nil {
		return fmt.Errorf("failed to call notification service: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode())
	}
	return nil
}

// Dispatcher 报警分发器
// 仅在 risky/dangerous 分类时触发：解析医护分配后发出患者通知与（可选的）医护通知
// 两次发送相互独立，任一失败只记录日志，不阻塞另一次发送，也不影响持久化
type Dispatcher struct {
	config      *config.Config
	directory   *DirectoryClient
	notifier    *NotificationClient
	redisClient *redis.Client
	mqttClient  MQTTPublisher
	logger      *zap.Logger
}

// NewDispatcher 创建报警分发器
func NewDispatcher(
	cfg *config.Config,
	directory *DirectoryClient,
	notifier *NotificationClient,
	redisClient *redis.Client,
	mqttClient MQTTPublisher,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:      cfg,
		directory:   directory,
		notifier:    notifier,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		logger:      logger,
	}
}

// Dispatch 分发一次报警
// 1. 查询医护分配（失败降级为未分配，患者通知照常发出）
// 2. 无条件发送患者通知
// 3. 已分配医护时追加发送医护通知（携带患者身份）
func (d *Dispatcher) Dispatch(ctx context.Context, reading *models.SensorReading, sample models.VitalSample, state models.HealthState) {
	caregiverID, err := d.directory.GetCaregiverID(ctx, reading.UserID)
	if err != nil {
		d.logger.Warn("Caregiver lookup failed, sending patient notification only",
			zap.String("user_id", reading.UserID),
			zap.Error(err),
		)
		caregiverID = nil
	}

	patientEvent := d.buildEvent(reading, sample, state, models.RecipientPatient, nil)
	d.send(ctx, patientEvent)

	if caregiverID != nil {
		caregiverEvent := d.buildEvent(reading, sample, state, models.RecipientCaregiver, caregiverID)
		d.send(ctx, caregiverEvent)
	}
}

// send 投递单条通知并广播事件（两者都是尽力而为）
func (d *Dispatcher) send(ctx context.Context, event *models.AlertEvent) {
	if err := d.notifier.Send(ctx, event); err != nil {
		d.logger.Error("Failed to send notification",
			zap.String("event_id", event.EventID),
			zap.String("user_id", event.UserID),
			zap.String("recipient_type", string(event.RecipientType)),
			zap.Error(err),
		)
	} else {
		d.logger.Info("Notification sent",
			zap.String("event_id", event.EventID),
			zap.String("user_id", event.UserID),
			zap.String("state", string(event.State)),
			zap.String("recipient_type", string(event.RecipientType)),
		)
	}

	d.broadcast(ctx, event)
}

// broadcast 将报警事件广播给下游消费者（看板 Redis Stream + MQTT 报警主题）
func (d *Dispatcher) broadcast(ctx context.Context, event *models.AlertEvent) {
	if d.redisClient != nil {
		if _, err := rediscommon.PublishJSONToStream(ctx, d.redisClient, d.config.Alert.Stream, event); err != nil {
			d.logger.Warn("Failed to publish alert to Redis Streams",
				zap.String("stream", d.config.Alert.Stream),
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		}
	}

	if d.mqttClient != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			return
		}
		if err := d.mqttClient.Publish(d.config.Pipeline.AlertTopic, d.config.MQTT.QoS, false, payload); err != nil {
			d.logger.Warn("Failed to publish alert to MQTT",
				zap.String("topic", d.config.Pipeline.AlertTopic),
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) buildEvent(
	reading *models.SensorReading,
	sample models.VitalSample,
	state models.HealthState,
	recipient models.RecipientType,
	doctorID *string,
) *models.AlertEvent {
	return &models.AlertEvent{
		EventID:       uuid.New().String(),
		UserID:        reading.UserID,
		UserName:      reading.UserName,
		State:         state,
		Temp:          sample.Temperature,
		HeartRate:     sample.HeartRate,
		Oxygen:        sample.Oxygen,
		RecipientType: recipient,
		DoctorID:      doctorID,
		TriggeredAt:   time.Now().Unix(),
	}
}
