package models

import "time"

// HealthState 健康状态分类结果
type HealthState string

const (
	StateNormal    HealthState = "normal"
	StateRisky     HealthState = "risky"
	StateDangerous HealthState = "dangerous"
)

// Valid 检查是否为合法的健康状态
func (s HealthState) Valid() bool {
	switch s {
	case StateNormal, StateRisky, StateDangerous:
		return true
	}
	return false
}

// SensorValue 单个传感器原始读数
// Value 可能是数字或数字字符串（取决于固件版本），解析时做数值转换
type SensorValue struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// SensorReading 入站传感器读数消息（来自MQTT，消费一次即丢弃）
type SensorReading struct {
	UserID     string        `json:"user_id"`
	UserName   string        `json:"user_name"`
	Sensors    []SensorValue `json:"sensors"`
	ReceivedAt time.Time     `json:"-"`
}

// VitalSample 规范化后的三通道生命体征
// 提取阶段保证三个通道全部填充（缺失通道用生理默认值补齐）
type VitalSample struct {
	Temperature float64 `json:"temperature"`
	HeartRate   int     `json:"heart_rate"`
	Oxygen      float64 `json:"oxygen"`
}

// ClassificationResult 分类结果
type ClassificationResult struct {
	State      HealthState        `json:"state"`
	Confidence map[string]float64 `json:"confidence,omitempty"`
}

// RecipientType 通知接收方类型
type RecipientType string

const (
	RecipientPatient   RecipientType = "patient"
	RecipientCaregiver RecipientType = "caregiver"
)

// AlertEvent 报警事件（出站通知负载，核心不持久化）
type AlertEvent struct {
	EventID       string        `json:"event_id"`
	UserID        string        `json:"user_id"`
	UserName      string        `json:"user_name"`
	State         HealthState   `json:"state"`
	Temp          float64       `json:"temp"`
	HeartRate     int           `json:"heartRate"`
	Oxygen        float64       `json:"oxygen"`
	RecipientType RecipientType `json:"recipient_type"`
	DoctorID      *string       `json:"doctor_id,omitempty"`
	TriggeredAt   int64         `json:"triggered_at"`
}

// VitalRecord 时序存储记录：标签 {user_id, user_name} + 四个字段一次性写入
type VitalRecord struct {
	UserID      string      `json:"user_id"`
	UserName    string      `json:"user_name"`
	Temp        float64     `json:"temp"`
	HeartRate   int         `json:"heart_rate"`
	Oxygen      float64     `json:"oxygen"`
	State       HealthState `json:"state"`
	Measurement string      `json:"measurement"`
	RecordedAt  time.Time   `json:"recorded_at"`
}

// RawSample 原始查询结果行：每个时间点每个字段一行
type RawSample struct {
	Time  time.Time `json:"time"`
	Field string    `json:"field"`
	Value string    `json:"value"`
}

// AggregatedPoint 窗口聚合点
// 数值字段：Value=均值，Min/Max/SampleCount 取窗口内有效样本
// 状态字段：Value=Min=Max=加权多数状态，SampleCount 固定为 1
type AggregatedPoint struct {
	WindowStart time.Time   `json:"windowStart"`
	Field       string      `json:"field"`
	Value       interface{} `json:"value"`
	MinValue    interface{} `json:"minValue"`
	MaxValue    interface{} `json:"maxValue"`
	SampleCount int         `json:"sampleCount"`
}
