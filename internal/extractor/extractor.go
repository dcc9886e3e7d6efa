package extractor

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// 生理默认值：通道缺失时补齐（缺失是信息性事件，不是错误）
const (
	DefaultTemperature = 36.5
	DefaultHeartRate   = 75
	DefaultOxygen      = 98.0
)

// 通道标识
const (
	ChannelTemperature = "temperature"
	ChannelHeartRate   = "heart_rate"
	ChannelOxygen      = "oxygen"
)

// channelMatcher 通道匹配规则：传感器名包含任一子串即命中（不区分大小写）
type channelMatcher struct {
	channel    string
	substrings []string
}

// matchTable 有序匹配表，按表顺序逐通道扫描传感器列表，首个命中生效
var matchTable = []channelMatcher{
	{channel: ChannelTemperature, substrings: []string{"temp"}},
	{channel: ChannelOxygen, substrings: []string{"oxygen", "spo2"}},
	{channel: ChannelHeartRate, substrings: []string{"heart", "pulse"}},
}

// Extractor 生命体征提取器
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor 创建提取器
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract 从原始传感器列表提取三通道生命体征
// 输入顺序保持原样（首个命中生效），缺失通道用默认值补齐，本阶段永不失败
func (e *Extractor) Extract(reading *models.SensorReading) models.VitalSample {
	sample := models.VitalSample{
		Temperature: DefaultTemperature,
		HeartRate:   DefaultHeartRate,
		Oxygen:      DefaultOxygen,
	}

	for _, matcher := range matchTable {
		value, found := firstMatch(reading.Sensors, matcher.substrings)
		if !found {
			e.logger.Info("Vital channel missing, using default",
				zap.String("user_id", reading.UserID),
				zap.String("channel", matcher.channel),
			)
			continue
		}

		switch matcher.channel {
		case ChannelTemperature:
			sample.Temperature = value
		case ChannelOxygen:
			sample.Oxygen = value
		case ChannelHeartRate:
			sample.HeartRate = int(value)
		}
	}

	return sample
}

// firstMatch 返回首个名称命中且数值可转换的传感器值
func firstMatch(sensors []models.SensorValue, substrings []string) (float64, bool) {
	for _, sensor := range sensors {
		name := strings.ToLower(sensor.Name)
		for _, sub := range substrings {
			if strings.Contains(name, sub) {
				if value, ok := toFloat(sensor.Value); ok {
					return value, true
				}
			}
		}
	}
	return 0, false
}

// toFloat 传感器值数值转换（兼容数字与数字字符串两种固件格式）
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
