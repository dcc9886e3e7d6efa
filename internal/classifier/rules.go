package classifier

import (
	"context"

	"vitalwatch/internal/models"
)

// 规则分类阈值
const (
	dangerousTemp   = 39.0
	dangerousHR     = 100
	dangerousOxygen = 90.0

	riskyTemp   = 37.5
	riskyHR     = 90
	riskyOxygen = 95.0
)

// RuleClassifier 规则分类器
// 模型不可用时的后备实现，也用于运行期单条消息的分类兜底
type RuleClassifier struct{}

// NewRuleClassifier 创建规则分类器
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Name 实现 Classifier 接口
func (c *RuleClassifier) Name() string {
	return "rule-based"
}

// Classify 按固定阈值分类，永不出错
func (c *RuleClassifier) Classify(_ context.Context, sample models.VitalSample) (models.ClassificationResult, error) {
	return models.ClassificationResult{State: c.Evaluate(sample)}, nil
}

// Evaluate 阈值判定（供管道在模型出错时直接兜底调用）
func (c *RuleClassifier) Evaluate(sample models.VitalSample) models.HealthState {
	if sample.Temperature > dangerousTemp || sample.HeartRate > dangerousHR || sample.Oxygen < dangerousOxygen {
		return models.StateDangerous
	}
	if sample.Temperature > riskyTemp || sample.HeartRate > riskyHR || sample.Oxygen < riskyOxygen {
		return models.StateRisky
	}
	return models.StateNormal
}
