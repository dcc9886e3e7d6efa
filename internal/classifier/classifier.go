package classifier

import (
	"context"

	"go.uber.org/zap"

	"vitalwatch/internal/config"
	"vitalwatch/internal/models"
)

// Classifier 健康状态分类器端口
// 管道只依赖该接口，具体实现（模型/规则）在进程启动时选定一次
type Classifier interface {
	Classify(ctx context.Context, sample models.VitalSample) (models.ClassificationResult, error)
	Name() string
}

// Select 启动时选择分类器实现
// 配置了推理服务地址且健康检查通过时使用模型分类器，否则回退到规则分类器
func Select(cfg *config.Config, logger *zap.Logger) Classifier {
	if cfg.Classifier.ModelBaseURL == "" {
		logger.Info("Model classifier not configured, using rule-based classifier")
		return NewRuleClassifier()
	}

	model := NewModelClassifier(cfg.Classifier.ModelBaseURL, cfg.Classifier.Timeout, logger)
	if err := model.HealthCheck(context.Background()); err != nil {
		logger.Warn("Model classifier unavailable, falling back to rule-based classifier",
			zap.String("model_url", cfg.Classifier.ModelBaseURL),
			zap.Error(err),
		)
		return NewRuleClassifier()
	}

	logger.Info("Using model-backed classifier",
		zap.String("model_url", cfg.Classifier.ModelBaseURL),
	)
	return model
}
