package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// predictRequest 推理服务请求体
type predictRequest struct {
	Temperature float64 `json:"temperature"`
	HeartRate   int     `json:"heart_rate"`
	Oxygen      float64 `json:"oxygen"`
}

// predictResponse 推理服务响应体
type predictResponse struct {
	State      string             `json:"state"`
	Confidence map[string]float64 `json:"confidence"`
}

// ModelClassifier 模型分类器（调用训练好的健康状态推理服务）
type ModelClassifier struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewModelClassifier 创建模型分类器
func NewModelClassifier(baseURL string, timeout time.Duration, logger *zap.Logger) *ModelClassifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &ModelClassifier{
		httpClient: client,
		logger:     logger,
	}
}

// Name 实现 Classifier 接口
func (c *ModelClassifier) Name() string {
	return "model"
}

// HealthCheck 启动时探测推理服务可用性
func (c *ModelClassifier) HealthCheck(ctx context.Context) error {
	resp, err := c.httpClient.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("model health check failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("model health check returned status %d", resp.StatusCode())
	}
	return nil
}

// Classify 调用推理服务分类
// 出错返回给调用方，由管道决定是否用规则分类兜底
func (c *ModelClassifier) Classify(ctx context.Context, sample models.VitalSample) (models.ClassificationResult, error) {
	request := predictRequest{
		Temperature: sample.Temperature,
		HeartRate:   sample.HeartRate,
		Oxygen:      sample.Oxygen,
	}

	var response predictResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/predict")

	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("failed to call model service: %w", err)
	}
	if resp.IsError() {
		return models.ClassificationResult{}, fmt.Errorf("model service returned status %d", resp.StatusCode())
	}

	state := models.HealthState(response.State)
	if !state.Valid() {
		return models.ClassificationResult{}, fmt.Errorf("model returned unknown state: %q", response.State)
	}

	return models.ClassificationResult{
		State:      state,
		Confidence: response.Confidence,
	}, nil
}
