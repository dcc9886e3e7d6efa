package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// caregiverKeyPrefix 医护分配缓存键前缀
const caregiverKeyPrefix = "vitalwatch:caregiver:"

// directoryUser 用户目录服务响应（只消费 doctor_id，不拥有该数据）
type directoryUser struct {
	DoctorID string `json:"doctor_id"`
}

// DirectoryClient 用户目录查询客户端
// 负责解析患者的医护分配（doctor_id），结果在 Redis 中缓存 TTL 时长
type DirectoryClient struct {
	httpClient  *resty.Client
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDirectoryClient 创建用户目录客户端
func NewDirectoryClient(baseURL string, timeout, cacheTTL time.Duration, redisClient *redis.Client, logger *zap.Logger) *DirectoryClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &DirectoryClient{
		httpClient:  client,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// GetCaregiverID 查询患者的医护分配
// 返回 nil 表示未分配医护；查询失败返回错误，由调用方决定降级行为
func (c *DirectoryClient) GetCaregiverID(ctx context.Context, userID string) (*string, error) {
	key := caregiverKeyPrefix + userID

	// 先查缓存（空串表示已确认未分配）
	if cached, err := c.redisClient.Get(ctx, key).Result(); err == nil {
		if cached == "" {
			return nil, nil
		}
		return &cached, nil
	} else if err != redis.Nil {
		c.logger.Debug("Caregiver cache read failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	var user directoryUser
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&user).
		Get(fmt.Sprintf("/user/%s", userID))

	if err != nil {
		return nil, fmt.Errorf("failed to call directory service: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("directory service returned status %d for user %s", resp.StatusCode(), userID)
	}

	// 写缓存（失败不影响本次结果）
	if err := c.redisClient.Set(ctx, key, user.DoctorID, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("Caregiver cache write failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	if user.DoctorID == "" {
		return nil, nil
	}
	return &user.DoctorID, nil
}
