package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"vitalwatch/internal/alert"
	"vitalwatch/internal/classifier"
	"vitalwatch/internal/common/database"
	mqttcommon "vitalwatch/internal/common/mqtt"
	rediscommon "vitalwatch/internal/common/redis"
	"vitalwatch/internal/config"
	"vitalwatch/internal/httpapi"
	"vitalwatch/internal/pipeline"
	"vitalwatch/internal/repository"
)

// ingestConsumer 摄取消费者的最小接口，便于对监督逻辑单独测试
type ingestConsumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// httpServer HTTP服务器的最小接口
type httpServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// VitalWatchService 生命体征监测服务
// 同一进程内运行摄取管道（MQTT消费者）与看板读取 API（HTTP服务器）
type VitalWatchService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client
	consumer   ingestConsumer
	server     httpServer
}

// NewVitalWatchService 创建服务并装配所有组件
func NewVitalWatchService(cfg *config.Config, logger *zap.Logger) (*VitalWatchService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT（重试用尽视为致命错误，服务无法在没有broker的情况下工作）
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// 分类器实现在启动时选定一次，管道只看到接口
	cls := classifier.Select(cfg, logger)

	vitalsRepo := repository.NewVitalsRepository(db, logger)

	directory := alert.NewDirectoryClient(
		cfg.Alert.DirectoryBaseURL,
		cfg.Alert.Timeout,
		cfg.Alert.CaregiverCacheTTL,
		redisClient,
		logger,
	)
	notifier := alert.NewNotificationClient(cfg.Alert.NotificationBaseURL, cfg.Alert.Timeout)
	dispatcher := alert.NewDispatcher(cfg, directory, notifier, redisClient, mqttClient, logger)

	consumer := pipeline.NewConsumer(cfg, mqttClient, cls, dispatcher, vitalsRepo, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterVitalRoutes(httpapi.NewVitalsHandler(vitalsRepo, cfg, logger))
	server := NewServer(cfg.HTTP.Addr, router, logger)

	return &VitalWatchService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		consumer:   consumer,
		server:     server,
	}, nil
}

// Start 启动服务：HTTP服务器在独立goroutine运行，消费者阻塞至上下文取消
func (s *VitalWatchService) Start(ctx context.Context) error {
	s.logger.Info("Starting vitalwatch service components")

	errCh := make(chan error, 2)
	go func() {
		if err := s.server.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server exited: %w", err)
		}
	}()

	// 订阅失败的进程只剩只读API，没有摄取能力，必须作为服务错误退出
	go func() {
		if err := s.consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("consumer exited: %w", err)
		}
	}()

	s.logger.Info("vitalwatch service started successfully")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop 停止服务
func (s *VitalWatchService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping vitalwatch service")

	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}

	if s.server != nil {
		if err := s.server.Stop(ctx); err != nil {
			s.logger.Error("Error stopping HTTP server", zap.Error(err))
		}
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if s.redis != nil {
		_ = rediscommon.Close(s.redis)
	}

	if s.db != nil {
		_ = database.Close(s.db)
	}

	s.logger.Info("vitalwatch service stopped")
	return nil
}
