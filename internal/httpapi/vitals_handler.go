package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"vitalwatch/internal/aggregator"
	"vitalwatch/internal/config"
	"vitalwatch/internal/models"
)

// VitalsStore 原始样本查询接口（由 repository.VitalsRepository 实现）
type VitalsStore interface {
	QueryRange(userID string, from, to time.Time) ([]models.RawSample, error)
}

// AggregatedResult 窗口聚合响应（含元数据）
type AggregatedResult struct {
	Points     []models.AggregatedPoint `json:"points"`
	Resolution string                   `json:"resolution"`
	SampleInfo string                   `json:"sampleInfo"`
}

// VitalsHandler 生命体征读取 Handler
type VitalsHandler struct {
	store  VitalsStore
	config *config.Config
	logger *zap.Logger
}

// NewVitalsHandler 创建生命体征读取 Handler
func NewVitalsHandler(store VitalsStore, cfg *config.Config, logger *zap.Logger) *VitalsHandler {
	return &VitalsHandler{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// GetRaw GET /data/api/v1/vitals/raw/{userId}?hours=N
// 返回时间范围内的全部原始样本（每个时间点每个字段一行）
func (h *VitalsHandler) GetRaw(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromPath(r.URL.Path, "/data/api/v1/vitals/raw/")
	if userID == "" {
		writeJSON(w, http.StatusNotFound, Fail("user id required"))
		return
	}

	span := h.querySpan(r)
	to := time.Now()
	from := to.Add(-span)

	samples, err := h.store.QueryRange(userID, from, to)
	if err != nil {
		// 查询失败作为显式失败结果返回，前端渲染空态而不是报错页
		h.logger.Error("Raw query failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail("query failed"))
		return
	}
	if samples == nil {
		samples = []models.RawSample{}
	}

	writeJSON(w, http.StatusOK, Ok(samples))
}

// GetAggregated GET /data/api/v1/vitals/aggregated/{userId}?hours=N
// 返回按跨度选定分辨率的窗口汇总，附带 {resolution, sampleInfo} 元数据
func (h *VitalsHandler) GetAggregated(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromPath(r.URL.Path, "/data/api/v1/vitals/aggregated/")
	if userID == "" {
		writeJSON(w, http.StatusNotFound, Fail("user id required"))
		return
	}

	span := h.querySpan(r)
	resolution := aggregator.Resolution(span)
	to := time.Now()
	from := to.Add(-span)

	samples, err := h.store.QueryRange(userID, from, to)
	if err != nil {
		h.logger.Error("Aggregation query failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail("query failed"))
		return
	}

	if len(samples) == 0 {
		// 无数据不是错误：返回显式空态
		writeJSON(w, http.StatusOK, Ok(AggregatedResult{
			Points:     []models.AggregatedPoint{},
			Resolution: resolution.String(),
			SampleInfo: "no data",
		}))
		return
	}

	points := aggregator.Aggregate(samples, resolution)

	writeJSON(w, http.StatusOK, Ok(AggregatedResult{
		Points:     points,
		Resolution: resolution.String(),
		SampleInfo: strconv.Itoa(len(samples)) + " raw samples",
	}))
}

// querySpan 解析 hours 参数（默认 24，上限 MaxQueryHours）
func (h *VitalsHandler) querySpan(r *http.Request) time.Duration {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			hours = n
		}
	}
	if max := h.config.HTTP.MaxQueryHours; max > 0 && hours > max {
		hours = max
	}
	return time.Duration(hours) * time.Hour
}

func userIDFromPath(path, prefix string) string {
	userID := strings.TrimPrefix(path, prefix)
	if userID == "" || strings.Contains(userID, "/") {
		return ""
	}
	return userID
}
