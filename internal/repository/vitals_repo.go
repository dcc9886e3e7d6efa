package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// VitalsRepository 生命体征时序数据仓库
type VitalsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVitalsRepository 创建生命体征时序数据仓库
func NewVitalsRepository(db *sql.DB, logger *zap.Logger) *VitalsRepository {
	return &VitalsRepository{
		db:     db,
		logger: logger,
	}
}

// Insert 插入一条生命体征记录到 vital_signs 表
// 标签与四个字段在单行内一次性写入（单行 INSERT 保证记录原子性）
// 写入失败通过 error 上报，调用方记录日志后继续处理后续消息
func (r *VitalsRepository) Insert(record *models.VitalRecord) (int64, error) {
	query := `
		INSERT INTO vital_signs (
			user_id,
			user_name,
			temp,
			heart_rate,
			oxygen,
			state,
			measurement,
			recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(
		query,
		record.UserID,
		record.UserName,
		record.Temp,
		record.HeartRate,
		record.Oxygen,
		string(record.State),
		record.Measurement,
		record.RecordedAt,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to insert vital_signs: %w", err)
	}

	return id, nil
}

// QueryRange 查询用户在时间范围内的原始样本
// 返回 influx 风格的行：每个时间点每个字段一行 {time, field, value}，时间升序
func (r *VitalsRepository) QueryRange(userID string, from, to time.Time) ([]models.RawSample, error) {
	query := `
		SELECT recorded_at, field, value FROM (
			SELECT recorded_at, 'temp' AS field, temp::text AS value
			FROM vital_signs WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
			UNION ALL
			SELECT recorded_at, 'heart_rate' AS field, heart_rate::text AS value
			FROM vital_signs WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
			UNION ALL
			SELECT recorded_at, 'oxygen' AS field, oxygen::text AS value
			FROM vital_signs WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
			UNION ALL
			SELECT recorded_at, 'state' AS field, state AS value
			FROM vital_signs WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		) samples
		ORDER BY recorded_at ASC, field ASC
	`

	rows, err := r.db.Query(query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query vital_signs: %w", err)
	}
	defer rows.Close()

	var results []models.RawSample
	for rows.Next() {
		var sample models.RawSample
		if err := rows.Scan(&sample.Time, &sample.Field, &sample.Value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return results, nil
}
