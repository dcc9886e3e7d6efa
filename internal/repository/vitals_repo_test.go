package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *VitalsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewVitalsRepository(db, logger)

	return db, mock, repo
}

func TestInsert_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	recordedAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	record := &models.VitalRecord{
		UserID:      "user-123",
		UserName:    "Alice",
		Temp:        39.8,
		HeartRate:   110,
		Oxygen:      89,
		State:       models.StateDangerous,
		Measurement: "vitals",
		RecordedAt:  recordedAt,
	}

	mock.ExpectQuery(`INSERT INTO vital_signs`).
		WithArgs("user-123", "Alice", 39.8, 110, 89.0, "dangerous", "vitals", recordedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.Insert(record)

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Failure(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO vital_signs`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Insert(&models.VitalRecord{UserID: "user-123", RecordedAt: time.Now()})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert vital_signs")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRange_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	from := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	t0 := from.Add(time.Hour)
	rows := sqlmock.NewRows([]string{"recorded_at", "field", "value"}).
		AddRow(t0, "heart_rate", "82").
		AddRow(t0, "oxygen", "96.5").
		AddRow(t0, "state", "normal").
		AddRow(t0, "temp", "37.2")

	mock.ExpectQuery(`SELECT recorded_at, field, value`).
		WithArgs("user-123", from, to).
		WillReturnRows(rows)

	samples, err := repo.QueryRange("user-123", from, to)

	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.Equal(t, "heart_rate", samples[0].Field)
	assert.Equal(t, "82", samples[0].Value)
	assert.Equal(t, "state", samples[2].Field)
	assert.Equal(t, "normal", samples[2].Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRange_Empty(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	from := time.Now().Add(-time.Hour)
	to := time.Now()

	mock.ExpectQuery(`SELECT recorded_at, field, value`).
		WithArgs("user-404", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"recorded_at", "field", "value"}))

	samples, err := repo.QueryRange("user-404", from, to)

	require.NoError(t, err)
	assert.Empty(t, samples)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRange_QueryError(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT recorded_at, field, value`).
		WillReturnError(errors.New("timeout"))

	_, err := repo.QueryRange("user-123", time.Now().Add(-time.Hour), time.Now())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query vital_signs")
}
