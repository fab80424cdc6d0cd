// Package gorm provides the read-only admin paths over gorm.io/gorm +
// gorm.io/driver/postgres named in SPEC_FULL.md's domain-stack commitment:
// ApiConfig listing for the admin UI and TestReport history browsing. The
// write/execution path stays on repo/pg's hand-rolled pgx queries; this
// package never competes with it for the same rows.
package gorm

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/apitest-engine/apitestd/entity"
)

// apiConfigRow and testReportRow are gorm's table mappings; they mirror
// repo/pg's schema exactly but stay local to this package so a gorm
// migration never fights tern's.
type apiConfigRow struct {
	ID        int64 `gorm:"primaryKey"`
	Name      string
	SortOrder int
	Method    string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (apiConfigRow) TableName() string { return "api_configs" }

type testReportRow struct {
	ID              int64 `gorm:"primaryKey"`
	Name            string
	Status          string
	Total           int
	Passed          int
	Failed          int
	Error           int
	DurationSeconds float64
	CreatedAt       time.Time
}

func (testReportRow) TableName() string { return "test_reports" }

// Reader is the admin-facing read path.
type Reader struct {
	DB *gorm.DB
}

// Open dials dsn with the postgres driver, matching gorm's standard
// connection-open pattern.
func Open(dsn string) (*Reader, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return &Reader{DB: db}, nil
}

// ListAPISummaries returns every ApiConfig's admin-list projection, ordered
// by (sort_order, id) like the batch runner's own ordering.
func (r *Reader) ListAPISummaries(ctx context.Context) ([]entity.ApiConfig, error) {
	var rows []apiConfigRow
	if err := r.DB.WithContext(ctx).Order("sort_order, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.ApiConfig, len(rows))
	for i, row := range rows {
		out[i] = entity.ApiConfig{
			ID: row.ID, Name: row.Name, SortOrder: row.SortOrder,
			Method: entity.HTTPMethod(row.Method), URL: row.URL,
			CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
		}
	}
	return out, nil
}

// ReportHistory returns the most recent limit TestReports, newest first.
func (r *Reader) ReportHistory(ctx context.Context, limit int) ([]entity.TestReport, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []testReportRow
	if err := r.DB.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.TestReport, len(rows))
	for i, row := range rows {
		out[i] = entity.TestReport{
			ID: row.ID, Name: row.Name, Status: entity.ReportStatus(row.Status),
			Total: row.Total, Passed: row.Passed, Failed: row.Failed, Error: row.Error,
			DurationSeconds: row.DurationSeconds, CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}

// ReportByID loads one TestReport by id, for the report-detail admin view.
func (r *Reader) ReportByID(ctx context.Context, id int64) (entity.TestReport, error) {
	var row testReportRow
	if err := r.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		return entity.TestReport{}, err
	}
	return entity.TestReport{
		ID: row.ID, Name: row.Name, Status: entity.ReportStatus(row.Status),
		Total: row.Total, Passed: row.Passed, Failed: row.Failed, Error: row.Error,
		DurationSeconds: row.DurationSeconds, CreatedAt: row.CreatedAt,
	}, nil
}
