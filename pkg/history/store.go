package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

// RunRecord is one attempt as kept in the local history database. Reports on
// disk come and go with log rotation; the history is the compact long-term
// record the `history` command reads.
type RunRecord struct {
	ID uint `gorm:"primarykey"`

	StartedAt  time.Time `gorm:"index"`
	DurationMs int64
	Status     string
	Success    bool

	SessionID string
	Endpoint  string

	// Download/Upload in bits per second, latency figures in ms
	Download float64
	Upload   float64
	Latency  float64
	Jitter   float64
}

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open history db %q: %w", path, err)
	}

	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Name() string {
	return "history"
}

func (s *Store) Submit(ctx context.Context, report speedtest.RunReport) error {
	record := RunRecord{
		StartedAt:  report.Started,
		DurationMs: report.Duration.Milliseconds(),
		Status:     string(report.Status),
		Success:    report.Report.Success,
		SessionID:  report.Report.SessionID,
		Endpoint:   report.Report.Endpoint,
	}

	if result := report.Report.Result; result != nil {
		record.Download = result.Download
		record.Upload = result.Upload
		record.Latency = result.Latency
		record.Jitter = result.Jitter
	}

	return s.db.WithContext(ctx).Create(&record).Error
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	var records []RunRecord
	err := s.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&records).Error

	return records, err
}
