// Package history keeps a SQLite ledger of finished downloads so repeated
// runs can skip files that already arrived intact.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"season-archiver/downloader"
	"season-archiver/logging"
)

// Status is the terminal state of a recorded download
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Record is one finished download
type Record struct {
	ID              uint   `gorm:"primaryKey"`
	RunID           string `gorm:"size:36;index"`
	Season          int    `gorm:"index"`
	SourceURL       string `gorm:"index:idx_source_destination"`
	DestinationPath string `gorm:"index:idx_source_destination"`
	BytesWritten    int64
	Status          Status `gorm:"size:16;index"`
	Error           string
	FinishedAt      time.Time `gorm:"index"`
}

// TableName sets the table name for gorm
func (Record) TableName() string {
	return "download_records"
}

// RunSummary aggregates the records of one run
type RunSummary struct {
	RunID        string
	Season       int
	Succeeded    int
	Failed       int
	BytesWritten int64
	FinishedAt   time.Time
}

// Store is the download ledger
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the ledger at path and migrates its schema
func Open(path string, logger *zap.Logger) (*Store, error) {
	logger = logging.OrNop(logger)
	if path == "" {
		return nil, errors.New("history database path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	logger.Debug("History database ready", zap.String("path", path))
	return &Store{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordBatch stores one record per outcome of result under runID
func (s *Store) RecordBatch(runID string, season int, result *downloader.BatchResult) error {
	if result.Len() == 0 {
		return nil
	}

	finished := s.now()
	records := make([]Record, 0, result.Len())
	for _, o := range result.Outcomes {
		rec := Record{
			RunID:           runID,
			Season:          season,
			SourceURL:       o.Task.SourceURL,
			DestinationPath: o.Task.DestinationPath,
			BytesWritten:    o.Progress.BytesWritten,
			Status:          StatusSuccess,
			FinishedAt:      finished,
		}
		if o.Status == downloader.OutcomeFailure {
			rec.Status = StatusFailure
			if o.Err != nil {
				rec.Error = o.Err.Error()
			}
		}
		records = append(records, rec)
	}

	if err := s.db.CreateInBatches(records, 100).Error; err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}

	s.logger.Debug("Recorded batch",
		zap.String("run_id", runID),
		zap.Int("records", len(records)))
	return nil
}

// Completed returns the latest successful record for a source and destination
func (s *Store) Completed(sourceURL, destinationPath string) (*Record, bool, error) {
	var rec Record
	err := s.db.
		Where("source_url = ? AND destination_path = ? AND status = ?", sourceURL, destinationPath, StatusSuccess).
		Order("finished_at DESC, id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query history: %w", err)
	}
	return &rec, true, nil
}

// Runs returns up to limit most recent runs, newest first
func (s *Store) Runs(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	var latest []struct {
		RunID  string
		LastID uint
	}
	err := s.db.Model(&Record{}).
		Select("run_id, MAX(id) AS last_id").
		Group("run_id").
		Order("last_id DESC").
		Limit(limit).
		Scan(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(latest) == 0 {
		return nil, nil
	}

	ids := make([]string, len(latest))
	for i, l := range latest {
		ids[i] = l.RunID
	}

	var records []Record
	if err := s.db.Where("run_id IN ?", ids).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}

	byRun := make(map[string]*RunSummary, len(ids))
	for _, id := range ids {
		byRun[id] = &RunSummary{RunID: id}
	}
	for _, rec := range records {
		run := byRun[rec.RunID]
		run.Season = rec.Season
		run.BytesWritten += rec.BytesWritten
		if rec.Status == StatusSuccess {
			run.Succeeded++
		} else {
			run.Failed++
		}
		if rec.FinishedAt.After(run.FinishedAt) {
			run.FinishedAt = rec.FinishedAt
		}
	}

	runs := make([]RunSummary, 0, len(ids))
	for _, id := range ids {
		runs = append(runs, *byRun[id])
	}
	return runs, nil
}
