package querylogctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"ragbot/src/core/querylog"
)

type QueryLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Question  string    `gorm:"not null" json:"question"`
	Status    string    `gorm:"not null;size:16" json:"status"`
	AskedAt   time.Time `gorm:"not null;index" json:"asked_at"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryLogService persists query log entries in postgres
type QueryLogService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
	limit     int
}

func NewQueryLogService(db *gorm.DB, limit int) (*QueryLogService, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	if limit <= 0 {
		limit = 100
	}

	return &QueryLogService{
		db:        db,
		snowflake: node,
		limit:     limit,
	}, nil
}

// Migrate creates or updates the query_logs table
func (s *QueryLogService) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&QueryLog{}); err != nil {
		return fmt.Errorf("failed to migrate query logs: %w", err)
	}
	return nil
}

func (s *QueryLogService) Record(ctx context.Context, entry querylog.Entry) error {
	row := &QueryLog{
		ID:       s.snowflake.Generate().Int64(),
		Question: entry.Question,
		Status:   entry.Status,
		AskedAt:  entry.Timestamp,
	}
	if row.AskedAt.IsZero() {
		row.AskedAt = time.Now()
	}

	if result := s.db.WithContext(ctx).Create(row); result.Error != nil {
		return fmt.Errorf("failed to create query log: %w", result.Error)
	}
	return nil
}

// List returns the most recent entries, newest first
func (s *QueryLogService) List(ctx context.Context) ([]querylog.Entry, error) {
	var rows []QueryLog
	result := s.db.WithContext(ctx).Order("asked_at desc").Limit(s.limit).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list query logs: %w", result.Error)
	}

	entries := make([]querylog.Entry, len(rows))
	for i, r := range rows {
		entries[i] = querylog.Entry{
			ID:        r.ID,
			Timestamp: r.AskedAt,
			Question:  r.Question,
			Status:    r.Status,
		}
	}
	return entries, nil
}
