// Package journal records which requests were signed or sent. Only metadata
// is stored: bodies and responses are never written.
package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/RowanDark/ncmsign/internal/redact"
)

// Entry is one journal row.
type Entry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RequestID string    `gorm:"index" json:"request_id"`
	Route     string    `gorm:"index" json:"route"`
	Scheme    string    `json:"scheme"`
	URL       string    `json:"url"`
	Cookie    string    `json:"cookie,omitempty"`
	Status    int       `json:"status"`
	Error     string    `json:"error,omitempty"`
	Duration  int64     `json:"duration_ms"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Route string
	Since time.Time
	Limit int
}

const defaultLimit = 50

// Store persists entries in a SQLite database.
type Store struct {
	db *gorm.DB
}

// Open creates the database file and its parent directory when missing and
// migrates the schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts e. Cookie values are masked before they reach disk.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e == nil {
		return errors.New("nil journal entry")
	}
	e.Cookie = redact.Cookie(e.Cookie)
	e.Error = redact.String(e.Error)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(e).Error
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	q := s.db.WithContext(ctx).Model(&Entry{})
	if route := strings.TrimSpace(f.Route); route != "" {
		q = q.Where("route = ?", route)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	var out []Entry
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return out, nil
}

// Prune deletes entries older than cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&Entry{})
	return res.RowsAffected, res.Error
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
