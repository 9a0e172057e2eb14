package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultCapacity is the number of completed swaps retained per wallet.
const DefaultCapacity = 50

// Status of a completed swap.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

var (
	// ErrUnsupportedDriver is returned by Open for unknown database drivers.
	ErrUnsupportedDriver = errors.New("history: unsupported driver")
	// ErrInvalidRecord is returned when a record lacks a wallet or signature.
	ErrInvalidRecord = errors.New("history: invalid record")
)

// SwapRecord is one completed swap as shown in the user's history.
type SwapRecord struct {
	Seq          uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ID           string    `gorm:"uniqueIndex;size:64" json:"id"`
	Wallet       string    `gorm:"index;size:64;not null" json:"wallet"`
	Timestamp    int64     `gorm:"index" json:"timestamp"`
	InputMint    string    `gorm:"size:64" json:"inputMint"`
	OutputMint   string    `gorm:"size:64" json:"outputMint"`
	InputAmount  string    `gorm:"size:32" json:"inputAmount"`
	OutputAmount string    `gorm:"size:32" json:"outputAmount"`
	Signature    string    `gorm:"size:128" json:"signature"`
	Status       Status    `gorm:"size:16" json:"status"`
	FeeBps       int       `json:"feeBps"`
	CampaignID   string    `gorm:"size:64" json:"campaignId,omitempty"`
	CreatedAt    time.Time `json:"-"`
}

// Store persists swap history through gorm.
type Store struct {
	db       *gorm.DB
	capacity int
	now      func() time.Time
}

// Open connects to sqlite or postgres and migrates the schema.
func Open(driver, dsn string, capacity int) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", driver, err)
	}
	return New(db, capacity)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, capacity int) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("history: database required")
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if err := db.AutoMigrate(&SwapRecord{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db, capacity: capacity, now: time.Now}, nil
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

// Add records a swap and evicts the wallet's oldest records beyond capacity.
func (s *Store) Add(ctx context.Context, rec SwapRecord) (SwapRecord, error) {
	if strings.TrimSpace(rec.Wallet) == "" {
		return SwapRecord{}, fmt.Errorf("%w: wallet required", ErrInvalidRecord)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = s.now().UnixMilli()
	}
	if rec.Status == "" {
		rec.Status = StatusSuccess
	}
	rec.Seq = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		var keep []uint
		if err := tx.Model(&SwapRecord{}).
			Where("wallet = ?", rec.Wallet).
			Order("seq DESC").
			Limit(s.capacity).
			Pluck("seq", &keep).Error; err != nil {
			return fmt.Errorf("select retained: %w", err)
		}
		if err := tx.Where("wallet = ? AND seq NOT IN ?", rec.Wallet, keep).Delete(&SwapRecord{}).Error; err != nil {
			return fmt.Errorf("evict: %w", err)
		}
		return nil
	})
	if err != nil {
		return SwapRecord{}, fmt.Errorf("history: add: %w", err)
	}
	return rec, nil
}

// List returns a wallet's history newest-first.
func (s *Store) List(ctx context.Context, wallet string) ([]SwapRecord, error) {
	records := make([]SwapRecord, 0)
	err := s.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("seq DESC").
		Limit(s.capacity).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return records, nil
}

// Clear removes a wallet's history.
func (s *Store) Clear(ctx context.Context, wallet string) error {
	if err := s.db.WithContext(ctx).Where("wallet = ?", wallet).Delete(&SwapRecord{}).Error; err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}
