// Package feedback persists answer ratings and learns per-complexity
// verification thresholds from them.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Vijayvaraprasad/rag-qa-system/rag"
)

// Record is one user rating of a delivered answer.
type Record struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Question   string    `gorm:"size:2048" json:"question"`
	Complexity string    `gorm:"size:16;index" json:"complexity"`
	Threshold  float64   `json:"threshold"`
	Confidence float64   `json:"confidence"`
	Helpful    bool      `json:"helpful"`
	CreatedAt  time.Time `json:"created_at"`
}

// StoreConfig locates the database and tunes learning.
type StoreConfig struct {
	Path string `json:"path"`
	// MinSamples is how many ratings a complexity tier needs before its
	// learned threshold overrides the static profile.
	MinSamples int `json:"min_samples"`
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Path:       "feedback.db",
		MinSamples: 10,
	}
}

// Store keeps feedback in SQLite. The learned threshold for a tier is its
// static base nudged by the observed helpfulness rate: many unhelpful
// grounded answers raise the bar, consistently helpful ones relax it.
type Store struct {
	cfg    StoreConfig
	db     *gorm.DB
	logger *zap.Logger
}

func NewStore(cfg StoreConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultStoreConfig().Path
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultStoreConfig().MinSamples
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate feedback db: %w", err)
	}

	return &Store{
		cfg:    cfg,
		db:     db,
		logger: logger.With(zap.String("component", "feedback_store")),
	}, nil
}

// Save persists one rating.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// Count returns the total number of ratings stored.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}

// LearnedThreshold reports the feedback-adjusted threshold for a tier.
// Below MinSamples ratings it reports no override.
func (s *Store) LearnedThreshold(ctx context.Context, complexity rag.Complexity) (float64, bool, error) {
	var total, helpful int64
	err := s.db.WithContext(ctx).Model(&Record{}).
		Where("complexity = ?", string(complexity)).
		Count(&total).Error
	if err != nil {
		return 0, false, fmt.Errorf("count feedback: %w", err)
	}
	if total < int64(s.cfg.MinSamples) {
		return 0, false, nil
	}
	err = s.db.WithContext(ctx).Model(&Record{}).
		Where("complexity = ? AND helpful = ?", string(complexity), true).
		Count(&helpful).Error
	if err != nil {
		return 0, false, fmt.Errorf("count helpful feedback: %w", err)
	}

	base := rag.ThresholdProfileFor(complexity).Threshold
	rate := float64(helpful) / float64(total)
	// Shift the base by up to +/-0.10 around a 50% helpfulness pivot.
	learned := base + (0.5-rate)*0.2
	if learned < 0.5 {
		learned = 0.5
	}
	if learned > 0.95 {
		learned = 0.95
	}

	s.logger.Debug("learned threshold",
		zap.String("complexity", string(complexity)),
		zap.Int64("samples", total),
		zap.Float64("helpful_rate", rate),
		zap.Float64("threshold", learned))
	return learned, true, nil
}
