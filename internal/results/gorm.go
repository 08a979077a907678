package results

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type trialOutcome struct {
	ID         uint   `gorm:"primaryKey"`
	PairID     string `gorm:"index;not null"`
	TrialN     int    `gorm:"not null"`
	Block      int    `gorm:"not null"`
	DirectorID string
	MatcherID  string
	Target     string `gorm:"not null"`
	Label      string
	Guess      string
	Score      int
	RecordedAt time.Time `gorm:"not null"`
}

func (trialOutcome) TableName() string { return "trial_outcomes" }

func newRow(o Outcome) trialOutcome {
	return trialOutcome{
		PairID:     o.PairID,
		TrialN:     o.TrialN,
		Block:      o.Block,
		DirectorID: o.DirectorID,
		MatcherID:  o.MatcherID,
		Target:     o.Target,
		Label:      o.Label,
		Guess:      o.Guess,
		Score:      o.Score,
		RecordedAt: o.RecordedAt.UTC(),
	}
}

// GormStore writes outcomes to Postgres.
type GormStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&trialOutcome{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, o Outcome) error {
	row := newRow(o)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
