// Package manifest keeps a SQLite record of the days whose grid file was
// written successfully.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rtm0/solargrid/internal/pipeline"
)

// CompletedDay is one written daily file.
type CompletedDay struct {
	Day              time.Time `gorm:"primaryKey" json:"day"`
	Path             string    `json:"path"`
	GeneratedAt      time.Time `json:"generated_at"`
	Samples          int       `json:"samples"`
	MaxIrradiance    float64   `json:"max_irradiance_w_m2"`
	MeanIrradiance   float64   `json:"mean_irradiance_w_m2"`
	DaylightFraction float64   `json:"daylight_fraction"`
}

// Store is the manifest database.
type Store struct {
	db *gorm.DB
}

var _ pipeline.Observer = (*Store)(nil)
var _ pipeline.Resumer = (*Store)(nil)

// Open opens (or creates) the manifest at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	if err := db.AutoMigrate(&CompletedDay{}); err != nil {
		return nil, fmt.Errorf("failed to migrate manifest: %w", err)
	}
	return &Store{db: db}, nil
}

// Observe records a written day, replacing an earlier entry for the same day.
func (s *Store) Observe(ctx context.Context, res pipeline.DayResult) error {
	return s.Mark(ctx, CompletedDay{
		Day:              res.Day.UTC(),
		Path:             res.Path,
		GeneratedAt:      res.Finished.UTC(),
		Samples:          res.Stats.Samples,
		MaxIrradiance:    res.Stats.MaxIrradiance,
		MeanIrradiance:   res.Stats.MeanIrradiance,
		DaylightFraction: res.Stats.DaylightFraction,
	})
}

// Mark upserts a completed day.
func (s *Store) Mark(ctx context.Context, d CompletedDay) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&d).Error
}

// LatestCompleted returns the latest recorded day.
func (s *Store) LatestCompleted(ctx context.Context) (time.Time, bool, error) {
	var d CompletedDay
	err := s.db.WithContext(ctx).Order("day desc").First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return d.Day.UTC(), true, nil
}

// List returns the completed days in [from, to) in ascending order.
func (s *Store) List(ctx context.Context, from, to time.Time) ([]CompletedDay, error) {
	var days []CompletedDay
	err := s.db.WithContext(ctx).
		Where("day >= ? AND day < ?", from.UTC(), to.UTC()).
		Order("day asc").
		Find(&days).Error
	if err != nil {
		return nil, err
	}
	return days, nil
}

// Count returns the number of completed days.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&CompletedDay{}).Count(&n).Error
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
