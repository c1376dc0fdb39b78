// Package sweep erases user profiles whose erasure request has outlived the
// grace period.
package sweep

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rental-portal/internal/apperr"
	"rental-portal/internal/cascade"
	"rental-portal/internal/logger"
	"rental-portal/internal/metrics"
	"rental-portal/internal/models"
)

const reason = "scheduled privacy erasure"

// Eraser anonymizes one user profile in its own transaction.
type Eraser interface {
	PrivacyDeleteUserProfile(ctx context.Context, profile *models.UserProfile, req cascade.Request) (*cascade.Result, error)
}

// Service runs privacy sweeps.
type Service struct {
	db      *gorm.DB
	eraser  Eraser
	metrics *metrics.Metrics
}

func NewService(db *gorm.DB, eraser Eraser, m *metrics.Metrics) *Service {
	return &Service{db: db, eraser: eraser, metrics: m}
}

// Config holds configuration for one sweep
type Config struct {
	GraceDays   int   // Days between the erasure request and the erasure
	MaxErasures int   // Safety limit: refuse to run when more profiles are due
	DryRun      bool  // Only log what would be erased
	Actor       *uint // Recorded as deleted_by, nil for the system
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		GraceDays:   30,
		MaxErasures: 500,
	}
}

// Result holds the result of a sweep
type Result struct {
	TargetCount  int       `json:"target_count"`
	ErasedCount  int       `json:"erased_count"`
	SkippedCount int       `json:"skipped_count"`
	ErrorCount   int       `json:"error_count"`
	DryRun       bool      `json:"dry_run"`
	ExecutedAt   time.Time `json:"executed_at"`
	ErasedIDs    []uint    `json:"erased_ids"`
	Errors       []string  `json:"errors,omitempty"`
}

// FindDue returns profiles whose erasure was requested before the grace
// period and that still reference a user.
func (s *Service) FindDue(ctx context.Context, graceDays int) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	cutoff := time.Now().AddDate(0, 0, -graceDays)

	err := s.db.WithContext(ctx).
		Where("erasure_requested_at IS NOT NULL AND erasure_requested_at < ? AND user_id IS NOT NULL", cutoff).
		Order("erasure_requested_at, id").
		Find(&profiles).Error
	if err != nil {
		return nil, apperr.Storage("sweep.find_due", err)
	}
	return profiles, nil
}

// Run erases every due profile. One failing profile does not stop the others.
func (s *Service) Run(ctx context.Context, cfg Config) (*Result, error) {
	result := &Result{
		DryRun:     cfg.DryRun,
		ExecutedAt: time.Now(),
	}

	due, err := s.FindDue(ctx, cfg.GraceDays)
	if err != nil {
		return nil, err
	}
	result.TargetCount = len(due)

	if result.TargetCount == 0 {
		logger.Info().Msg("privacy sweep: nothing due")
		return result, nil
	}

	if cfg.MaxErasures > 0 && result.TargetCount > cfg.MaxErasures {
		return nil, apperr.Validationf("safety check failed: %d profiles exceed max erasure limit of %d",
			result.TargetCount, cfg.MaxErasures)
	}

	logger.Info().
		Int("due", result.TargetCount).
		Int("grace_days", cfg.GraceDays).
		Bool("dry_run", cfg.DryRun).
		Msg("privacy sweep started")

	for i := range due {
		profile := &due[i]

		if err := ctx.Err(); err != nil {
			return result, err
		}

		if cfg.DryRun {
			logger.Info().Uint("user_profile_id", profile.ID).Msg("[DRY-RUN] would erase user profile")
			result.ErasedIDs = append(result.ErasedIDs, profile.ID)
			result.ErasedCount++
			s.metrics.IncrementSweep("dry_run")
			continue
		}

		res, err := s.eraser.PrivacyDeleteUserProfile(ctx, profile, cascade.Request{Actor: cfg.Actor, Reason: reason})
		if err != nil {
			msg := fmt.Sprintf("failed to erase user profile %d: %v", profile.ID, err)
			logger.Error().Err(err).Uint("user_profile_id", profile.ID).Msg("privacy sweep: erasure failed")
			result.Errors = append(result.Errors, msg)
			result.ErrorCount++
			s.metrics.IncrementSweep("error")
			continue
		}
		if len(res.Logs) == 0 {
			// Anonymized concurrently since it was listed.
			result.SkippedCount++
			s.metrics.IncrementSweep("skipped")
			continue
		}

		result.ErasedIDs = append(result.ErasedIDs, profile.ID)
		result.ErasedCount++
		s.metrics.IncrementSweep("erased")
	}

	logger.Info().
		Int("erased", result.ErasedCount).
		Int("due", result.TargetCount).
		Int("errors", result.ErrorCount).
		Bool("dry_run", cfg.DryRun).
		Msg("privacy sweep completed")

	return result, nil
}
