package domain

import (
	"math"
	"time"

	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

const (
	MinExperienceLevel = 1
	MaxExperienceLevel = 5
)

// AdminCategoryExpertise is one admin's per-category skill record,
// derived from resolution history.
type AdminCategoryExpertise struct {
	AdminID               int64
	Category              AppealCategory
	ExperienceLevel       int
	SuccessfulResolutions int
	TotalResolutions      int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewAdminCategoryExpertise creates an expertise record at the given
// starting level.
func NewAdminCategoryExpertise(adminID int64, category AppealCategory, level int, now time.Time) (*AdminCategoryExpertise, error) {
	if adminID <= 0 {
		return nil, apperrors.NewValidationError("admin id must be positive", map[string]any{"admin_id": adminID})
	}
	if !ValidCategory(category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}
	if level < MinExperienceLevel || level > MaxExperienceLevel {
		return nil, apperrors.NewValidationError("experience level out of range", map[string]any{"level": level})
	}
	return &AdminCategoryExpertise{
		AdminID:         adminID,
		Category:        category,
		ExperienceLevel: level,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SetExperienceLevel is the explicit override path. Unlike the
// automatic upgrade it may lower the level.
func (e *AdminCategoryExpertise) SetExperienceLevel(level int, now time.Time) error {
	if level < MinExperienceLevel || level > MaxExperienceLevel {
		return apperrors.NewValidationError("experience level out of range", map[string]any{"level": level})
	}
	e.ExperienceLevel = level
	e.UpdatedAt = now
	return nil
}

// RecordResolution counts one resolved appeal and recomputes the level.
// The level only ever increases through this path.
func (e *AdminCategoryExpertise) RecordResolution(success bool, now time.Time) {
	e.TotalResolutions++
	if success {
		e.SuccessfulResolutions++
	}
	if tier := e.computedTier(); tier > e.ExperienceLevel {
		e.ExperienceLevel = tier
	}
	e.UpdatedAt = now
}

func (e *AdminCategoryExpertise) computedTier() int {
	rate := e.SuccessRate()
	switch {
	case rate >= 0.9 && e.TotalResolutions >= 20:
		return 5
	case rate >= 0.8 && e.TotalResolutions >= 15:
		return 4
	case rate >= 0.7 && e.TotalResolutions >= 10:
		return 3
	case rate >= 0.6 && e.TotalResolutions >= 5:
		return 2
	default:
		return MinExperienceLevel
	}
}

// SuccessRate returns successes over total, or 0 with no resolutions.
func (e *AdminCategoryExpertise) SuccessRate() float64 {
	if e.TotalResolutions == 0 {
		return 0
	}
	return float64(e.SuccessfulResolutions) / float64(e.TotalResolutions)
}

// ExpertiseScore combines level, success rate and volume into a single
// ranking score, roughly in [20, 150].
func (e *AdminCategoryExpertise) ExpertiseScore() int {
	volume := e.TotalResolutions
	if volume > 10 {
		volume = 10
	}
	return e.ExperienceLevel*20 + int(math.Round(e.SuccessRate()*30)) + volume*2
}
