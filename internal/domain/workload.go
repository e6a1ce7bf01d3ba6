package domain

import (
	"math"
	"time"

	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// Scoring constants for AssignmentPriority. Lower is more eligible.
const (
	activeAppealWeight   = 100
	recentActivityBonus  = 50
	staleActivityPenalty = 200
	recentActivityHours  = 24
	staleActivityHours   = 72
)

// AdminWorkload tracks one admin's assignment counters, availability
// and activity recency. Version backs the optimistic concurrency check
// at the storage boundary.
type AdminWorkload struct {
	AdminID        int64
	ActiveAppeals  int
	TotalAppeals   int
	Available      bool
	LastAssignedAt *time.Time
	LastActivityAt time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAdminWorkload creates a fresh workload record for an admin.
func NewAdminWorkload(adminID int64, now time.Time) (*AdminWorkload, error) {
	if adminID <= 0 {
		return nil, apperrors.NewValidationError("admin id must be positive", map[string]any{"admin_id": adminID})
	}
	return &AdminWorkload{
		AdminID:        adminID,
		Available:      true,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// AssignAppeal records a new assignment.
func (w *AdminWorkload) AssignAppeal(now time.Time) {
	w.ActiveAppeals++
	w.TotalAppeals++
	ts := now
	w.LastAssignedAt = &ts
	w.UpdatedAt = now
}

// CompleteAppeal records that an active assignment finished. The active
// counter never goes below zero.
func (w *AdminWorkload) CompleteAppeal(now time.Time) {
	if w.ActiveAppeals > 0 {
		w.ActiveAppeals--
	}
	w.UpdatedAt = now
}

// SetAvailability flips the availability flag and counts as activity.
func (w *AdminWorkload) SetAvailability(available bool, now time.Time) {
	w.Available = available
	w.LastActivityAt = now
	w.UpdatedAt = now
}

// UpdateActivity refreshes the activity timestamp.
func (w *AdminWorkload) UpdateActivity(now time.Time) {
	w.LastActivityAt = now
	w.UpdatedAt = now
}

// AssignmentPriority scores the admin for selection; lower is more
// eligible. Unavailable admins score math.MaxInt and are effectively
// excluded.
func (w *AdminWorkload) AssignmentPriority(now time.Time) int {
	if !w.Available {
		return math.MaxInt
	}
	score := w.ActiveAppeals * activeAppealWeight
	hours := now.Sub(w.LastActivityAt).Hours()
	if hours < recentActivityHours {
		score -= recentActivityBonus
	}
	if hours > staleActivityHours {
		score += staleActivityPenalty
	}
	if score < 0 {
		score = 0
	}
	return score
}
