package dto

import (
	"time"

	"github.com/spec-kit/appeal-service/internal/domain"
)

// RegisterAdminRequest payload.
type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed token.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Admin     AdminResponse `json:"admin"`
}

// AdminResponse public admin view.
type AdminResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SetAvailabilityRequest payload.
type SetAvailabilityRequest struct {
	Available bool `json:"available"`
}

// SetExpertiseRequest payload.
type SetExpertiseRequest struct {
	Category domain.AppealCategory `json:"category"`
	Level    int                   `json:"level"`
}

// ExpertiseResponse represents a per-category expertise record.
type ExpertiseResponse struct {
	AdminID               int64                 `json:"admin_id"`
	Category              domain.AppealCategory `json:"category"`
	ExperienceLevel       int                   `json:"experience_level"`
	SuccessfulResolutions int                   `json:"successful_resolutions"`
	TotalResolutions      int                   `json:"total_resolutions"`
	SuccessRate           float64               `json:"success_rate"`
	ExpertiseScore        int                   `json:"expertise_score"`
}

// WorkloadResponse represents an admin's workload counters.
type WorkloadResponse struct {
	AdminID            int64      `json:"admin_id"`
	ActiveAppeals      int        `json:"active_appeals"`
	TotalAppeals       int        `json:"total_appeals"`
	Available          bool       `json:"available"`
	LastAssignedAt     *time.Time `json:"last_assigned_at"`
	LastActivityAt     time.Time  `json:"last_activity_at"`
	AssignmentPriority int        `json:"assignment_priority"`
}
