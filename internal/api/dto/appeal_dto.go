package dto

import (
	"time"

	"github.com/spec-kit/appeal-service/internal/domain"
)

// CreateAppealRequest payload.
type CreateAppealRequest struct {
	RequesterID   int64                 `json:"requester_id"`
	RequesterName string                `json:"requester_name"`
	Category      domain.AppealCategory `json:"category"`
	Subject       string                `json:"subject"`
	Body          string                `json:"body"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	SenderID  int64  `json:"sender_id"`
	FromAdmin bool   `json:"from_admin"`
	Body      string `json:"body"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.AppealPriority `json:"priority"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.AppealStatus `json:"status"`
}

// CloseAppealRequest payload.
type CloseAppealRequest struct {
	Reason string `json:"reason"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	Reason string `json:"reason"`
}

// AppealSummary response.
type AppealSummary struct {
	ID              int64                 `json:"id"`
	RequesterID     int64                 `json:"requester_id"`
	RequesterName   string                `json:"requester_name"`
	Category        domain.AppealCategory `json:"category"`
	CategoryDisplay string                `json:"category_display"`
	Subject         string                `json:"subject"`
	Status          domain.AppealStatus   `json:"status"`
	Priority        domain.AppealPriority `json:"priority"`
	AssignedAdminID *int64                `json:"assigned_admin_id"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// AppealDetailResponse provides full appeal info.
type AppealDetailResponse struct {
	AppealSummary
	Body            string            `json:"body"`
	FirstResponseAt *time.Time        `json:"first_response_at"`
	ClosedAt        *time.Time        `json:"closed_at"`
	ClosedBy        *int64            `json:"closed_by"`
	ClosedReason    string            `json:"closed_reason,omitempty"`
	Messages        []MessageResponse `json:"messages"`
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID        int64      `json:"id"`
	AppealID  int64      `json:"appeal_id"`
	SenderID  int64      `json:"sender_id"`
	FromAdmin bool       `json:"from_admin"`
	Body      string     `json:"body"`
	SentAt    time.Time  `json:"sent_at"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at"`
}

// HistoryResponse represents an audit entry.
type HistoryResponse struct {
	ID         int64                   `json:"id"`
	ChangeType domain.AppealChangeType `json:"change_type"`
	ActorID    *int64                  `json:"actor_id"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}
