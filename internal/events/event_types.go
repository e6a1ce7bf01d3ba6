package events

import (
	"time"

	"github.com/spec-kit/appeal-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAppealCreated         EventType = "appeal_created"
	EventAppealAssigned        EventType = "appeal_assigned"
	EventAppealStatusChanged   EventType = "appeal_status_changed"
	EventAppealPriorityChanged EventType = "appeal_priority_changed"
	EventAppealMessageAdded    EventType = "appeal_message_added"
	EventAppealEscalated       EventType = "appeal_escalated"
	EventAppealClosed          EventType = "appeal_closed"
)

// Actor encapsulates actor metadata for an event. System events (the
// escalation sweep) carry neither id.
type Actor struct {
	AdminID     *int64 `json:"admin_id,omitempty"`
	RequesterID *int64 `json:"requester_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AppealID  int64       `json:"appeal_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AppealCreatedPayload payload.
type AppealCreatedPayload struct {
	Category AppealCategoryField   `json:"category"`
	Priority domain.AppealPriority `json:"priority"`
	Subject  string                `json:"subject"`
}

// AppealCategoryField carries the category with its display metadata.
type AppealCategoryField struct {
	Value       domain.AppealCategory `json:"value"`
	DisplayName string                `json:"display_name"`
}

// CategoryField builds the display-enriched category payload field.
func CategoryField(c domain.AppealCategory) AppealCategoryField {
	info, _ := domain.CategoryDisplay(c)
	return AppealCategoryField{Value: c, DisplayName: info.DisplayName}
}

// AppealAssignedPayload payload.
type AppealAssignedPayload struct {
	AdminID    *int64 `json:"admin_id,omitempty"`
	Reassigned bool   `json:"reassigned"`
	Reason     string `json:"reason,omitempty"`
}

// AppealStatusChangedPayload payload.
type AppealStatusChangedPayload struct {
	OldStatus domain.AppealStatus `json:"old_status"`
	NewStatus domain.AppealStatus `json:"new_status"`
}

// AppealPriorityChangedPayload payload.
type AppealPriorityChangedPayload struct {
	OldPriority domain.AppealPriority `json:"old_priority"`
	NewPriority domain.AppealPriority `json:"new_priority"`
}

// AppealMessageAddedPayload payload.
type AppealMessageAddedPayload struct {
	MessageID   int64  `json:"message_id"`
	FromAdmin   bool   `json:"from_admin"`
	BodyPreview string `json:"body_preview"`
}

// AppealEscalatedPayload payload.
type AppealEscalatedPayload struct {
	AgeHours float64 `json:"age_hours"`
}

// AppealClosedPayload payload.
type AppealClosedPayload struct {
	ClosedBy int64  `json:"closed_by"`
	Reason   string `json:"reason"`
}
