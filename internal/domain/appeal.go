package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// AppealStatus enumerates lifecycle states for appeals.
type AppealStatus string

const (
	AppealStatusNew               AppealStatus = "NEW"
	AppealStatusInProgress        AppealStatus = "IN_PROGRESS"
	AppealStatusWaitingForStudent AppealStatus = "WAITING_FOR_STUDENT"
	AppealStatusWaitingForAdmin   AppealStatus = "WAITING_FOR_ADMIN"
	AppealStatusEscalated         AppealStatus = "ESCALATED"
	// AppealStatusResolved is declared but no operation transitions into
	// it. Kept for storage compatibility until a caller path is defined.
	AppealStatusResolved AppealStatus = "RESOLVED"
	AppealStatusClosed   AppealStatus = "CLOSED"
)

// AppealPriority enumerates SLA urgency.
type AppealPriority string

const (
	AppealPriorityLow    AppealPriority = "LOW"
	AppealPriorityNormal AppealPriority = "NORMAL"
	AppealPriorityHigh   AppealPriority = "HIGH"
	AppealPriorityUrgent AppealPriority = "URGENT"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p AppealPriority) bool {
	switch p {
	case AppealPriorityLow, AppealPriorityNormal, AppealPriorityHigh, AppealPriorityUrgent:
		return true
	}
	return false
}

const (
	minBodyLength = 10
	maxBodyLength = 4000
)

// Appeal is the aggregate for a tracked support request. All mutation
// goes through methods that validate the state machine; every mutating
// method takes the current time so the clock stays injectable.
type Appeal struct {
	ID              int64
	RequesterID     int64
	RequesterName   string
	Category        AppealCategory
	Subject         string
	Body            string
	Status          AppealStatus
	Priority        AppealPriority
	AssignedAdminID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FirstResponseAt *time.Time
	ClosedAt        *time.Time
	ClosedBy        *int64
	ClosedReason    string
	Messages        []AppealMessage
}

// NewAppeal validates input and constructs an appeal in status NEW with
// normal priority.
func NewAppeal(requesterID int64, requesterName string, category AppealCategory, subject, body string, now time.Time) (*Appeal, error) {
	if requesterID <= 0 {
		return nil, apperrors.NewValidationError("requester id must be positive", map[string]any{"requester_id": requesterID})
	}
	if strings.TrimSpace(subject) == "" {
		return nil, apperrors.NewValidationError("subject must not be blank", nil)
	}
	if !ValidCategory(category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}
	if l := len([]rune(body)); l < minBodyLength || l > maxBodyLength {
		return nil, apperrors.NewValidationError("body length out of range", map[string]any{
			"length": l,
			"min":    minBodyLength,
			"max":    maxBodyLength,
		})
	}
	return &Appeal{
		RequesterID:   requesterID,
		RequesterName: strings.TrimSpace(requesterName),
		Category:      category,
		Subject:       strings.TrimSpace(subject),
		Body:          body,
		Status:        AppealStatusNew,
		Priority:      AppealPriorityNormal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsClosed reports whether the appeal is in its terminal state.
func (a *Appeal) IsClosed() bool {
	return a.Status == AppealStatusClosed
}

// AssignTo sets or clears the assigned admin. Assigning a NEW appeal
// moves it to IN_PROGRESS; clearing the assignment does not revert the
// status.
func (a *Appeal) AssignTo(adminID *int64, now time.Time) error {
	if err := a.guardOpen("assign"); err != nil {
		return err
	}
	if adminID != nil && *adminID <= 0 {
		return apperrors.NewValidationError("admin id must be positive", map[string]any{"admin_id": *adminID})
	}
	a.AssignedAdminID = adminID
	if adminID != nil && a.Status == AppealStatusNew {
		a.Status = AppealStatusInProgress
	}
	a.touch(now)
	return nil
}

// UpdatePriority changes the priority. No status guard applies.
func (a *Appeal) UpdatePriority(priority AppealPriority, now time.Time) error {
	if !ValidPriority(priority) {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	a.Priority = priority
	a.touch(now)
	return nil
}

// SetFirstResponse records the first admin response time. Idempotent:
// once set it never changes.
func (a *Appeal) SetFirstResponse(now time.Time) {
	if a.FirstResponseAt != nil {
		return
	}
	ts := now
	a.FirstResponseAt = &ts
	a.touch(now)
}

// MarkInProgress transitions the appeal to IN_PROGRESS.
func (a *Appeal) MarkInProgress(now time.Time) error {
	if err := a.guardOpen("mark in progress"); err != nil {
		return err
	}
	a.Status = AppealStatusInProgress
	a.touch(now)
	return nil
}

// MarkWaitingForAdmin transitions the appeal to WAITING_FOR_ADMIN.
func (a *Appeal) MarkWaitingForAdmin(now time.Time) error {
	if err := a.guardOpen("mark waiting for admin"); err != nil {
		return err
	}
	a.Status = AppealStatusWaitingForAdmin
	a.touch(now)
	return nil
}

// MarkWaitingForStudent transitions the appeal to WAITING_FOR_STUDENT
// and records the first response as a side effect.
func (a *Appeal) MarkWaitingForStudent(now time.Time) error {
	if err := a.guardOpen("mark waiting for student"); err != nil {
		return err
	}
	a.Status = AppealStatusWaitingForStudent
	a.SetFirstResponse(now)
	a.touch(now)
	return nil
}

// Escalate forces the appeal into ESCALATED with priority HIGH. The
// priority is set to HIGH even when it was already URGENT, matching the
// observed product behavior.
func (a *Appeal) Escalate(now time.Time) error {
	if err := a.guardOpen("escalate"); err != nil {
		return err
	}
	a.Status = AppealStatusEscalated
	a.Priority = AppealPriorityHigh
	a.touch(now)
	return nil
}

// Close terminates the appeal. The assignment is cleared because an
// assigned admin id is only valid on a non-closed appeal.
func (a *Appeal) Close(closedBy int64, reason string, now time.Time) error {
	if a.IsClosed() {
		return apperrors.NewStateConflict("appeal already closed", map[string]any{"appeal_id": a.ID})
	}
	if closedBy <= 0 {
		return apperrors.NewValidationError("closed-by id must be positive", map[string]any{"closed_by": closedBy})
	}
	if strings.TrimSpace(reason) == "" {
		return apperrors.NewValidationError("close reason must not be blank", nil)
	}
	ts := now
	by := closedBy
	a.Status = AppealStatusClosed
	a.ClosedAt = &ts
	a.ClosedBy = &by
	a.ClosedReason = strings.TrimSpace(reason)
	a.AssignedAdminID = nil
	a.touch(now)
	return nil
}

// AddMessage appends a thread message and forces the waiting status for
// the opposite party, overriding whatever status was current, including
// ESCALATED. An admin message also records the first response.
func (a *Appeal) AddMessage(msg AppealMessage, now time.Time) error {
	if err := a.guardOpen("add message"); err != nil {
		return err
	}
	if strings.TrimSpace(msg.Body) == "" {
		return apperrors.NewValidationError("message body must not be blank", nil)
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = now
	}
	a.Messages = append(a.Messages, msg)
	if msg.FromAdmin {
		a.SetFirstResponse(now)
		a.Status = AppealStatusWaitingForStudent
	} else {
		a.Status = AppealStatusWaitingForAdmin
	}
	a.touch(now)
	return nil
}

func (a *Appeal) guardOpen(op string) error {
	if a.IsClosed() {
		return apperrors.NewStateConflict("appeal is closed", map[string]any{
			"appeal_id": a.ID,
			"operation": op,
		})
	}
	return nil
}

// touch keeps UpdatedAt monotonically non-decreasing.
func (a *Appeal) touch(now time.Time) {
	if now.After(a.UpdatedAt) {
		a.UpdatedAt = now
	}
}
