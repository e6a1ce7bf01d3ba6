package domain

import "time"

// AppealChangeType captures what changed in a history entry.
type AppealChangeType string

const (
	ChangeTypeStatus     AppealChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee   AppealChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority   AppealChangeType = "PRIORITY_CHANGE"
	ChangeTypeEscalation AppealChangeType = "ESCALATION"
)

// AppealHistory is an immutable audit trail entry. Reassignment reasons
// live here rather than on the appeal itself.
type AppealHistory struct {
	ID         int64
	AppealID   int64
	ActorID    *int64
	ChangeType AppealChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
