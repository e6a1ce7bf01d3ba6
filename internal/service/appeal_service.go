package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/appeal-service/internal/clock"
	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/events"
	"github.com/spec-kit/appeal-service/internal/repository"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// AppealService coordinates appeal lifecycle workflows.
type AppealService struct {
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// AppealDependencies bundles collaborators.
type AppealDependencies struct {
	UnitOfWork repository.UnitOfWork
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewAppealService constructs the service.
func NewAppealService(deps AppealDependencies) *AppealService {
	svc := &AppealService{
		uow:        deps.UnitOfWork,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
	if svc.clock == nil {
		svc.clock = clock.System()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// AppealCreateInput describes appeal creation payload.
type AppealCreateInput struct {
	RequesterID   int64
	RequesterName string
	Category      domain.AppealCategory
	Subject       string
	Body          string
}

// CreateAppeal validates input and persists a new appeal. The initial
// body doubles as the first requester message of the thread.
func (s *AppealService) CreateAppeal(ctx context.Context, input AppealCreateInput) (*domain.Appeal, error) {
	now := s.clock.Now()
	appeal, err := domain.NewAppeal(input.RequesterID, input.RequesterName, input.Category, input.Subject, input.Body, now)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		if err := store.Appeals.Create(ctx, appeal); err != nil {
			return err
		}
		msg := &domain.AppealMessage{
			AppealID: appeal.ID,
			SenderID: appeal.RequesterID,
			Body:     appeal.Body,
			SentAt:   now,
		}
		if err := store.Messages.Create(ctx, msg); err != nil {
			return err
		}
		appeal.Messages = append(appeal.Messages, *msg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAppealCreated,
		AppealID: appeal.ID,
		Actor:    events.Actor{RequesterID: &appeal.RequesterID},
		Payload: events.AppealCreatedPayload{
			Category: events.CategoryField(appeal.Category),
			Priority: appeal.Priority,
			Subject:  appeal.Subject,
		},
	})
	return appeal, nil
}

// GetAppeal loads an appeal together with its message thread.
func (s *AppealService) GetAppeal(ctx context.Context, appealID int64) (*domain.Appeal, error) {
	var appeal *domain.Appeal
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		msgs, err := store.Messages.ListByAppeal(ctx, appealID)
		if err != nil {
			return err
		}
		loaded.Messages = msgs
		appeal = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appeal, nil
}

// ListAppeals returns appeals matching the filter.
func (s *AppealService) ListAppeals(ctx context.Context, filter repository.AppealFilter) ([]domain.Appeal, error) {
	var result []domain.Appeal
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		appeals, err := store.Appeals.ListWithFilter(ctx, filter)
		if err != nil {
			return err
		}
		result = appeals
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddMessage appends a message to the thread. The state machine flips
// the appeal to the waiting state of the opposite party; an admin
// message also counts as admin activity.
func (s *AppealService) AddMessage(ctx context.Context, appealID, senderID int64, fromAdmin bool, body string) (*domain.AppealMessage, error) {
	if senderID <= 0 {
		return nil, apperrors.NewValidationError("sender id must be positive", map[string]any{"sender_id": senderID})
	}
	now := s.clock.Now()
	var appeal *domain.Appeal
	var msg domain.AppealMessage

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		appeal = loaded
		oldStatus := appeal.Status

		msg = domain.AppealMessage{
			AppealID:  appealID,
			SenderID:  senderID,
			FromAdmin: fromAdmin,
			Body:      strings.TrimSpace(body),
			SentAt:    now,
		}
		if err := appeal.AddMessage(msg, now); err != nil {
			return err
		}
		if err := store.Messages.Create(ctx, &msg); err != nil {
			return err
		}
		if err := store.Appeals.Update(ctx, appeal); err != nil {
			return err
		}
		if oldStatus != appeal.Status {
			if err := recordStatusChange(ctx, store, appeal.ID, actorFor(senderID, fromAdmin), oldStatus, appeal.Status); err != nil {
				return err
			}
		}
		if fromAdmin {
			if err := touchAdminActivity(ctx, store, senderID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAppealMessageAdded,
		AppealID: appeal.ID,
		Actor:    messageActor(senderID, fromAdmin),
		Payload: events.AppealMessageAddedPayload{
			MessageID:   msg.ID,
			FromAdmin:   fromAdmin,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	return &msg, nil
}

// MarkMessagesRead flags the counterpart's unread messages as read:
// an admin reader consumes requester messages and vice versa.
func (s *AppealService) MarkMessagesRead(ctx context.Context, appealID int64, readerIsAdmin bool) (int64, error) {
	now := s.clock.Now()
	var marked int64
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		if _, err := loadAppeal(ctx, store, appealID); err != nil {
			return err
		}
		count, err := store.Messages.MarkRead(ctx, appealID, !readerIsAdmin, now)
		if err != nil {
			return err
		}
		marked = count
		return nil
	})
	return marked, err
}

// UpdatePriority changes the appeal priority.
func (s *AppealService) UpdatePriority(ctx context.Context, appealID int64, priority domain.AppealPriority, actorID *int64) (*domain.Appeal, error) {
	now := s.clock.Now()
	var appeal *domain.Appeal
	var oldPriority domain.AppealPriority

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		appeal = loaded
		oldPriority = appeal.Priority
		if err := appeal.UpdatePriority(priority, now); err != nil {
			return err
		}
		if err := store.Appeals.Update(ctx, appeal); err != nil {
			return err
		}
		return store.History.Create(ctx, &domain.AppealHistory{
			AppealID:   appeal.ID,
			ActorID:    actorID,
			ChangeType: domain.ChangeTypePriority,
			OldValue:   map[string]any{"priority": oldPriority},
			NewValue:   map[string]any{"priority": priority},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAppealPriorityChanged,
		AppealID: appeal.ID,
		Actor:    events.Actor{AdminID: actorID},
		Payload: events.AppealPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: priority,
		},
	})
	return appeal, nil
}

// ChangeStatus applies one of the explicit status transitions. Closing
// and escalation have dedicated entry points.
func (s *AppealService) ChangeStatus(ctx context.Context, appealID int64, newStatus domain.AppealStatus, actorID *int64) (*domain.Appeal, error) {
	now := s.clock.Now()
	var appeal *domain.Appeal
	var oldStatus domain.AppealStatus

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		appeal = loaded
		oldStatus = appeal.Status

		switch newStatus {
		case domain.AppealStatusInProgress:
			err = appeal.MarkInProgress(now)
		case domain.AppealStatusWaitingForAdmin:
			err = appeal.MarkWaitingForAdmin(now)
		case domain.AppealStatusWaitingForStudent:
			err = appeal.MarkWaitingForStudent(now)
		default:
			return apperrors.NewValidationError("unsupported status transition", map[string]any{"status": newStatus})
		}
		if err != nil {
			return err
		}
		if err := store.Appeals.Update(ctx, appeal); err != nil {
			return err
		}
		return recordStatusChange(ctx, store, appeal.ID, actorID, oldStatus, appeal.Status)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAppealStatusChanged,
		AppealID: appeal.ID,
		Actor:    events.Actor{AdminID: actorID},
		Payload: events.AppealStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: appeal.Status,
		},
	})
	return appeal, nil
}

// CloseAppeal terminates the appeal and settles the assigned admin's
// workload and expertise ledger in the same transaction. A close by the
// assigned admin counts as a successful resolution; a close by anyone
// else counts against the assignee's success rate.
func (s *AppealService) CloseAppeal(ctx context.Context, appealID, closedBy int64, reason string) (*domain.Appeal, error) {
	now := s.clock.Now()
	var appeal *domain.Appeal
	var oldStatus domain.AppealStatus

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		appeal = loaded
		oldStatus = appeal.Status
		assignee := appeal.AssignedAdminID

		if err := appeal.Close(closedBy, reason, now); err != nil {
			return err
		}
		if err := store.Appeals.Update(ctx, appeal); err != nil {
			return err
		}
		if assignee != nil {
			if err := s.settleResolution(ctx, store, *assignee, appeal.Category, closedBy == *assignee, now); err != nil {
				return err
			}
		}
		return recordStatusChange(ctx, store, appeal.ID, &closedBy, oldStatus, appeal.Status)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAppealClosed,
		AppealID: appeal.ID,
		Actor:    events.Actor{AdminID: &closedBy},
		Payload: events.AppealClosedPayload{
			ClosedBy: closedBy,
			Reason:   appeal.ClosedReason,
		},
	})
	return appeal, nil
}

// ListHistory returns the audit trail for an appeal.
func (s *AppealService) ListHistory(ctx context.Context, appealID int64, limit, offset int) ([]domain.AppealHistory, error) {
	var result []domain.AppealHistory
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		if _, err := loadAppeal(ctx, store, appealID); err != nil {
			return err
		}
		entries, err := store.History.ListByAppeal(ctx, appealID, limit, offset)
		if err != nil {
			return err
		}
		result = entries
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// settleResolution updates the closing admin's workload counter and the
// expertise ledger, creating both records lazily.
func (s *AppealService) settleResolution(ctx context.Context, store *repository.Store, adminID int64, category domain.AppealCategory, success bool, now time.Time) error {
	workload, err := lazyWorkload(ctx, store, adminID, now)
	if err != nil {
		return err
	}
	workload.CompleteAppeal(now)
	if err := store.Workloads.Save(ctx, workload); err != nil {
		return err
	}

	expertise, created, err := lazyExpertise(ctx, store, adminID, category, now)
	if err != nil {
		return err
	}
	expertise.RecordResolution(success, now)
	if created {
		return store.Expertise.Create(ctx, expertise)
	}
	return store.Expertise.Save(ctx, expertise)
}

func (s *AppealService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func recordStatusChange(ctx context.Context, store *repository.Store, appealID int64, actorID *int64, oldStatus, newStatus domain.AppealStatus) error {
	return store.History.Create(ctx, &domain.AppealHistory{
		AppealID:   appealID,
		ActorID:    actorID,
		ChangeType: domain.ChangeTypeStatus,
		OldValue:   map[string]any{"status": oldStatus},
		NewValue:   map[string]any{"status": newStatus},
	})
}

func touchAdminActivity(ctx context.Context, store *repository.Store, adminID int64, now time.Time) error {
	workload, err := lazyWorkload(ctx, store, adminID, now)
	if err != nil {
		return err
	}
	workload.UpdateActivity(now)
	return store.Workloads.Save(ctx, workload)
}

func actorFor(senderID int64, fromAdmin bool) *int64 {
	if fromAdmin {
		return &senderID
	}
	return nil
}

func messageActor(senderID int64, fromAdmin bool) events.Actor {
	if fromAdmin {
		return events.Actor{AdminID: &senderID}
	}
	return events.Actor{RequesterID: &senderID}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
