package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/appeal-service/internal/clock"
	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/events"
	"github.com/spec-kit/appeal-service/internal/observability"
	"github.com/spec-kit/appeal-service/internal/repository"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// EscalationService sweeps overdue appeals and forces escalation. The
// appeal's age is measured from updated_at, the time of its last
// meaningful mutation.
type EscalationService struct {
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	clock      clock.Clock
	logger     *zap.Logger
	threshold  time.Duration
	batchSize  int
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	UnitOfWork repository.UnitOfWork
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Clock      clock.Clock
	Logger     *zap.Logger
	Threshold  time.Duration
	BatchSize  int
}

// NewEscalationService creates the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	svc := &EscalationService{
		uow:        deps.UnitOfWork,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		logger:     deps.Logger,
		threshold:  deps.Threshold,
		batchSize:  deps.BatchSize,
	}
	if svc.clock == nil {
		svc.clock = clock.System()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.threshold <= 0 {
		svc.threshold = 72 * time.Hour
	}
	if svc.batchSize <= 0 {
		svc.batchSize = 500
	}
	return svc
}

// EscalateOverdueAppeals scans non-closed appeals older than the SLA
// threshold and escalates each in its own transaction, so the sweep can
// run alongside ad hoc assignment activity. Returns the number of
// appeals escalated. Reassignment after escalation is the caller's
// decision via the selector.
func (s *EscalationService) EscalateOverdueAppeals(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.threshold)

	var overdue []domain.Appeal
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		appeals, err := store.Appeals.ListOverdue(ctx, cutoff, s.batchSize)
		if err != nil {
			return err
		}
		overdue = appeals
		return nil
	})
	if err != nil {
		return 0, err
	}

	escalated := 0
	for i := range overdue {
		if err := ctx.Err(); err != nil {
			return escalated, err
		}
		appealID := overdue[i].ID
		if err := s.escalateOne(ctx, appealID, cutoff, now); err != nil {
			// State conflicts mean someone closed or touched the appeal
			// since the scan; skip it and keep sweeping.
			if apperrors.IsStateConflict(err) {
				continue
			}
			s.logger.Warn("escalation failed", zap.Int64("appeal_id", appealID), zap.Error(err))
			continue
		}
		escalated++
	}

	s.metrics.RecordEscalations(escalated)
	if escalated > 0 {
		s.logger.Info("escalated overdue appeals", zap.Int("count", escalated))
	}
	return escalated, nil
}

func (s *EscalationService) escalateOne(ctx context.Context, appealID int64, cutoff, now time.Time) error {
	var appeal *domain.Appeal
	var oldStatus domain.AppealStatus

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		appeal = loaded
		// Re-check under the transaction: the appeal may have been
		// updated or escalated since the scan.
		if appeal.Status == domain.AppealStatusEscalated {
			return apperrors.NewStateConflict("appeal already escalated", map[string]any{"appeal_id": appealID})
		}
		if appeal.UpdatedAt.After(cutoff) {
			return apperrors.NewStateConflict("appeal no longer overdue", map[string]any{"appeal_id": appealID})
		}
		oldStatus = appeal.Status
		if err := appeal.Escalate(now); err != nil {
			return err
		}
		if err := store.Appeals.Update(ctx, appeal); err != nil {
			return err
		}
		return store.History.Create(ctx, &domain.AppealHistory{
			AppealID:   appeal.ID,
			ChangeType: domain.ChangeTypeEscalation,
			OldValue:   map[string]any{"status": oldStatus},
			NewValue:   map[string]any{"status": appeal.Status, "priority": appeal.Priority},
		})
	})
	if err != nil {
		return err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventAppealEscalated,
			AppealID:  appeal.ID,
			Timestamp: now,
			Payload: events.AppealEscalatedPayload{
				AgeHours: now.Sub(appeal.CreatedAt).Hours(),
			},
		})
	}
	return nil
}
