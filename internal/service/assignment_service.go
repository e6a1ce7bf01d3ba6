package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/appeal-service/internal/clock"
	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/events"
	"github.com/spec-kit/appeal-service/internal/observability"
	"github.com/spec-kit/appeal-service/internal/repository"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// AssignmentService ranks admins and routes appeals to them.
type AssignmentService struct {
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	clock      clock.Clock
	logger     *zap.Logger
	statsCache StatsCache
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	UnitOfWork repository.UnitOfWork
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Clock      clock.Clock
	Logger     *zap.Logger
	StatsCache StatsCache
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	svc := &AssignmentService{
		uow:        deps.UnitOfWork,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		logger:     deps.Logger,
		statsCache: deps.StatsCache,
	}
	if svc.clock == nil {
		svc.clock = clock.System()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.statsCache == nil {
		svc.statsCache = NoopStatsCache{}
	}
	return svc
}

// CategoryAdmin pairs an available admin with their expertise record
// for one category.
type CategoryAdmin struct {
	Workload  domain.AdminWorkload
	Expertise domain.AdminCategoryExpertise
}

// FindBestAdminForAppeal runs the two-phase ranking without mutating
// anything. The priority argument is carried for parity with the
// assignment entry points; ranking itself is category-driven.
func (s *AssignmentService) FindBestAdminForAppeal(ctx context.Context, category domain.AppealCategory, priority domain.AppealPriority) (*domain.AdminWorkload, error) {
	if !domain.ValidCategory(category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}
	var best *domain.AdminWorkload
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		chosen, err := s.selectAdmin(ctx, store, category, nil)
		if err != nil {
			return err
		}
		best = chosen
		return nil
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

// GetAvailableAdminsForCategory lists available admins holding
// expertise in the category, ranked by expertise score.
func (s *AssignmentService) GetAvailableAdminsForCategory(ctx context.Context, category domain.AppealCategory) ([]CategoryAdmin, error) {
	if !domain.ValidCategory(category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}
	var result []CategoryAdmin
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		workloads, err := store.Workloads.ListAvailable(ctx)
		if err != nil {
			return err
		}
		expertise, err := store.Expertise.ListByCategory(ctx, category)
		if err != nil {
			return err
		}
		byAdmin := make(map[int64]domain.AdminCategoryExpertise, len(expertise))
		for _, e := range expertise {
			byAdmin[e.AdminID] = e
		}
		for _, c := range rankExperts(buildCandidates(workloads, expertise, nil)) {
			result = append(result, CategoryAdmin{Workload: c.workload, Expertise: byAdmin[c.workload.AdminID]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssignAppeal selects the best admin for the appeal and assigns it
// inside one atomic unit. Returns the chosen admin's workload, or the
// no-admin-available outcome with the appeal left untouched.
func (s *AssignmentService) AssignAppeal(ctx context.Context, appealID int64) (*domain.AdminWorkload, error) {
	now := s.clock.Now()
	var chosen *domain.AdminWorkload
	var appeal *domain.Appeal

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		appeal = loaded

		workload, err := s.selectAdmin(ctx, store, appeal.Category, nil)
		if err != nil {
			return err
		}
		if workload == nil {
			return apperrors.NewNoAdminAvailable(map[string]any{"appeal_id": appealID, "category": appeal.Category})
		}
		if err := s.applyAssignment(ctx, store, appeal, workload, nil, now); err != nil {
			return err
		}
		chosen = workload
		return nil
	})
	if err != nil {
		if apperrors.IsNoAdminAvailable(err) {
			s.metrics.RecordNoAdminAvailable()
		}
		return nil, err
	}

	s.metrics.RecordAssignment(false)
	s.publishAssigned(ctx, appeal.ID, chosen.AdminID, false, "")
	return chosen, nil
}

// AssignAppealToAdmin assigns the appeal directly to the given admin,
// bypassing ranking but keeping the state guard and workload update.
func (s *AssignmentService) AssignAppealToAdmin(ctx context.Context, appealID, adminID int64) error {
	if adminID <= 0 {
		return apperrors.NewValidationError("admin id must be positive", map[string]any{"admin_id": adminID})
	}
	now := s.clock.Now()
	var appeal *domain.Appeal

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		admin, err := store.Admins.GetByID(ctx, adminID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("admin", map[string]any{"admin_id": adminID})
			}
			return apperrors.MapError(err)
		}
		if !admin.Active {
			return apperrors.NewConflict("admin inactive", map[string]any{"admin_id": adminID})
		}

		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		appeal = loaded

		workload, err := lazyWorkload(ctx, store, adminID, now)
		if err != nil {
			return err
		}
		return s.applyAssignment(ctx, store, appeal, workload, nil, now)
	})
	if err != nil {
		return err
	}

	s.metrics.RecordAssignment(false)
	s.publishAssigned(ctx, appeal.ID, adminID, false, "")
	return nil
}

// ReassignAppeal releases the current admin and re-runs selection. The
// previously assigned admin is excluded so reassignment never becomes a
// no-op; the reason is recorded on the audit trail only.
func (s *AssignmentService) ReassignAppeal(ctx context.Context, appealID int64, reason string) (*domain.AdminWorkload, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("reassignment reason must not be blank", nil)
	}
	now := s.clock.Now()
	var chosen *domain.AdminWorkload
	var appeal *domain.Appeal

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		loaded, err := loadAppeal(ctx, store, appealID)
		if err != nil {
			return err
		}
		appeal = loaded
		if appeal.IsClosed() {
			return apperrors.NewStateConflict("appeal is closed", map[string]any{"appeal_id": appealID})
		}

		previous := appeal.AssignedAdminID
		if previous != nil {
			prevWorkload, err := lazyWorkload(ctx, store, *previous, now)
			if err != nil {
				return err
			}
			prevWorkload.CompleteAppeal(now)
			if err := store.Workloads.Save(ctx, prevWorkload); err != nil {
				return err
			}
		}

		workload, err := s.selectAdmin(ctx, store, appeal.Category, previous)
		if err != nil {
			return err
		}
		if workload == nil {
			// Abort the transaction so the previous admin's counter
			// decrement never commits without a new assignment.
			return apperrors.NewNoAdminAvailable(map[string]any{"appeal_id": appealID, "category": appeal.Category})
		}
		if err := s.applyAssignment(ctx, store, appeal, workload, strPtr(reason), now); err != nil {
			return err
		}
		chosen = workload
		return nil
	})
	if err != nil {
		if apperrors.IsNoAdminAvailable(err) {
			s.metrics.RecordNoAdminAvailable()
		}
		return nil, err
	}

	s.metrics.RecordAssignment(true)
	s.publishAssigned(ctx, appeal.ID, chosen.AdminID, true, reason)
	return chosen, nil
}

// UpdateAdminWorkload reconciles an admin's counters after an appeal
// status transition performed outside the selector. A transition into
// the terminal state completes an assignment; NEW to IN_PROGRESS counts
// as receiving one; everything else is plain activity.
func (s *AssignmentService) UpdateAdminWorkload(ctx context.Context, adminID int64, oldStatus, newStatus domain.AppealStatus) error {
	if adminID <= 0 {
		return apperrors.NewValidationError("admin id must be positive", map[string]any{"admin_id": adminID})
	}
	now := s.clock.Now()
	return s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		workload, err := lazyWorkload(ctx, store, adminID, now)
		if err != nil {
			return err
		}
		switch {
		case newStatus == domain.AppealStatusClosed && oldStatus != domain.AppealStatusClosed:
			workload.CompleteAppeal(now)
		case oldStatus == domain.AppealStatusNew && newStatus == domain.AppealStatusInProgress:
			workload.AssignAppeal(now)
		default:
			workload.UpdateActivity(now)
		}
		return store.Workloads.Save(ctx, workload)
	})
}

// SetAdminAvailability flips the availability flag, creating the
// workload record lazily for admins never assigned before.
func (s *AssignmentService) SetAdminAvailability(ctx context.Context, adminID int64, available bool) error {
	if adminID <= 0 {
		return apperrors.NewValidationError("admin id must be positive", map[string]any{"admin_id": adminID})
	}
	now := s.clock.Now()
	return s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		workload, err := lazyWorkload(ctx, store, adminID, now)
		if err != nil {
			return err
		}
		workload.SetAvailability(available, now)
		return store.Workloads.Save(ctx, workload)
	})
}

func (s *AssignmentService) selectAdmin(ctx context.Context, store *repository.Store, category domain.AppealCategory, exclude *int64) (*domain.AdminWorkload, error) {
	workloads, err := store.Workloads.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	expertise, err := store.Expertise.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	return pickBestAdmin(workloads, expertise, exclude), nil
}

// applyAssignment mutates the appeal and the chosen workload together
// and records the audit entry; the surrounding transaction makes the
// pair atomic.
func (s *AssignmentService) applyAssignment(ctx context.Context, store *repository.Store, appeal *domain.Appeal, workload *domain.AdminWorkload, reason *string, now time.Time) error {
	oldAssignee := appeal.AssignedAdminID
	adminID := workload.AdminID
	if err := appeal.AssignTo(&adminID, now); err != nil {
		return err
	}
	workload.AssignAppeal(now)

	if err := store.Appeals.Update(ctx, appeal); err != nil {
		return err
	}
	if err := store.Workloads.Save(ctx, workload); err != nil {
		return err
	}

	newValue := map[string]any{"admin_id": adminID}
	if reason != nil {
		newValue["reason"] = *reason
	}
	return store.History.Create(ctx, &domain.AppealHistory{
		AppealID:   appeal.ID,
		ActorID:    &adminID,
		ChangeType: domain.ChangeTypeAssignee,
		OldValue:   map[string]any{"admin_id": oldAssignee},
		NewValue:   newValue,
	})
}

func (s *AssignmentService) publishAssigned(ctx context.Context, appealID, adminID int64, reassigned bool, reason string) {
	if s.dispatcher == nil {
		return
	}
	id := adminID
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAppealAssigned,
		AppealID:  appealID,
		Actor:     events.Actor{AdminID: &id},
		Timestamp: s.clock.Now(),
		Payload: events.AppealAssignedPayload{
			AdminID:    &id,
			Reassigned: reassigned,
			Reason:     reason,
		},
	})
}

func loadAppeal(ctx context.Context, store *repository.Store, appealID int64) (*domain.Appeal, error) {
	appeal, err := store.Appeals.GetByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("appeal", map[string]any{"appeal_id": appealID})
		}
		return nil, apperrors.MapError(err)
	}
	return appeal, nil
}

func strPtr(v string) *string {
	return &v
}
