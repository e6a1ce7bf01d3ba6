package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/appeal-service/internal/clock"
	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/repository"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// ExpertiseService manages per-category expertise records. Resolution
// outcomes are recorded by the appeal close path; this service covers
// manual overrides and reads.
type ExpertiseService struct {
	uow    repository.UnitOfWork
	clock  clock.Clock
	logger *zap.Logger
}

// NewExpertiseService creates the service.
func NewExpertiseService(uow repository.UnitOfWork, clk clock.Clock, logger *zap.Logger) *ExpertiseService {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpertiseService{uow: uow, clock: clk, logger: logger}
}

// SetExperienceLevel overrides an admin's experience level for a
// category, creating the record if none exists. Unlike the automatic
// tier upgrades, an override may lower the level.
func (s *ExpertiseService) SetExperienceLevel(ctx context.Context, adminID int64, category domain.AppealCategory, level int) (*domain.AdminCategoryExpertise, error) {
	if !domain.ValidCategory(category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}

	var expertise *domain.AdminCategoryExpertise
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		admin, err := store.Admins.GetByID(ctx, adminID)
		if err != nil {
			return err
		}
		if !admin.Active {
			return apperrors.NewValidationError("admin is deactivated", map[string]any{"admin_id": adminID})
		}

		now := s.clock.Now()
		record, created, err := lazyExpertise(ctx, store, adminID, category, now)
		if err != nil {
			return err
		}
		if err := record.SetExperienceLevel(level, now); err != nil {
			return err
		}
		if created {
			err = store.Expertise.Create(ctx, record)
		} else {
			err = store.Expertise.Save(ctx, record)
		}
		if err != nil {
			return err
		}
		expertise = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expertise level set",
		zap.Int64("admin_id", adminID),
		zap.String("category", string(category)),
		zap.Int("level", level))
	return expertise, nil
}

// ListAdminExpertise returns all expertise records for an admin.
func (s *ExpertiseService) ListAdminExpertise(ctx context.Context, adminID int64) ([]domain.AdminCategoryExpertise, error) {
	var records []domain.AdminCategoryExpertise
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		if _, err := store.Admins.GetByID(ctx, adminID); err != nil {
			return err
		}
		list, err := store.Expertise.ListByAdmin(ctx, adminID)
		if err != nil {
			return err
		}
		records = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListCategoryExperts returns expertise records for a category ordered
// by score, strongest first.
func (s *ExpertiseService) ListCategoryExperts(ctx context.Context, category domain.AppealCategory) ([]domain.AdminCategoryExpertise, error) {
	if !domain.ValidCategory(category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}
	var records []domain.AdminCategoryExpertise
	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		list, err := store.Expertise.ListByCategory(ctx, category)
		if err != nil {
			return err
		}
		records = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ExpertiseScore() > records[j].ExpertiseScore()
	})
	return records, nil
}
