package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/repository"
)

// lazyWorkload loads an admin's workload, creating the record on first
// use.
func lazyWorkload(ctx context.Context, store *repository.Store, adminID int64, now time.Time) (*domain.AdminWorkload, error) {
	workload, err := store.Workloads.GetByAdminID(ctx, adminID)
	if err == nil {
		return workload, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	workload, derr := domain.NewAdminWorkload(adminID, now)
	if derr != nil {
		return nil, derr
	}
	if err := store.Workloads.Create(ctx, workload); err != nil {
		return nil, err
	}
	return workload, nil
}

// lazyExpertise loads an admin's expertise for a category, building a
// fresh level-1 record on first resolution. The created flag tells the
// caller whether to insert or update.
func lazyExpertise(ctx context.Context, store *repository.Store, adminID int64, category domain.AppealCategory, now time.Time) (*domain.AdminCategoryExpertise, bool, error) {
	expertise, err := store.Expertise.GetByAdminAndCategory(ctx, adminID, category)
	if err == nil {
		return expertise, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	expertise, derr := domain.NewAdminCategoryExpertise(adminID, category, domain.MinExperienceLevel, now)
	if derr != nil {
		return nil, false, derr
	}
	return expertise, true, nil
}
