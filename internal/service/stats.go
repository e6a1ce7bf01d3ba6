package service

import (
	"context"
	"time"

	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/repository"
)

// AdminLoad is one admin's row in the workload report.
type AdminLoad struct {
	AdminID            int64     `json:"admin_id"`
	ActiveAppeals      int       `json:"active_appeals"`
	TotalAppeals       int       `json:"total_appeals"`
	Available          bool      `json:"available"`
	LastActivityAt     time.Time `json:"last_activity_at"`
	AssignmentPriority int       `json:"assignment_priority"`
}

// CategoryStats aggregates one category.
type CategoryStats struct {
	Category          domain.AppealCategory `json:"category"`
	DisplayName       string                `json:"display_name"`
	ActiveAppeals     int                   `json:"active_appeals"`
	AvailableExperts  int                   `json:"available_experts"`
	AvgExpertiseLevel float64               `json:"avg_expertise_level"`
}

// WorkloadStats is the aggregate workload report.
type WorkloadStats struct {
	TotalAdmins        int             `json:"total_admins"`
	AvailableAdmins    int             `json:"available_admins"`
	TotalActiveAppeals int             `json:"total_active_appeals"`
	AvgAppealsPerAdmin float64         `json:"avg_appeals_per_admin"`
	MostLoadedAdminID  *int64          `json:"most_loaded_admin_id,omitempty"`
	LeastLoadedAdminID *int64          `json:"least_loaded_admin_id,omitempty"`
	Admins             []AdminLoad     `json:"admins"`
	Categories         []CategoryStats `json:"categories"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// GetWorkloadStats builds the aggregate report, served from the cache
// when fresh enough.
func (s *AssignmentService) GetWorkloadStats(ctx context.Context) (*WorkloadStats, error) {
	if cached, ok := s.statsCache.GetStats(ctx); ok {
		return cached, nil
	}

	now := s.clock.Now()
	stats := &WorkloadStats{GeneratedAt: now}

	err := s.uow.Do(ctx, func(ctx context.Context, store *repository.Store) error {
		workloads, err := store.Workloads.ListAll(ctx)
		if err != nil {
			return err
		}
		activeByCategory, err := store.Appeals.CountActiveByCategory(ctx)
		if err != nil {
			return err
		}

		availableSet := make(map[int64]bool, len(workloads))
		var mostLoaded, leastLoaded *domain.AdminWorkload
		for i := range workloads {
			w := workloads[i]
			availableSet[w.AdminID] = w.Available
			stats.TotalAdmins++
			if w.Available {
				stats.AvailableAdmins++
			}
			stats.TotalActiveAppeals += w.ActiveAppeals
			if mostLoaded == nil || w.ActiveAppeals > mostLoaded.ActiveAppeals {
				mostLoaded = &workloads[i]
			}
			if leastLoaded == nil || w.ActiveAppeals < leastLoaded.ActiveAppeals {
				leastLoaded = &workloads[i]
			}
			stats.Admins = append(stats.Admins, AdminLoad{
				AdminID:            w.AdminID,
				ActiveAppeals:      w.ActiveAppeals,
				TotalAppeals:       w.TotalAppeals,
				Available:          w.Available,
				LastActivityAt:     w.LastActivityAt,
				AssignmentPriority: w.AssignmentPriority(now),
			})
		}
		if stats.TotalAdmins > 0 {
			stats.AvgAppealsPerAdmin = float64(stats.TotalActiveAppeals) / float64(stats.TotalAdmins)
			stats.MostLoadedAdminID = &mostLoaded.AdminID
			stats.LeastLoadedAdminID = &leastLoaded.AdminID
		}

		for _, category := range domain.Categories() {
			expertise, err := store.Expertise.ListByCategory(ctx, category)
			if err != nil {
				return err
			}
			info, _ := domain.CategoryDisplay(category)
			entry := CategoryStats{
				Category:      category,
				DisplayName:   info.DisplayName,
				ActiveAppeals: activeByCategory[category],
			}
			var levelSum int
			for _, e := range expertise {
				levelSum += e.ExperienceLevel
				if availableSet[e.AdminID] {
					entry.AvailableExperts++
				}
			}
			if len(expertise) > 0 {
				entry.AvgExpertiseLevel = float64(levelSum) / float64(len(expertise))
			}
			stats.Categories = append(stats.Categories, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statsCache.SetStats(ctx, stats)
	return stats, nil
}
