package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/appeal-service/internal/domain"
)

var rankTime = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func workloadFixture(adminID int64, active int, available bool, lastActivity time.Time) domain.AdminWorkload {
	return domain.AdminWorkload{
		AdminID:        adminID,
		ActiveAppeals:  active,
		TotalAppeals:   active,
		Available:      available,
		LastActivityAt: lastActivity,
	}
}

func expertiseFixture(adminID int64, category domain.AppealCategory, level, successful, total int) domain.AdminCategoryExpertise {
	return domain.AdminCategoryExpertise{
		AdminID:               adminID,
		Category:              category,
		ExperienceLevel:       level,
		SuccessfulResolutions: successful,
		TotalResolutions:      total,
	}
}

func TestPickBestAdminPrefersHighestExpertiseScore(t *testing.T) {
	workloads := []domain.AdminWorkload{
		workloadFixture(1, 5, true, rankTime),
		workloadFixture(2, 0, true, rankTime),
	}
	// Admin 1: level 5, 19/20 resolved. Admin 2: level 2, 4/5 resolved.
	// The expert with the higher score wins despite the heavier load.
	expertise := []domain.AdminCategoryExpertise{
		expertiseFixture(1, domain.CategoryScholarship, 5, 19, 20),
		expertiseFixture(2, domain.CategoryScholarship, 2, 4, 5),
	}

	best := pickBestAdmin(workloads, expertise, nil)
	require.NotNil(t, best)
	assert.Equal(t, int64(1), best.AdminID)
}

func TestPickBestAdminExpertTieBreaksOnLowestActive(t *testing.T) {
	workloads := []domain.AdminWorkload{
		workloadFixture(1, 4, true, rankTime),
		workloadFixture(2, 1, true, rankTime),
	}
	expertise := []domain.AdminCategoryExpertise{
		expertiseFixture(1, domain.CategoryDormitory, 3, 9, 12),
		expertiseFixture(2, domain.CategoryDormitory, 3, 9, 12),
	}

	best := pickBestAdmin(workloads, expertise, nil)
	require.NotNil(t, best)
	assert.Equal(t, int64(2), best.AdminID)
}

func TestPickBestAdminFallsBackToLowestWorkload(t *testing.T) {
	workloads := []domain.AdminWorkload{
		workloadFixture(1, 3, true, rankTime),
		workloadFixture(2, 1, true, rankTime),
		workloadFixture(3, 2, true, rankTime),
	}

	best := pickBestAdmin(workloads, nil, nil)
	require.NotNil(t, best)
	assert.Equal(t, int64(2), best.AdminID)
}

func TestPickBestAdminFallbackTieBreaksOnWarmestActivity(t *testing.T) {
	workloads := []domain.AdminWorkload{
		workloadFixture(1, 2, true, rankTime.Add(-3*time.Hour)),
		workloadFixture(2, 2, true, rankTime.Add(-10*time.Minute)),
	}

	best := pickBestAdmin(workloads, nil, nil)
	require.NotNil(t, best)
	assert.Equal(t, int64(2), best.AdminID)
}

func TestPickBestAdminSkipsUnavailableAndExcluded(t *testing.T) {
	excluded := int64(2)
	workloads := []domain.AdminWorkload{
		workloadFixture(1, 0, false, rankTime),
		workloadFixture(2, 0, true, rankTime),
		workloadFixture(3, 7, true, rankTime),
	}
	expertise := []domain.AdminCategoryExpertise{
		expertiseFixture(1, domain.CategoryEvents, 5, 20, 20),
		expertiseFixture(2, domain.CategoryEvents, 5, 20, 20),
	}

	best := pickBestAdmin(workloads, expertise, &excluded)
	require.NotNil(t, best)
	assert.Equal(t, int64(3), best.AdminID)
}

func TestPickBestAdminReturnsNilWhenNobodyAvailable(t *testing.T) {
	workloads := []domain.AdminWorkload{
		workloadFixture(1, 0, false, rankTime),
	}
	assert.Nil(t, pickBestAdmin(workloads, nil, nil))
	assert.Nil(t, pickBestAdmin(nil, nil, nil))
}

func TestRankExpertsIgnoresExpertiseOfOtherAdmins(t *testing.T) {
	workloads := []domain.AdminWorkload{
		workloadFixture(1, 0, true, rankTime),
	}
	// Expertise for an admin with no available workload never surfaces.
	expertise := []domain.AdminCategoryExpertise{
		expertiseFixture(9, domain.CategoryComplaint, 5, 20, 20),
	}

	candidates := buildCandidates(workloads, expertise, nil)
	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].hasExpertise)
	assert.Empty(t, rankExperts(candidates))
}

func TestBuildCandidatesKeepsBestScorePerAdmin(t *testing.T) {
	workloads := []domain.AdminWorkload{
		workloadFixture(1, 0, true, rankTime),
	}
	low := expertiseFixture(1, domain.CategoryOther, 1, 0, 0)
	high := expertiseFixture(1, domain.CategoryOther, 4, 16, 20)

	candidates := buildCandidates(workloads, []domain.AdminCategoryExpertise{low, high}, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, high.ExpertiseScore(), candidates[0].expertiseScore)
}
