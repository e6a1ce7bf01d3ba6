package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/appeal-service/internal/clock"
	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/events"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

type assignmentHarness struct {
	svc        *AssignmentService
	store      *memStore
	dispatcher *captureDispatcher
	clock      *clock.Fixed
}

func newAssignmentHarness(t *testing.T) *assignmentHarness {
	t.Helper()
	store, uow := newMemUnitOfWork()
	dispatcher := &captureDispatcher{}
	fixed := clock.NewFixed(rankTime)
	svc := NewAssignmentService(AssignmentDependencies{
		UnitOfWork: uow,
		Dispatcher: dispatcher,
		Clock:      fixed,
	})
	return &assignmentHarness{svc: svc, store: store, dispatcher: dispatcher, clock: fixed}
}

func (h *assignmentHarness) seedAppeal(t *testing.T, category domain.AppealCategory) *domain.Appeal {
	t.Helper()
	appeal, err := domain.NewAppeal(42, "Jordan", category, "Subject line", "a body long enough to pass validation", h.clock.Now())
	require.NoError(t, err)
	require.NoError(t, (&memAppealRepo{h.store}).Create(context.Background(), appeal))
	return appeal
}

func (h *assignmentHarness) seedAdmin(t *testing.T, active, available bool, activeAppeals int) int64 {
	t.Helper()
	admin := &domain.Admin{Name: "Admin", Email: "admin@example.com", Active: active}
	require.NoError(t, (&memAdminRepo{h.store}).Create(context.Background(), admin))
	workload, err := domain.NewAdminWorkload(admin.ID, h.clock.Now())
	require.NoError(t, err)
	workload.Available = available
	workload.ActiveAppeals = activeAppeals
	workload.TotalAppeals = activeAppeals
	require.NoError(t, (&memWorkloadRepo{h.store}).Create(context.Background(), workload))
	return admin.ID
}

func (h *assignmentHarness) seedExpertise(t *testing.T, adminID int64, category domain.AppealCategory, level, successful, total int) {
	t.Helper()
	record := expertiseFixture(adminID, category, level, successful, total)
	require.NoError(t, (&memExpertiseRepo{h.store}).Create(context.Background(), &record))
}

func TestAssignAppealRoutesToExpertAndUpdatesWorkload(t *testing.T) {
	h := newAssignmentHarness(t)
	appeal := h.seedAppeal(t, domain.CategoryScholarship)
	expert := h.seedAdmin(t, true, true, 3)
	idle := h.seedAdmin(t, true, true, 0)
	h.seedExpertise(t, expert, domain.CategoryScholarship, 4, 16, 20)

	chosen, err := h.svc.AssignAppeal(context.Background(), appeal.ID)
	require.NoError(t, err)
	assert.Equal(t, expert, chosen.AdminID)
	assert.Equal(t, 4, chosen.ActiveAppeals)

	stored := h.store.appeals[appeal.ID]
	require.NotNil(t, stored.AssignedAdminID)
	assert.Equal(t, expert, *stored.AssignedAdminID)
	assert.Equal(t, domain.AppealStatusInProgress, stored.Status)

	// The idle non-expert stays untouched.
	assert.Equal(t, 0, h.store.workloads[idle].ActiveAppeals)

	require.Len(t, h.store.history, 1)
	assert.Equal(t, domain.ChangeTypeAssignee, h.store.history[0].ChangeType)
	require.Len(t, h.dispatcher.byType(events.EventAppealAssigned), 1)
}

func TestAssignAppealNoAdminLeavesAppealUntouched(t *testing.T) {
	h := newAssignmentHarness(t)
	appeal := h.seedAppeal(t, domain.CategoryEvents)
	h.seedAdmin(t, true, false, 0)

	_, err := h.svc.AssignAppeal(context.Background(), appeal.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNoAdminAvailable(err))

	stored := h.store.appeals[appeal.ID]
	assert.Nil(t, stored.AssignedAdminID)
	assert.Equal(t, domain.AppealStatusNew, stored.Status)
	assert.Empty(t, h.store.history)
}

func TestAssignAppealToAdminRejectsInactiveAdmin(t *testing.T) {
	h := newAssignmentHarness(t)
	appeal := h.seedAppeal(t, domain.CategoryOther)
	inactive := h.seedAdmin(t, false, true, 0)

	err := h.svc.AssignAppealToAdmin(context.Background(), appeal.ID, inactive)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestAssignAppealToAdminCreatesWorkloadLazily(t *testing.T) {
	h := newAssignmentHarness(t)
	appeal := h.seedAppeal(t, domain.CategoryProposal)
	admin := &domain.Admin{Name: "Fresh", Email: "fresh@example.com", Active: true}
	require.NoError(t, (&memAdminRepo{h.store}).Create(context.Background(), admin))

	require.NoError(t, h.svc.AssignAppealToAdmin(context.Background(), appeal.ID, admin.ID))

	workload := h.store.workloads[admin.ID]
	assert.Equal(t, 1, workload.ActiveAppeals)
	assert.Equal(t, 1, workload.TotalAppeals)
}

func TestReassignAppealExcludesPreviousAdmin(t *testing.T) {
	h := newAssignmentHarness(t)
	appeal := h.seedAppeal(t, domain.CategoryDormitory)
	first := h.seedAdmin(t, true, true, 0)
	second := h.seedAdmin(t, true, true, 5)
	h.seedExpertise(t, first, domain.CategoryDormitory, 5, 20, 20)

	chosen, err := h.svc.AssignAppeal(context.Background(), appeal.ID)
	require.NoError(t, err)
	require.Equal(t, first, chosen.AdminID)

	reassigned, err := h.svc.ReassignAppeal(context.Background(), appeal.ID, "no response for two days")
	require.NoError(t, err)
	assert.Equal(t, second, reassigned.AdminID)

	assert.Equal(t, 0, h.store.workloads[first].ActiveAppeals)
	assert.Equal(t, 6, h.store.workloads[second].ActiveAppeals)

	stored := h.store.appeals[appeal.ID]
	require.NotNil(t, stored.AssignedAdminID)
	assert.Equal(t, second, *stored.AssignedAdminID)

	assigned := h.dispatcher.byType(events.EventAppealAssigned)
	require.Len(t, assigned, 2)
	payload, ok := assigned[1].Payload.(events.AppealAssignedPayload)
	require.True(t, ok)
	assert.True(t, payload.Reassigned)
}

func TestReassignAppealRequiresReason(t *testing.T) {
	h := newAssignmentHarness(t)
	appeal := h.seedAppeal(t, domain.CategoryDormitory)

	_, err := h.svc.ReassignAppeal(context.Background(), appeal.ID, "   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestReassignAppealNoReplacementRollsBackDecrement(t *testing.T) {
	h := newAssignmentHarness(t)
	appeal := h.seedAppeal(t, domain.CategoryComplaint)
	only := h.seedAdmin(t, true, true, 0)
	require.NoError(t, h.svc.AssignAppealToAdmin(context.Background(), appeal.ID, only))
	require.Equal(t, 1, h.store.workloads[only].ActiveAppeals)

	_, err := h.svc.ReassignAppeal(context.Background(), appeal.ID, "needs a different admin")
	require.Error(t, err)
	assert.True(t, apperrors.IsNoAdminAvailable(err))

	// The previous admin's counter decrement must not survive the
	// aborted transaction.
	assert.Equal(t, 1, h.store.workloads[only].ActiveAppeals)
	stored := h.store.appeals[appeal.ID]
	require.NotNil(t, stored.AssignedAdminID)
	assert.Equal(t, only, *stored.AssignedAdminID)
}

func TestSetAdminAvailabilityTogglesSelection(t *testing.T) {
	h := newAssignmentHarness(t)
	admin := h.seedAdmin(t, true, true, 0)

	require.NoError(t, h.svc.SetAdminAvailability(context.Background(), admin, false))
	assert.False(t, h.store.workloads[admin].Available)

	_, err := h.svc.FindBestAdminForAppeal(context.Background(), domain.CategoryOther, domain.AppealPriorityNormal)
	require.NoError(t, err)
}

func TestFindBestAdminValidatesCategory(t *testing.T) {
	h := newAssignmentHarness(t)
	_, err := h.svc.FindBestAdminForAppeal(context.Background(), "BOGUS", domain.AppealPriorityNormal)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateAdminWorkloadTransitions(t *testing.T) {
	h := newAssignmentHarness(t)
	admin := h.seedAdmin(t, true, true, 0)

	require.NoError(t, h.svc.UpdateAdminWorkload(context.Background(), admin, domain.AppealStatusNew, domain.AppealStatusInProgress))
	assert.Equal(t, 1, h.store.workloads[admin].ActiveAppeals)

	require.NoError(t, h.svc.UpdateAdminWorkload(context.Background(), admin, domain.AppealStatusInProgress, domain.AppealStatusClosed))
	assert.Equal(t, 0, h.store.workloads[admin].ActiveAppeals)

	before := h.store.workloads[admin]
	h.clock.Advance(2 * time.Hour)
	require.NoError(t, h.svc.UpdateAdminWorkload(context.Background(), admin, domain.AppealStatusInProgress, domain.AppealStatusWaitingForAdmin))
	after := h.store.workloads[admin]
	assert.Equal(t, before.ActiveAppeals, after.ActiveAppeals)
	assert.True(t, after.LastActivityAt.After(before.LastActivityAt))
}

func TestGetWorkloadStatsAggregates(t *testing.T) {
	h := newAssignmentHarness(t)
	busy := h.seedAdmin(t, true, true, 4)
	idle := h.seedAdmin(t, true, false, 1)
	h.seedExpertise(t, busy, domain.CategoryScholarship, 3, 9, 12)
	h.seedAppeal(t, domain.CategoryScholarship)

	stats, err := h.svc.GetWorkloadStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAdmins)
	assert.Equal(t, 1, stats.AvailableAdmins)
	assert.Equal(t, 5, stats.TotalActiveAppeals)
	require.NotNil(t, stats.MostLoadedAdminID)
	assert.Equal(t, busy, *stats.MostLoadedAdminID)
	require.NotNil(t, stats.LeastLoadedAdminID)
	assert.Equal(t, idle, *stats.LeastLoadedAdminID)

	var scholarship *CategoryStats
	for i := range stats.Categories {
		if stats.Categories[i].Category == domain.CategoryScholarship {
			scholarship = &stats.Categories[i]
		}
	}
	require.NotNil(t, scholarship)
	assert.Equal(t, 1, scholarship.ActiveAppeals)
	assert.Equal(t, 1, scholarship.AvailableExperts)
	assert.InDelta(t, 3.0, scholarship.AvgExpertiseLevel, 0.001)
}
