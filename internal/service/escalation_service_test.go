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
)

func newEscalationHarness(t *testing.T, threshold time.Duration) (*EscalationService, *memStore, *captureDispatcher, *clock.Fixed) {
	t.Helper()
	store, uow := newMemUnitOfWork()
	dispatcher := &captureDispatcher{}
	fixed := clock.NewFixed(rankTime)
	svc := NewEscalationService(EscalationDependencies{
		UnitOfWork: uow,
		Dispatcher: dispatcher,
		Clock:      fixed,
		Threshold:  threshold,
	})
	return svc, store, dispatcher, fixed
}

func seedAgedAppeal(t *testing.T, store *memStore, age time.Duration, status domain.AppealStatus) *domain.Appeal {
	t.Helper()
	created := rankTime.Add(-age)
	appeal, err := domain.NewAppeal(7, "Sam", domain.CategoryComplaint, "Aging appeal", "this body is long enough to validate", created)
	require.NoError(t, err)
	appeal.Status = status
	require.NoError(t, (&memAppealRepo{store}).Create(context.Background(), appeal))
	return appeal
}

func TestEscalateOverdueAppealsEscalatesOldOnes(t *testing.T) {
	svc, store, dispatcher, _ := newEscalationHarness(t, 72*time.Hour)
	overdue := seedAgedAppeal(t, store, 80*time.Hour, domain.AppealStatusNew)
	fresh := seedAgedAppeal(t, store, 10*time.Hour, domain.AppealStatusInProgress)

	count, err := svc.EscalateOverdueAppeals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	escalated := store.appeals[overdue.ID]
	assert.Equal(t, domain.AppealStatusEscalated, escalated.Status)
	assert.Equal(t, domain.AppealPriorityHigh, escalated.Priority)

	untouched := store.appeals[fresh.ID]
	assert.Equal(t, domain.AppealStatusInProgress, untouched.Status)

	require.Len(t, store.history, 1)
	assert.Equal(t, domain.ChangeTypeEscalation, store.history[0].ChangeType)
	require.Len(t, dispatcher.byType(events.EventAppealEscalated), 1)
}

func TestEscalateOverdueAppealsSkipsClosedAndEscalated(t *testing.T) {
	svc, store, _, _ := newEscalationHarness(t, 72*time.Hour)
	seedAgedAppeal(t, store, 100*time.Hour, domain.AppealStatusClosed)
	seedAgedAppeal(t, store, 100*time.Hour, domain.AppealStatusEscalated)

	count, err := svc.EscalateOverdueAppeals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, store.history)
}

func TestEscalateOverdueAppealsForcesHighFromUrgent(t *testing.T) {
	svc, store, _, _ := newEscalationHarness(t, 24*time.Hour)
	urgent := seedAgedAppeal(t, store, 30*time.Hour, domain.AppealStatusWaitingForAdmin)
	stored := store.appeals[urgent.ID]
	stored.Priority = domain.AppealPriorityUrgent
	store.appeals[urgent.ID] = stored

	count, err := svc.EscalateOverdueAppeals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, domain.AppealPriorityHigh, store.appeals[urgent.ID].Priority)
}

func TestEscalateOverdueAppealsEachInOwnTransaction(t *testing.T) {
	svc, store, _, _ := newEscalationHarness(t, 72*time.Hour)
	first := seedAgedAppeal(t, store, 90*time.Hour, domain.AppealStatusNew)
	second := seedAgedAppeal(t, store, 85*time.Hour, domain.AppealStatusWaitingForStudent)

	count, err := svc.EscalateOverdueAppeals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, domain.AppealStatusEscalated, store.appeals[first.ID].Status)
	assert.Equal(t, domain.AppealStatusEscalated, store.appeals[second.ID].Status)
	assert.Len(t, store.history, 2)
}

func TestEscalateOverdueAppealsHonorsCancellation(t *testing.T) {
	svc, store, _, _ := newEscalationHarness(t, 72*time.Hour)
	seedAgedAppeal(t, store, 90*time.Hour, domain.AppealStatusNew)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The scan itself runs against the fake store and ignores ctx, so
	// cancellation surfaces in the per-appeal loop.
	count, err := svc.EscalateOverdueAppeals(ctx)
	require.Error(t, err)
	assert.Zero(t, count)
}
