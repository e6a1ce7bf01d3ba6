package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkload(t *testing.T) *AdminWorkload {
	t.Helper()
	w, err := NewAdminWorkload(3, testTime)
	require.NoError(t, err)
	return w
}

func TestNewAdminWorkloadDefaults(t *testing.T) {
	w := newTestWorkload(t)

	assert.Equal(t, 0, w.ActiveAppeals)
	assert.Equal(t, 0, w.TotalAppeals)
	assert.True(t, w.Available)
	assert.Equal(t, testTime, w.LastActivityAt)
	assert.Nil(t, w.LastAssignedAt)

	_, err := NewAdminWorkload(0, testTime)
	require.Error(t, err)
}

func TestAssignAndCompleteCounters(t *testing.T) {
	w := newTestWorkload(t)

	w.AssignAppeal(testTime)
	w.AssignAppeal(testTime)
	assert.Equal(t, 2, w.ActiveAppeals)
	assert.Equal(t, 2, w.TotalAppeals)
	require.NotNil(t, w.LastAssignedAt)

	w.CompleteAppeal(testTime)
	assert.Equal(t, 1, w.ActiveAppeals)
	assert.Equal(t, 2, w.TotalAppeals)

	// Active never drops below zero; total never decreases.
	w.CompleteAppeal(testTime)
	w.CompleteAppeal(testTime)
	assert.Equal(t, 0, w.ActiveAppeals)
	assert.Equal(t, 2, w.TotalAppeals)
	assert.LessOrEqual(t, w.ActiveAppeals, w.TotalAppeals)
}

func TestAssignmentPriorityUnavailableIsMaxInt(t *testing.T) {
	w := newTestWorkload(t)
	w.SetAvailability(false, testTime)

	assert.Equal(t, math.MaxInt, w.AssignmentPriority(testTime))
}

func TestAssignmentPriorityScoring(t *testing.T) {
	now := testTime.Add(48 * time.Hour)

	cases := []struct {
		name     string
		active   int
		activity time.Time
		want     int
	}{
		{"idle admin, recent activity", 0, now.Add(-time.Hour), 0},
		{"loaded admin, recent activity", 3, now.Add(-time.Hour), 250},
		{"loaded admin, middling activity", 3, now.Add(-48 * time.Hour), 300},
		{"idle admin, stale activity", 0, now.Add(-100 * time.Hour), 200},
		{"loaded admin, stale activity", 2, now.Add(-100 * time.Hour), 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorkload(t)
			w.ActiveAppeals = tc.active
			w.LastActivityAt = tc.activity
			assert.Equal(t, tc.want, w.AssignmentPriority(now))
		})
	}
}

func TestAssignmentPriorityClampedAtZero(t *testing.T) {
	w := newTestWorkload(t)
	w.LastActivityAt = testTime

	// 0 active appeals with the recent-activity bonus would go negative.
	assert.Equal(t, 0, w.AssignmentPriority(testTime.Add(time.Hour)))
}

func TestSetAvailabilityTouchesActivity(t *testing.T) {
	w := newTestWorkload(t)
	later := testTime.Add(2 * time.Hour)

	w.SetAvailability(false, later)

	assert.False(t, w.Available)
	assert.Equal(t, later, w.LastActivityAt)
}
