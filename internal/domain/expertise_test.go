package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExpertise(t *testing.T) *AdminCategoryExpertise {
	t.Helper()
	e, err := NewAdminCategoryExpertise(3, CategoryScholarship, 1, testTime)
	require.NoError(t, err)
	return e
}

func TestNewExpertiseValidation(t *testing.T) {
	_, err := NewAdminCategoryExpertise(0, CategoryScholarship, 1, testTime)
	require.Error(t, err)

	_, err = NewAdminCategoryExpertise(3, AppealCategory("BOGUS"), 1, testTime)
	require.Error(t, err)

	for _, level := range []int{0, 6, -1} {
		_, err = NewAdminCategoryExpertise(3, CategoryScholarship, level, testTime)
		require.Error(t, err, "level %d", level)
	}
}

func TestSetExperienceLevelOverrideMayDecrease(t *testing.T) {
	e := newTestExpertise(t)
	require.NoError(t, e.SetExperienceLevel(5, testTime))
	assert.Equal(t, 5, e.ExperienceLevel)

	require.NoError(t, e.SetExperienceLevel(2, testTime))
	assert.Equal(t, 2, e.ExperienceLevel)

	require.Error(t, e.SetExperienceLevel(0, testTime))
	require.Error(t, e.SetExperienceLevel(6, testTime))
}

func TestRecordResolutionUpgradesLevel(t *testing.T) {
	e := newTestExpertise(t)

	// 20 consecutive successes: 100% rate, total 20 reaches tier 5.
	for i := 0; i < 20; i++ {
		e.RecordResolution(true, testTime.Add(time.Duration(i)*time.Hour))
	}

	assert.Equal(t, 5, e.ExperienceLevel)
	assert.Equal(t, 20, e.TotalResolutions)
	assert.Equal(t, 20, e.SuccessfulResolutions)
}

func TestRecordResolutionNeverDecreasesLevel(t *testing.T) {
	e := newTestExpertise(t)
	require.NoError(t, e.SetExperienceLevel(4, testTime))

	// A run of failures drops the success rate but never the level.
	for i := 0; i < 30; i++ {
		e.RecordResolution(false, testTime)
	}

	assert.Equal(t, 4, e.ExperienceLevel)
	assert.Equal(t, 0.0, e.SuccessRate())
}

func TestSuccessRateZeroWithoutResolutions(t *testing.T) {
	e := newTestExpertise(t)
	assert.Equal(t, 0.0, e.SuccessRate())
}

func TestExpertiseScoreMonotonicInLevel(t *testing.T) {
	prev := -1
	for level := MinExperienceLevel; level <= MaxExperienceLevel; level++ {
		e := newTestExpertise(t)
		require.NoError(t, e.SetExperienceLevel(level, testTime))
		e.SuccessfulResolutions = 8
		e.TotalResolutions = 10

		score := e.ExpertiseScore()
		assert.Greater(t, score, prev, "level %d", level)
		prev = score
	}
}

func TestExpertiseScoreMonotonicInSuccessRate(t *testing.T) {
	prev := -1
	for successes := 0; successes <= 10; successes++ {
		e := newTestExpertise(t)
		e.SuccessfulResolutions = successes
		e.TotalResolutions = 10

		score := e.ExpertiseScore()
		assert.GreaterOrEqual(t, score, prev, "successes %d", successes)
		prev = score
	}
}

func TestExpertiseScoreVolumeCapped(t *testing.T) {
	e := newTestExpertise(t)
	e.SuccessfulResolutions = 10
	e.TotalResolutions = 10
	capped := e.ExpertiseScore()

	e.SuccessfulResolutions = 100
	e.TotalResolutions = 100
	assert.Equal(t, capped, e.ExpertiseScore())
}
