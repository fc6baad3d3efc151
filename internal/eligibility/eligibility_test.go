package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

// baseline is eligible on evalDay unless a test changes a field.
var evalDay = day(2024, time.June, 1)

func baseline() Input {
	return Input{
		BirthDate:      day(1990, time.March, 15),
		WeightKg:       70,
		MarkedEligible: true,
	}
}

func TestEvaluate_AgeBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		birth    time.Time
		eligible bool
	}{
		{"17 years old", day(2006, time.June, 2), false},
		{"turns 18 today", day(2006, time.June, 1), true},
		{"65 years old", day(1958, time.June, 2), true},
		{"turns 66 today", day(1958, time.June, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseline()
			in.BirthDate = tt.birth
			res := Evaluate(in, evalDay)
			assert.Equal(t, tt.eligible, res.Eligible)
			if !tt.eligible {
				assert.Equal(t, []Check{CheckAge}, res.FailedChecks)
			}
		})
	}
}

func TestEvaluate_BirthdayExample(t *testing.T) {
	in := baseline()
	in.BirthDate = day(2006, time.January, 1)

	assert.True(t, IsEligible(in, day(2024, time.January, 2)), "18 years and one day")
	res := Evaluate(in, day(2023, time.December, 31))
	assert.False(t, res.Eligible)
	assert.Equal(t, 17, res.Age)
	assert.Equal(t, "age must be between 18 and 65 years (currently 17)", res.Reason)
}

func TestEvaluate_WeightBoundary(t *testing.T) {
	in := baseline()
	in.WeightKg = 49.9
	res := Evaluate(in, evalDay)
	assert.False(t, res.Eligible)
	assert.Equal(t, []Check{CheckWeight}, res.FailedChecks)

	in.WeightKg = 50
	assert.True(t, IsEligible(in, evalDay))
}

func TestEvaluate_DonationInterval(t *testing.T) {
	t.Run("absent last donation passes", func(t *testing.T) {
		res := Evaluate(baseline(), evalDay)
		require.True(t, res.Eligible)
		assert.Nil(t, res.DaysSinceLastDonation)
		assert.Equal(t, ReasonEligible, res.Reason)
	})

	t.Run("55 days ago is too recent", func(t *testing.T) {
		in := baseline()
		in.LastDonation = ptr(evalDay.AddDate(0, 0, -55))
		res := Evaluate(in, evalDay)
		assert.False(t, res.Eligible)
		require.NotNil(t, res.DaysSinceLastDonation)
		assert.Equal(t, 55, *res.DaysSinceLastDonation)
		assert.Equal(t, 1, res.DaysUntilEligible)
		assert.Equal(t, "must wait 1 more days since the last donation", res.Reason)
	})

	t.Run("56 days ago passes", func(t *testing.T) {
		in := baseline()
		in.LastDonation = ptr(evalDay.AddDate(0, 0, -56))
		res := Evaluate(in, evalDay)
		assert.True(t, res.Eligible)
		assert.Zero(t, res.DaysUntilEligible)
	})

	t.Run("time of day does not shift the count", func(t *testing.T) {
		in := baseline()
		in.LastDonation = ptr(evalDay.AddDate(0, 0, -56))
		assert.True(t, IsEligible(in, evalDay.Add(23*time.Hour+59*time.Minute)))
	})
}

func TestEvaluate_ManualFlagOnlyForcesIneligible(t *testing.T) {
	t.Run("false flag blocks an otherwise eligible donor", func(t *testing.T) {
		in := baseline()
		in.MarkedEligible = false
		res := Evaluate(in, evalDay)
		assert.False(t, res.Eligible)
		assert.Equal(t, []Check{CheckManualFlag}, res.FailedChecks)
		assert.Equal(t, "donor is marked as ineligible", res.Reason)
	})

	t.Run("true flag never rescues a failing rule", func(t *testing.T) {
		in := baseline()
		in.MarkedEligible = true
		in.WeightKg = 45
		assert.False(t, IsEligible(in, evalDay))
	})
}

func TestEvaluate_ReportsEveryFailureInOrder(t *testing.T) {
	in := Input{
		BirthDate:      day(2010, time.January, 1),
		WeightKg:       45,
		LastDonation:   ptr(evalDay.AddDate(0, 0, -10)),
		MarkedEligible: false,
	}
	res := Evaluate(in, evalDay)

	assert.False(t, res.Eligible)
	assert.Equal(t, []Check{CheckAge, CheckWeight, CheckInterval, CheckManualFlag}, res.FailedChecks)
	assert.Len(t, res.Reasons, 4)
	assert.Equal(t, res.Reasons[0], res.Reason)
	assert.Equal(t, 46, res.DaysUntilEligible)
	assert.Equal(t, evalDay, res.EvaluatedAt)
}
