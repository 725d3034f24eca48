package frecency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseWeight_TypeOrdering(t *testing.T) {
	// Deliberate navigation must outrank incidental loads.
	assert.Greater(t, BaseWeight(VisitTyped), BaseWeight(VisitLink))
	assert.Greater(t, BaseWeight(VisitBookmark), BaseWeight(VisitLink))
	assert.Greater(t, BaseWeight(VisitLink), BaseWeight(VisitEmbed))
	assert.Greater(t, BaseWeight(VisitLink), BaseWeight(VisitFramedLink))
	assert.Greater(t, BaseWeight(VisitLink), BaseWeight(VisitReload))
}

func TestRecencyDecay_Monotonic(t *testing.T) {
	day := 24 * time.Hour
	ages := []time.Duration{0, 3 * day, 10 * day, 20 * day, 60 * day, 200 * day}

	prev := 2.0
	for _, age := range ages {
		d := RecencyDecay(age)
		assert.LessOrEqual(t, d, prev, "decay must not increase with age %s", age)
		assert.Greater(t, d, 0.0)
		prev = d
	}
}

func TestRecencyDecay_Buckets(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		age      time.Duration
		expected float64
	}{
		{time.Hour, 1.0},
		{5 * day, 0.7},
		{20 * day, 0.5},
		{45 * day, 0.3},
		{365 * day, 0.1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, RecencyDecay(tc.age), "age %s", tc.age)
	}
}

func TestScore_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	visits := []Visit{
		{Type: VisitTyped, At: now.Add(-time.Hour), Weight: 1.0},
		{Type: VisitLink, At: now.Add(-48 * time.Hour), Weight: 1.0},
	}

	first := Score(visits, now)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(visits, now))
	}
}

func TestScore_TypedBeatsEmbed(t *testing.T) {
	now := time.Now()
	typed := []Visit{{Type: VisitTyped, At: now.Add(-time.Hour), Weight: 1.0}}
	embed := []Visit{{Type: VisitEmbed, At: now.Add(-time.Hour), Weight: 1.0}}

	assert.Greater(t, Score(typed, now), Score(embed, now))
}

func TestScore_ErrorVisitsSubtract(t *testing.T) {
	now := time.Now()
	visits := []Visit{
		{Type: VisitLink, At: now.Add(-time.Hour), Weight: 1.0, IsError: true},
	}

	assert.LessOrEqual(t, Score(visits, now), int64(0),
		"an all-error history must not score above zero")
}

func TestScore_MoreVisitsScoreHigher(t *testing.T) {
	now := time.Now()
	one := []Visit{
		{Type: VisitLink, At: now.Add(-time.Hour), Weight: 1.0},
	}
	two := []Visit{
		{Type: VisitLink, At: now.Add(-time.Minute), Weight: 1.0},
		{Type: VisitLink, At: now.Add(-time.Hour), Weight: 1.0},
	}

	assert.Greater(t, Score(two, now), Score(one, now))
}

func TestScore_RecentBeatsOld(t *testing.T) {
	now := time.Now()
	recent := []Visit{{Type: VisitLink, At: now.Add(-time.Hour), Weight: 1.0}}
	old := []Visit{{Type: VisitLink, At: now.Add(-100 * 24 * time.Hour), Weight: 1.0}}

	assert.Greater(t, Score(recent, now), Score(old, now))
}

func TestScore_RedirectWeightReducesContribution(t *testing.T) {
	now := time.Now()
	full := []Visit{{Type: VisitLink, At: now.Add(-time.Hour), Weight: 1.0}}
	redirect := []Visit{{Type: VisitLink, At: now.Add(-time.Hour), Weight: RedirectSourceWeight}}

	assert.Greater(t, Score(full, now), Score(redirect, now))
	assert.Greater(t, Score(redirect, now), int64(0))
}

func TestScore_BoundedSample(t *testing.T) {
	now := time.Now()

	visits := make([]Visit, MaxSampledVisits)
	for i := range visits {
		visits[i] = Visit{Type: VisitLink, At: now.Add(-time.Duration(i) * time.Minute), Weight: 1.0}
	}

	capped := Score(visits, now)

	// Extra older visits beyond the sample must not change the score.
	extended := append(visits, Visit{Type: VisitTyped, At: now.Add(-time.Hour), Weight: 1.0})
	assert.Equal(t, capped, Score(extended, now))
}

func TestScore_FutureVisitClampedToNow(t *testing.T) {
	now := time.Now()
	future := []Visit{{Type: VisitLink, At: now.Add(time.Hour), Weight: 1.0}}
	present := []Visit{{Type: VisitLink, At: now, Weight: 1.0}}

	assert.Equal(t, Score(present, now), Score(future, now))
}

func TestScore_ZeroWeightDefaultsToFull(t *testing.T) {
	now := time.Now()
	explicit := []Visit{{Type: VisitLink, At: now, Weight: 1.0}}
	zero := []Visit{{Type: VisitLink, At: now}}

	assert.Equal(t, Score(explicit, now), Score(zero, now))
}

func TestValidVisitType(t *testing.T) {
	valid := []string{
		"link", "typed", "bookmark", "embed", "redirect_permanent",
		"redirect_temporary", "download", "framed_link", "reload",
	}
	for _, v := range valid {
		require.True(t, ValidVisitType(v), "%s should be valid", v)
	}

	assert.False(t, ValidVisitType("teleport"))
	assert.False(t, ValidVisitType(""))
	assert.False(t, ValidVisitType("TYPED"))
}
