package services

import (
	"math"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/utils"
)

const (
	MinTendency = 0
	MaxTendency = 10
)

// Clock supplies the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// Progress is the remaining share of a battery lifetime window.
type Progress struct {
	Percent int
	Start   time.Time
	End     time.Time
}

// ComputeProgress returns the remaining percent of the window [start, end] at
// now. It reports false unless both instants resolve and end is strictly after
// start.
func ComputeProgress(start, end utils.Instant, now time.Time) (Progress, bool) {
	if !start.Valid() || !end.Valid() {
		return Progress{}, false
	}
	s, e := start.Time, end.Time
	if !e.After(s) {
		return Progress{}, false
	}

	clamped := now
	if clamped.Before(s) {
		clamped = s
	}
	if clamped.After(e) {
		clamped = e
	}

	// time.Duration saturates near 292 years, so work in float seconds.
	used := (epochSeconds(clamped) - epochSeconds(s)) / (epochSeconds(e) - epochSeconds(s))
	percent := int(math.Round((1 - used) * 100))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return Progress{Percent: percent, Start: s, End: e}, true
}

func epochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// NormalizeTendency maps any input onto [0,10]; NaN and infinities become 0.
func NormalizeTendency(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	return math.Max(MinTendency, math.Min(MaxTendency, t))
}

// ProjectDueDate computes the due date for a window that started at last.
// Tendency interpolates linearly between last+2 months (tendency 0) and
// last+1 month (tendency 10); both bounds are taken at midnight in loc.
// Month arithmetic clamps to the last day of the target month.
func ProjectDueDate(last utils.Instant, tendency float64, loc *time.Location) (int64, bool) {
	if !last.Valid() {
		return 0, false
	}
	if loc == nil {
		loc = time.Local
	}
	norm := NormalizeTendency(tendency) / MaxTendency

	start := last.Time.In(loc)
	base1 := utils.StartOfDay(utils.AddMonthsClamped(start, 1))
	base2 := utils.StartOfDay(utils.AddMonthsClamped(start, 2))

	span := base2.Sub(base1)
	target := base2.Add(-time.Duration(norm * float64(span)))
	return target.Unix(), true
}
