package market

import "time"

// Session phase boundaries for the mainland A-share continuous auction.
// The order-flow analyzer segments the day with the same cutoffs.
var (
	MorningOpen    = Clock{9, 30}
	MorningClose   = Clock{11, 30}
	AfternoonOpen  = Clock{13, 0}
	ClosingWindow  = Clock{14, 45}
	AfternoonClose = Clock{15, 0}
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// After reports whether the clock mark falls after t's time of day.
func (c Clock) After(t time.Time) bool {
	h, m := t.Hour(), t.Minute()
	if h != c.Hour {
		return h < c.Hour
	}
	return m < c.Minute
}

// AtOrBefore reports whether the clock mark is at or before t's time of day.
func (c Clock) AtOrBefore(t time.Time) bool {
	return !c.After(t)
}

// Phase describes the current market state.
type Phase string

const (
	PhaseWeekend    Phase = "weekend"
	PhasePreOpen    Phase = "pre-open"
	PhaseMorning    Phase = "morning"
	PhaseLunchBreak Phase = "lunch-break"
	PhaseAfternoon  Phase = "afternoon"
	PhaseClosed     Phase = "closed"
)

// PhaseAt resolves the market phase for a point in time.
func PhaseAt(t time.Time) Phase {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return PhaseWeekend
	}

	switch {
	case MorningOpen.After(t):
		return PhasePreOpen
	case MorningClose.After(t):
		return PhaseMorning
	case AfternoonOpen.After(t):
		return PhaseLunchBreak
	case AfternoonClose.After(t):
		return PhaseAfternoon
	default:
		return PhaseClosed
	}
}

// Trading reports whether continuous trading is open at t.
func Trading(t time.Time) bool {
	p := PhaseAt(t)
	return p == PhaseMorning || p == PhaseAfternoon
}

// TradingDay reports whether t falls on a weekday. Exchange holidays are
// not modeled; the scan simply finds no data on those days.
func TradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// DayKey formats t as the calendar-day cache key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
