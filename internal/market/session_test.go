package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(weekday time.Weekday, hour, minute int) time.Time {
	// 2026-08-24 is a Monday
	base := time.Date(2026, 8, 24, 0, 0, 0, 0, time.Local)
	return base.AddDate(0, 0, int(weekday-time.Monday)).
		Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestPhaseAt(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want Phase
	}{
		{"saturday", at(time.Saturday, 10, 0), PhaseWeekend},
		{"before open", at(time.Monday, 9, 0), PhasePreOpen},
		{"morning open", at(time.Monday, 9, 30), PhaseMorning},
		{"late morning", at(time.Tuesday, 11, 29), PhaseMorning},
		{"lunch", at(time.Wednesday, 12, 0), PhaseLunchBreak},
		{"afternoon open", at(time.Thursday, 13, 0), PhaseAfternoon},
		{"closing window", at(time.Friday, 14, 50), PhaseAfternoon},
		{"after close", at(time.Friday, 15, 0), PhaseClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhaseAt(tt.t))
		})
	}
}

func TestTrading(t *testing.T) {
	assert.True(t, Trading(at(time.Monday, 10, 0)))
	assert.True(t, Trading(at(time.Monday, 14, 59)))
	assert.False(t, Trading(at(time.Monday, 12, 30)))
	assert.False(t, Trading(at(time.Sunday, 10, 0)))
}

func TestClockBoundaries(t *testing.T) {
	assert.True(t, MorningClose.After(at(time.Monday, 11, 29)))
	assert.False(t, MorningClose.After(at(time.Monday, 11, 30)))
	assert.True(t, AfternoonOpen.AtOrBefore(at(time.Monday, 13, 0)))
	assert.False(t, AfternoonOpen.AtOrBefore(at(time.Monday, 12, 59)))
}

func TestTradingDay(t *testing.T) {
	assert.True(t, TradingDay(at(time.Monday, 10, 0)))
	assert.True(t, TradingDay(at(time.Friday, 10, 0)))
	assert.False(t, TradingDay(at(time.Saturday, 10, 0)))
	assert.False(t, TradingDay(at(time.Sunday, 10, 0)))
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2026-08-24", DayKey(at(time.Monday, 10, 0)))
}
