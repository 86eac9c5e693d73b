package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestIsAvailable_Active(t *testing.T) {
	tech := Technician{Active: AvailabilityActive}
	assert.True(t, tech.IsAvailable(day(2025, 1, 1, 9)))
	assert.True(t, tech.IsAvailable(time.Time{}))
}

func TestIsAvailable_VacationRange(t *testing.T) {
	tech := Technician{
		Active:        AvailabilityVacation,
		VacationStart: ptr(day(2025, 8, 4, 15)),
		VacationEnd:   ptr(day(2025, 8, 15, 9)),
	}

	// every day of the range is blocked, regardless of the time of day
	for d := day(2025, 8, 4, 0); !d.After(day(2025, 8, 15, 0)); d = d.AddDate(0, 0, 1) {
		assert.False(t, tech.IsAvailable(d), "should be unavailable on %s", d.Format("2006-01-02"))
		assert.False(t, tech.IsAvailable(d.Add(23*time.Hour+59*time.Minute)), "late on %s", d.Format("2006-01-02"))
	}

	assert.True(t, tech.IsAvailable(day(2025, 8, 3, 23)), "day before the range")
	assert.True(t, tech.IsAvailable(day(2025, 8, 16, 0)), "day after the range")
	assert.Equal(t, AvailabilityVacation, tech.UnavailableReason(day(2025, 8, 10, 12)))
	assert.Equal(t, "", tech.UnavailableReason(day(2025, 8, 16, 12)))
}

func TestIsAvailable_SickLeaveRange(t *testing.T) {
	tech := Technician{
		Active:         AvailabilitySickLeave,
		SickLeaveStart: ptr(day(2025, 3, 10, 0)),
		SickLeaveEnd:   ptr(day(2025, 3, 10, 0)),
	}

	assert.False(t, tech.IsAvailable(day(2025, 3, 10, 18)), "single-day leave covers the whole day")
	assert.True(t, tech.IsAvailable(day(2025, 3, 9, 18)))
	assert.True(t, tech.IsAvailable(day(2025, 3, 11, 0)))
}

func TestIsAvailable_IncompleteOrInvertedRanges(t *testing.T) {
	tests := []struct {
		name string
		tech Technician
	}{
		{
			name: "vacation without end",
			tech: Technician{Active: AvailabilityVacation, VacationStart: ptr(day(2025, 1, 1, 0))},
		},
		{
			name: "vacation without start",
			tech: Technician{Active: AvailabilityVacation, VacationEnd: ptr(day(2025, 1, 31, 0))},
		},
		{
			name: "sick leave with zero dates",
			tech: Technician{Active: AvailabilitySickLeave, SickLeaveStart: &time.Time{}, SickLeaveEnd: &time.Time{}},
		},
		{
			name: "inverted vacation range",
			tech: Technician{
				Active:        AvailabilityVacation,
				VacationStart: ptr(day(2025, 1, 31, 0)),
				VacationEnd:   ptr(day(2025, 1, 1, 0)),
			},
		},
		{
			name: "vacation range ignored when active",
			tech: Technician{
				Active:        AvailabilityActive,
				VacationStart: ptr(day(2025, 1, 1, 0)),
				VacationEnd:   ptr(day(2025, 1, 31, 0)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.tech.IsAvailable(day(2025, 1, 15, 12)))
		})
	}
}

func TestIsAvailable_Inactive(t *testing.T) {
	termination := day(2025, 6, 30, 17)
	tech := Technician{Active: AvailabilityInactive, TerminationDate: ptr(termination)}

	for offset := -3; offset <= 3; offset++ {
		target := StartOfDay(termination).AddDate(0, 0, offset).Add(10 * time.Hour)
		assert.Equal(t, offset < 0, tech.IsAvailable(target), "offset %d", offset)
	}

	permanentlyGone := Technician{Active: AvailabilityInactive}
	assert.False(t, permanentlyGone.IsAvailable(day(1999, 1, 1, 0)))
	assert.Equal(t, AvailabilityInactive, permanentlyGone.UnavailableReason(day(1999, 1, 1, 0)))
}

func TestStartAndEndOfDay(t *testing.T) {
	ts := time.Date(2025, 2, 28, 13, 45, 10, 5, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
	assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 999999999, time.UTC), EndOfDay(ts))
}

func TestIsAvailable_MixedZones(t *testing.T) {
	lisbonSummer := time.FixedZone("WEST", 60*60)
	newYork := time.FixedZone("EDT", -4*60*60)

	// stored as local midnight in WEST, which reads back as the previous
	// evening in UTC
	localMidnight := time.Date(2025, 8, 10, 0, 0, 0, 0, lisbonSummer).UTC()

	tests := []struct {
		name      string
		tech      Technician
		target    time.Time
		available bool
	}{
		{
			name:      "termination day in UTC, target later the same day with offset",
			tech:      Technician{Active: AvailabilityInactive, TerminationDate: ptr(day(2025, 8, 10, 0))},
			target:    time.Date(2025, 8, 10, 12, 0, 0, 0, lisbonSummer),
			available: false,
		},
		{
			name:      "termination read back as UTC previous evening",
			tech:      Technician{Active: AvailabilityInactive, TerminationDate: ptr(localMidnight)},
			target:    time.Date(2025, 8, 9, 18, 0, 0, 0, lisbonSummer),
			available: true,
		},
		{
			name: "first vacation day with offset target",
			tech: Technician{
				Active:        AvailabilityVacation,
				VacationStart: ptr(day(2025, 8, 10, 0)),
				VacationEnd:   ptr(day(2025, 8, 15, 0)),
			},
			target:    time.Date(2025, 8, 10, 9, 0, 0, 0, lisbonSummer),
			available: false,
		},
		{
			name: "sick leave ending early UTC is over the evening before in a western zone",
			tech: Technician{
				Active:         AvailabilitySickLeave,
				SickLeaveStart: ptr(day(2025, 8, 1, 12)),
				SickLeaveEnd:   ptr(day(2025, 8, 5, 2)),
			},
			target:    time.Date(2025, 8, 5, 10, 0, 0, 0, newYork),
			available: true,
		},
		{
			name: "vacation stored at local midnight, target on that local day",
			tech: Technician{
				Active:        AvailabilityVacation,
				VacationStart: ptr(localMidnight),
				VacationEnd:   ptr(localMidnight),
			},
			target:    time.Date(2025, 8, 10, 23, 0, 0, 0, lisbonSummer),
			available: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.available, tt.tech.IsAvailable(tt.target))
		})
	}
}
