package models

import "time"

// IsAvailable reports whether the technician can be assigned on the calendar
// day of target. Time of day is ignored on every side of the comparison and
// stored dates are read in target's location before they are truncated.
// Missing or inverted date ranges never make a technician unavailable,
// except for Inactive without a termination date.
func (t *Technician) IsAvailable(target time.Time) bool {
	loc := target.Location()
	day := StartOfDay(target)

	switch t.Active {
	case AvailabilityInactive:
		if !isSet(t.TerminationDate) {
			return false
		}
		return day.Before(StartOfDay(t.TerminationDate.In(loc)))
	case AvailabilityVacation:
		return !withinDays(day, t.VacationStart, t.VacationEnd)
	case AvailabilitySickLeave:
		return !withinDays(day, t.SickLeaveStart, t.SickLeaveEnd)
	default:
		return true
	}
}

// UnavailableReason returns the availability status that blocks an
// assignment on target, or an empty string when the technician is available.
func (t *Technician) UnavailableReason(target time.Time) string {
	if t.IsAvailable(target) {
		return ""
	}
	return t.Active
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of the calendar day of t
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// withinDays reports whether day falls inside [start, end], both read in
// day's location
func withinDays(day time.Time, start, end *time.Time) bool {
	if !isSet(start) || !isSet(end) {
		return false
	}
	loc := day.Location()
	from := StartOfDay(start.In(loc))
	to := EndOfDay(end.In(loc))
	if to.Before(from) {
		return false
	}
	return !day.Before(from) && !day.After(to)
}

func isSet(t *time.Time) bool {
	return t != nil && !t.IsZero()
}
