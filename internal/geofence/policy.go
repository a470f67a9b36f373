package geofence

import "time"

// Policy decides when automatic attendance monitoring is active. Every method
// is a pure, total function of the supplied wall-clock time, evaluated in
// that time's location.
type Policy struct {
	WorkStartHour      int
	WorkEndHour        int
	AutoClockOutWindow time.Duration
}

func (p Policy) IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsWithinWorkHours uses a half-open interval [start, end): the end hour
// itself is already outside work hours.
func (p Policy) IsWithinWorkHours(t time.Time) bool {
	h := t.Hour()
	return h >= p.WorkStartHour && h < p.WorkEndHour
}

// ShouldMonitor gates whole processing cycles: outside of it no containment
// decision is made and no state is touched.
func (p Policy) ShouldMonitor(t time.Time) bool {
	return p.IsWeekday(t) && p.IsWithinWorkHours(t)
}

// IsAutoClockOutWindow identifies the short slot right after the workday ends
// during which any still-open attendance session is force-closed regardless
// of geofence transitions. Location-driven clock-out is unreliable near
// closing time (device idling, GPS drift), so the explicit window is a
// deterministic backstop.
func (p Policy) IsAutoClockOutWindow(t time.Time) bool {
	if !p.IsWeekday(t) {
		return false
	}
	end := time.Date(t.Year(), t.Month(), t.Day(), p.WorkEndHour, 0, 0, 0, t.Location())
	return !t.Before(end) && t.Before(end.Add(p.AutoClockOutWindow))
}
