package models

import "time"

// Clock sources record how a punch happened. The geofence pipeline, the
// manual buttons in the app, and the end-of-day sweeper all share the same
// attendance rows.
const (
	ClockSourceGeofence = "geofence"
	ClockSourceManual   = "manual"
	ClockSourceAuto     = "auto"
)

const DateLayout = "2006-01-02"

// Attendance is one user's clock-in/out record for a work day. At most one
// row exists per (user, day); a nil ClockOut means the session is still open.
type Attendance struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	WorkDate       string     `json:"work_date"` // YYYY-MM-DD
	ClockIn        time.Time  `json:"clock_in"`
	ClockOut       *time.Time `json:"clock_out"`
	ClockInSource  string     `json:"clock_in_source"`
	ClockOutSource *string    `json:"clock_out_source"`
	CreatedAt      time.Time  `json:"created_at"`
}

type AttendanceListQuery struct {
	From   string
	To     string
	Limit  int
	Offset int
}
