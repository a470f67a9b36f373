package services

import (
	"context"
	"log"
	"time"

	"presensi-backend/internal/geofence"
)

const autoClosePollInterval = 1 * time.Minute

// AutoCloseScheduler force-closes still-open attendance sessions during the
// auto-clockout window at the end of the workday. Location-driven clock-out
// cannot be relied on near closing time, and a user whose phone delivers no
// batch at all would otherwise stay clocked in forever; this sweeper is the
// deterministic backstop. CloseOpenSessions is idempotent, so ticking every
// minute inside the window is harmless.
type AutoCloseScheduler struct {
	attendance *AttendanceService
	policy     geofence.Policy
	loc        *time.Location
	stopChan   chan struct{}
}

func NewAutoCloseScheduler(attendance *AttendanceService, policy geofence.Policy, loc *time.Location) *AutoCloseScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &AutoCloseScheduler{
		attendance: attendance,
		policy:     policy,
		loc:        loc,
		stopChan:   make(chan struct{}),
	}
}

func (s *AutoCloseScheduler) Start() {
	if s.attendance == nil {
		return
	}
	go s.loop()
	log.Printf("Auto-clockout scheduler started")
}

func (s *AutoCloseScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *AutoCloseScheduler) loop() {
	ticker := time.NewTicker(autoClosePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick(time.Now().In(s.loc))
		}
	}
}

func (s *AutoCloseScheduler) tick(now time.Time) {
	if !s.policy.IsAutoClockOutWindow(now) {
		return
	}

	closed, err := s.attendance.CloseOpenSessions(context.Background(), now)
	if err != nil {
		log.Printf("auto-clockout: sweep failed: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("auto-clockout: closed %d open sessions", closed)
	}
}
