package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"presensi-backend/internal/geofence"
)

func TestClockMutationsFailClosedOnBadIdentity(t *testing.T) {
	// No repo or cache is wired: the identity check must reject the call
	// before anything downstream is touched.
	svc := NewAttendanceService(nil, nil, nil, nil)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		call   func() (bool, error)
	}{
		{"clock in zero", func() (bool, error) { return svc.ClockIn(context.Background(), 0, at) }},
		{"clock in negative", func() (bool, error) { return svc.ClockIn(context.Background(), -7, at) }},
		{"clock out zero", func() (bool, error) { return svc.ClockOut(context.Background(), 0, at) }},
		{"manual clock in zero", func() (bool, error) { return svc.ManualClockIn(context.Background(), 0, at) }},
		{"manual clock out negative", func() (bool, error) { return svc.ManualClockOut(context.Background(), -1, at) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := tt.call()
			if changed {
				t.Errorf("expected no mutation for invalid identity")
			}
			if !errors.Is(err, geofence.ErrInvalidIdentity) {
				t.Errorf("expected ErrInvalidIdentity, got %v", err)
			}
		})
	}
}

func TestWorkDateUsesServiceTimezone(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}
	svc := NewAttendanceService(nil, nil, nil, jakarta)

	// 23:30 UTC on March 2 is already March 3 in Jakarta (UTC+7).
	at := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	if got := svc.workDate(at); got != "2026-03-03" {
		t.Errorf("workDate = %q, want 2026-03-03", got)
	}
}

func TestDailyViewKey(t *testing.T) {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if got := dailyViewKey("budi", day); got != "attendance:view:budi:2026-03-02" {
		t.Errorf("dailyViewKey = %q", got)
	}
}
