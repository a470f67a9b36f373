package geofence

import (
	"context"
	"testing"
	"time"
)

type fakeClocker struct {
	clockIns  int
	clockOuts int
	open      bool
	fail      error
}

func (f *fakeClocker) ClockIn(_ context.Context, _ int64, _ time.Time) (bool, error) {
	if f.fail != nil {
		return false, f.fail
	}
	f.clockIns++
	if f.open {
		return false, nil
	}
	f.open = true
	return true, nil
}

func (f *fakeClocker) ClockOut(_ context.Context, _ int64, _ time.Time) (bool, error) {
	if f.fail != nil {
		return false, f.fail
	}
	f.clockOuts++
	if !f.open {
		return false, nil
	}
	f.open = false
	return true, nil
}

type fakeNotifier struct {
	events []Event
}

func (f *fakeNotifier) Notify(_ context.Context, _ int64, event Event, _ *Region, _ time.Time) {
	f.events = append(f.events, event)
}

type fakeBus struct {
	published []string
}

func (f *fakeBus) Publish(_ context.Context, _ int64, eventType string, _ any) error {
	f.published = append(f.published, eventType)
	return nil
}

type monitorFixture struct {
	monitor  *Monitor
	kv       *fakeKV
	clocker  *fakeClocker
	notifier *fakeNotifier
	bus      *fakeBus
	now      time.Time
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()

	fix := &monitorFixture{
		// Monday 09:00, well inside the monitoring window.
		now:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		clocker:  &fakeClocker{},
		notifier: &fakeNotifier{},
		bus:      &fakeBus{},
	}
	fix.kv = newFakeKV(func() time.Time { return fix.now })
	fix.monitor = NewMonitor(fix.kv, fix.clocker, fix.notifier, fix.bus, Config{
		Policy:             testPolicy,
		MutationWindow:     60 * time.Second,
		NotificationWindow: 5 * time.Second,
	})
	fix.monitor.now = func() time.Time { return fix.now }
	return fix
}

func (f *monitorFixture) start(t *testing.T) {
	t.Helper()
	res, err := f.monitor.Start(context.Background(), 1, StartRequest{
		Region: &Region{
			ID:            "office",
			Vertices:      unitSquare,
			NotifyOnEnter: true,
			NotifyOnExit:  true,
		},
		Permissions: Permissions{ForegroundLocation: true, BackgroundLocation: true, Notifications: true},
	})
	if err != nil || !res.OK {
		t.Fatalf("Start = (%+v, %v), want ok", res, err)
	}
}

func (f *monitorFixture) deliver(t *testing.T, lat, lon float64) {
	t.Helper()
	err := f.monitor.ProcessBatch(context.Background(), Batch{
		UserID:  1,
		Samples: []Sample{{Latitude: lat, Longitude: lon, Accuracy: 5, Timestamp: f.now}},
	})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
}

func TestMonitorEnterExitCycle(t *testing.T) {
	fix := newMonitorFixture(t)
	fix.start(t)

	// First observation initializes state, no event.
	fix.deliver(t, 5, 5)
	if fix.clocker.clockIns != 0 || len(fix.notifier.events) != 0 {
		t.Fatalf("first observation must not fire anything")
	}

	// Outside -> inside: exactly one clock-in and one enter notification.
	fix.now = fix.now.Add(2 * time.Minute)
	fix.deliver(t, 0.5, 0.5)
	if fix.clocker.clockIns != 1 {
		t.Fatalf("clockIns = %d, want 1", fix.clocker.clockIns)
	}
	if len(fix.notifier.events) != 1 || fix.notifier.events[0] != EventEnter {
		t.Fatalf("notifications = %v, want [enter]", fix.notifier.events)
	}

	// Still inside: nothing new fires.
	fix.now = fix.now.Add(2 * time.Minute)
	fix.deliver(t, 0.6, 0.6)
	if fix.clocker.clockIns != 1 {
		t.Fatalf("repeated inside sample re-fired clock-in")
	}

	// Inside -> outside: exactly one clock-out.
	fix.now = fix.now.Add(2 * time.Minute)
	fix.deliver(t, 5, 5)
	if fix.clocker.clockOuts != 1 {
		t.Fatalf("clockOuts = %d, want 1", fix.clocker.clockOuts)
	}

	wantBus := []string{"geofence_transition", "clock_in_succeeded", "geofence_transition", "clock_out_succeeded"}
	if len(fix.bus.published) != len(wantBus) {
		t.Fatalf("bus events = %v, want %v", fix.bus.published, wantBus)
	}
	for i, name := range wantBus {
		if fix.bus.published[i] != name {
			t.Fatalf("bus events = %v, want %v", fix.bus.published, wantBus)
		}
	}
}

func TestMonitorDebouncesOscillation(t *testing.T) {
	fix := newMonitorFixture(t)
	fix.start(t)

	fix.deliver(t, 5, 5) // initialize outside

	// Rapid enter/exit/enter jitter. Each (kind, event) pair has its own
	// window, so the first enter and the first exit both pass, but the
	// second enter inside the enter window is suppressed.
	fix.now = fix.now.Add(10 * time.Second)
	fix.deliver(t, 0.5, 0.5)
	fix.now = fix.now.Add(10 * time.Second)
	fix.deliver(t, 5, 5)
	fix.now = fix.now.Add(10 * time.Second)
	fix.deliver(t, 0.5, 0.5)

	if fix.clocker.clockIns != 1 {
		t.Fatalf("clockIns = %d, want 1 (second enter within window suppressed)", fix.clocker.clockIns)
	}
	if fix.clocker.clockOuts != 1 {
		t.Fatalf("clockOuts = %d, want 1", fix.clocker.clockOuts)
	}

	// Well past the window, the next enter is allowed through again.
	fix.now = fix.now.Add(2 * time.Minute)
	fix.deliver(t, 5, 5)
	fix.now = fix.now.Add(10 * time.Second)
	fix.deliver(t, 0.5, 0.5)
	if fix.clocker.clockIns != 2 {
		t.Fatalf("clockIns = %d, want 2 after window expired", fix.clocker.clockIns)
	}
}

func TestMonitorSkipsOutsideMonitoringWindow(t *testing.T) {
	fix := newMonitorFixture(t)
	fix.start(t)
	fix.deliver(t, 5, 5)

	// Saturday: gate closed, containment state untouched.
	fix.now = time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	fix.deliver(t, 0.5, 0.5)
	if fix.clocker.clockIns != 0 {
		t.Fatalf("weekend sample fired a clock-in")
	}

	state, err := fix.monitor.state.LoadContainment(context.Background(), 1, "office")
	if err != nil || state != ContainmentOutside {
		t.Fatalf("containment = (%v, %v), want outside preserved across skipped cycle", state, err)
	}
}

func TestMonitorAutoClockOutWindow(t *testing.T) {
	fix := newMonitorFixture(t)
	fix.start(t)
	fix.deliver(t, 5, 5)
	fix.now = fix.now.Add(2 * time.Minute)
	fix.deliver(t, 0.5, 0.5) // clock in
	if !fix.clocker.open {
		t.Fatalf("expected an open session")
	}

	// A batch arriving inside the auto-clockout window force-closes the
	// session even though no exit transition occurred.
	fix.now = time.Date(2026, 3, 2, 17, 2, 0, 0, time.UTC)
	fix.deliver(t, 0.5, 0.5)
	if fix.clocker.open {
		t.Fatalf("auto-clockout window did not close the open session")
	}
}

func TestMonitorEmptyBatchAndPlatformError(t *testing.T) {
	fix := newMonitorFixture(t)
	fix.start(t)
	fix.deliver(t, 0.5, 0.5)

	if err := fix.monitor.ProcessBatch(context.Background(), Batch{UserID: 1}); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}

	err := fix.monitor.ProcessBatch(context.Background(), Batch{UserID: 1, Error: "location services unavailable"})
	if err != ErrPlatformDelivery {
		t.Fatalf("platform error batch returned %v, want ErrPlatformDelivery", err)
	}

	// Neither touched containment state.
	state, err := fix.monitor.state.LoadContainment(context.Background(), 1, "office")
	if err != nil || state != ContainmentInside {
		t.Fatalf("containment = (%v, %v), want inside preserved", state, err)
	}
}

func TestMonitorMutationFailureStillPersistsState(t *testing.T) {
	fix := newMonitorFixture(t)
	fix.start(t)
	fix.deliver(t, 5, 5)

	fix.clocker.fail = context.DeadlineExceeded
	fix.now = fix.now.Add(2 * time.Minute)
	fix.deliver(t, 0.5, 0.5)

	// The location transition happened even though the mutation failed.
	state, err := fix.monitor.state.LoadContainment(context.Background(), 1, "office")
	if err != nil || state != ContainmentInside {
		t.Fatalf("containment = (%v, %v), want inside despite mutation failure", state, err)
	}
	for _, name := range fix.bus.published {
		if name == "clock_in_succeeded" {
			t.Fatalf("success event published for a failed mutation")
		}
	}
}

func TestMonitorConfigMissingAbortsCycle(t *testing.T) {
	fix := newMonitorFixture(t)

	err := fix.monitor.ProcessBatch(context.Background(), Batch{
		UserID:  1,
		Samples: []Sample{{Latitude: 0.5, Longitude: 0.5, Timestamp: fix.now}},
	})
	if err != ErrConfigMissing {
		t.Fatalf("ProcessBatch without config returned %v, want ErrConfigMissing", err)
	}
}

func TestMonitorStartRequiresPermissions(t *testing.T) {
	fix := newMonitorFixture(t)

	res, err := fix.monitor.Start(context.Background(), 1, StartRequest{
		Region:      &Region{ID: "office", Vertices: unitSquare},
		Permissions: Permissions{ForegroundLocation: true, BackgroundLocation: false, Notifications: true},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.OK || res.Message == "" {
		t.Fatalf("Start without background permission = %+v, want non-ok with message", res)
	}
}

func TestMonitorStartRejectsDegenerateRegion(t *testing.T) {
	fix := newMonitorFixture(t)

	res, err := fix.monitor.Start(context.Background(), 1, StartRequest{
		Region:      &Region{ID: "office", Vertices: unitSquare[:2]},
		Permissions: Permissions{ForegroundLocation: true, BackgroundLocation: true, Notifications: true},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.OK {
		t.Fatalf("two-vertex region accepted")
	}
}

func TestMonitorStartWithInitialFix(t *testing.T) {
	fix := newMonitorFixture(t)

	res, err := fix.monitor.Start(context.Background(), 1, StartRequest{
		Region:      &Region{ID: "office", Vertices: unitSquare},
		Permissions: Permissions{ForegroundLocation: true, BackgroundLocation: true, Notifications: true},
		InitialFix:  &Sample{Latitude: 0.5, Longitude: 0.5, Timestamp: fix.now},
	})
	if err != nil || !res.OK {
		t.Fatalf("Start = (%+v, %v)", res, err)
	}

	status, err := fix.monitor.Status(context.Background(), 1)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Active || !status.IsInside {
		t.Fatalf("Status = %+v, want active and inside", status)
	}

	// Seeded state counts as the first observation: walking out later is a
	// real exit, but no enter is fired retroactively.
	if fix.clocker.clockIns != 0 {
		t.Fatalf("initial fix inside the region fired a clock-in")
	}
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	fix := newMonitorFixture(t)
	fix.start(t)

	for i := 0; i < 2; i++ {
		res, err := fix.monitor.Stop(context.Background(), 1)
		if err != nil || !res.OK {
			t.Fatalf("Stop #%d = (%+v, %v), want ok", i+1, res, err)
		}
	}

	status, err := fix.monitor.Status(context.Background(), 1)
	if err != nil || status.Active {
		t.Fatalf("Status after stop = (%+v, %v), want inactive", status, err)
	}
}

func TestMonitorStateSurvivesRestart(t *testing.T) {
	fix := newMonitorFixture(t)
	fix.start(t)
	fix.deliver(t, 5, 5)
	fix.now = fix.now.Add(2 * time.Minute)
	fix.deliver(t, 0.5, 0.5)

	// A new monitor over the same KV picks up where the old one stopped:
	// no process-local state matters between invocations.
	reborn := NewMonitor(fix.kv, fix.clocker, fix.notifier, fix.bus, fix.monitor.cfg)
	reborn.now = fix.monitor.now

	fix.now = fix.now.Add(2 * time.Minute)
	err := reborn.ProcessBatch(context.Background(), Batch{
		UserID:  1,
		Samples: []Sample{{Latitude: 5, Longitude: 5, Timestamp: fix.now}},
	})
	if err != nil {
		t.Fatalf("ProcessBatch after restart: %v", err)
	}
	if fix.clocker.clockOuts != 1 {
		t.Fatalf("clockOuts = %d, want 1 (exit detected against persisted state)", fix.clocker.clockOuts)
	}
}

func TestStateStoreDecodeError(t *testing.T) {
	fix := newMonitorFixture(t)

	if err := fix.kv.Set(context.Background(), keyConfig(1), "{not json", 0); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := fix.monitor.state.LoadRegion(context.Background(), 1)
	if err == nil || err == ErrConfigMissing {
		t.Fatalf("LoadRegion on corrupt config = %v, want decode error", err)
	}
}
