package geofence

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Clocker issues idempotent attendance mutations. The boolean result reports
// whether a row actually changed, so callers can fire success events only
// when something happened. Implementations must tolerate duplicate calls for
// an already-open or already-closed day.
type Clocker interface {
	ClockIn(ctx context.Context, userID int64, at time.Time) (bool, error)
	ClockOut(ctx context.Context, userID int64, at time.Time) (bool, error)
}

// Notifier schedules a user-facing alert for a transition. Delivery is not
// correctness-critical to attendance tracking; implementations log and
// swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, userID int64, event Event, region *Region, at time.Time)
}

// Publisher fans monitoring events out to subscribed clients. It replaces the
// single mutable callback slots of the original design with an injected bus,
// so multiple sessions and tests run in isolation.
type Publisher interface {
	Publish(ctx context.Context, userID int64, eventType string, payload any) error
}

// Batch is one background delivery of location fixes, carried over the work
// queue. A non-empty Error means the platform itself failed to produce fixes.
type Batch struct {
	ID         uuid.UUID `json:"id"`
	UserID     int64     `json:"user_id"`
	Samples    []Sample  `json:"samples"`
	Error      string    `json:"error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Permissions are the device grants reported by the client when monitoring
// starts. The permission UX itself is the app's problem; the server only
// refuses to monitor without them.
type Permissions struct {
	ForegroundLocation bool `json:"foreground_location"`
	BackgroundLocation bool `json:"background_location"`
	Notifications      bool `json:"notifications"`
}

type StartRequest struct {
	Region      *Region     `json:"region,omitempty"`
	Permissions Permissions `json:"permissions"`
	// InitialFix seeds the containment state so the first batch diffs
	// against a real observation instead of Unknown.
	InitialFix *Sample `json:"initial_fix,omitempty"`
}

type StartResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Status struct {
	Active            bool    `json:"active"`
	IsInside          bool    `json:"is_inside"`
	LastKnownLocation *Sample `json:"last_known_location,omitempty"`
}

type Config struct {
	Policy             Policy
	MutationWindow     time.Duration
	NotificationWindow time.Duration
	// DefaultRegion is used when a start request carries no region of its
	// own, typically the office polygon from config/office.yaml.
	DefaultRegion *Region
	// Location is the timezone policy decisions are evaluated in. Nil
	// means UTC.
	Location *time.Location
}

// Monitor owns the geofence monitoring lifecycle and runs one processing
// cycle per delivered batch. A cycle is a strictly ordered pipeline: the
// policy gate runs before containment, containment before transition
// detection, and debounce before any mutation or notification. Later steps
// depend on earlier results.
type Monitor struct {
	state    *StateStore
	debounce *Debounce
	clocker  Clocker
	notifier Notifier
	bus      Publisher
	cfg      Config
	now      func() time.Time
}

func NewMonitor(kv KV, clocker Clocker, notifier Notifier, bus Publisher, cfg Config) *Monitor {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Monitor{
		state:    NewStateStore(kv),
		debounce: NewDebounce(kv),
		clocker:  clocker,
		notifier: notifier,
		bus:      bus,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().In(loc) },
	}
}

// Start persists the active region config and begins a monitoring session.
// Permission refusals come back as a non-ok result with an actionable
// message rather than an error: the caller shows them, nothing retries.
func (m *Monitor) Start(ctx context.Context, userID int64, req StartRequest) (StartResult, error) {
	if !req.Permissions.ForegroundLocation || !req.Permissions.BackgroundLocation {
		log.Printf("geofence: start refused for user %d: %v (location)", userID, ErrPermissionDenied)
		return StartResult{OK: false, Message: "Location permission is required. Enable \"Allow all the time\" in system settings."}, nil
	}
	if !req.Permissions.Notifications {
		log.Printf("geofence: start refused for user %d: %v (notifications)", userID, ErrPermissionDenied)
		return StartResult{OK: false, Message: "Notification permission is required. Enable notifications in system settings."}, nil
	}

	region := req.Region
	if region == nil {
		region = m.cfg.DefaultRegion
	}
	if region == nil {
		return StartResult{OK: false, Message: "No geofence region configured."}, nil
	}
	if err := region.Validate(); err != nil {
		return StartResult{OK: false, Message: err.Error()}, nil
	}

	if err := m.state.SaveRegion(ctx, userID, region); err != nil {
		return StartResult{}, err
	}

	if req.InitialFix != nil {
		inside := Contains(req.InitialFix.Point(), region.Vertices)
		if err := m.state.SaveContainment(ctx, userID, region.ID, inside); err != nil {
			return StartResult{}, err
		}
		if err := m.state.SaveLastFix(ctx, userID, *req.InitialFix); err != nil {
			log.Printf("geofence: failed to persist initial fix for user %d: %v", userID, err)
		}
	}

	log.Printf("geofence: monitoring started for user %d (region %s)", userID, region.ID)
	return StartResult{OK: true}, nil
}

// Stop halts monitoring and discards all persisted state for the session.
// Stopping with nothing active is a successful no-op; stop may be called
// redundantly at any time, including mid-cycle.
func (m *Monitor) Stop(ctx context.Context, userID int64) (StartResult, error) {
	regionID := ""
	if region, err := m.state.LoadRegion(ctx, userID); err == nil {
		regionID = region.ID
	}
	if err := m.state.Clear(ctx, userID, regionID); err != nil {
		return StartResult{}, err
	}
	log.Printf("geofence: monitoring stopped for user %d", userID)
	return StartResult{OK: true}, nil
}

func (m *Monitor) Status(ctx context.Context, userID int64) (Status, error) {
	region, err := m.state.LoadRegion(ctx, userID)
	if err != nil {
		if err == ErrConfigMissing {
			return Status{Active: false}, nil
		}
		return Status{}, err
	}

	containment, err := m.state.LoadContainment(ctx, userID, region.ID)
	if err != nil {
		return Status{}, err
	}
	lastFix, err := m.state.LoadLastFix(ctx, userID)
	if err != nil {
		log.Printf("geofence: failed to load last fix for user %d: %v", userID, err)
		lastFix = nil
	}

	return Status{
		Active:            true,
		IsInside:          containment == ContainmentInside,
		LastKnownLocation: lastFix,
	}, nil
}

// ProcessBatch is one processing cycle. Invocations are at-least-once and
// possibly overlapping; everything it does is either idempotent or gated by
// the debounce store, and the worker holds a per-user cycle lock on top.
func (m *Monitor) ProcessBatch(ctx context.Context, batch Batch) error {
	if batch.Error != "" {
		log.Printf("geofence: platform delivery error for user %d: %s", batch.UserID, batch.Error)
		return ErrPlatformDelivery
	}
	if len(batch.Samples) == 0 {
		return nil
	}

	now := m.now()

	if m.cfg.Policy.IsAutoClockOutWindow(now) {
		m.forceClose(ctx, batch.UserID, now)
		return nil
	}
	if !m.cfg.Policy.ShouldMonitor(now) {
		return nil
	}

	region, err := m.state.LoadRegion(ctx, batch.UserID)
	if err != nil {
		return err
	}

	newest := newestSample(batch.Samples)
	inside := Contains(newest.Point(), region.Vertices)

	last, err := m.state.LoadContainment(ctx, batch.UserID, region.ID)
	if err != nil {
		return err
	}

	if event := Detect(last, inside); event != EventNone {
		m.handleTransition(ctx, batch.UserID, region, event, now)
	}

	// Containment is rewritten whether or not a transition fired, and
	// regardless of mutation outcome: the location transition happened even
	// if the clock call failed, and the debounce window governs retry
	// cadence, not this error path.
	if err := m.state.SaveContainment(ctx, batch.UserID, region.ID, inside); err != nil {
		return err
	}
	if err := m.state.SaveLastFix(ctx, batch.UserID, newest); err != nil {
		log.Printf("geofence: failed to persist last fix for user %d: %v", batch.UserID, err)
	}
	return nil
}

func (m *Monitor) handleTransition(ctx context.Context, userID int64, region *Region, event Event, now time.Time) {
	if err := m.bus.Publish(ctx, userID, "geofence_transition", map[string]any{
		"region_id": region.ID,
		"event":     string(event),
		"at":        now.UTC(),
	}); err != nil {
		log.Printf("geofence: failed to publish transition for user %d: %v", userID, err)
	}

	allowed, err := m.debounce.TryAcquire(ctx, userID, KindMutation, event, now, m.cfg.MutationWindow)
	if err != nil {
		log.Printf("geofence: debounce check failed for user %d: %v", userID, err)
		allowed = false
	}
	if allowed {
		m.mutate(ctx, userID, event, now)
	}

	if region.wantsNotification(event) {
		ok, err := m.debounce.TryAcquire(ctx, userID, KindNotification, event, now, m.cfg.NotificationWindow)
		if err != nil {
			log.Printf("geofence: notification debounce failed for user %d: %v", userID, err)
			return
		}
		if ok {
			m.notifier.Notify(ctx, userID, event, region, now)
		}
	}
}

// mutate fires the clock call for a transition. Failures are logged, never
// retried here: the next natural transition or the auto-clockout window is
// the retry path (at-most-once per debounce window, backend tolerates
// duplicates idempotently).
func (m *Monitor) mutate(ctx context.Context, userID int64, event Event, now time.Time) {
	var (
		changed bool
		err     error
		name    string
	)
	switch event {
	case EventEnter:
		changed, err = m.clocker.ClockIn(ctx, userID, now)
		name = "clock_in_succeeded"
	case EventExit:
		changed, err = m.clocker.ClockOut(ctx, userID, now)
		name = "clock_out_succeeded"
	default:
		return
	}

	if err != nil {
		log.Printf("geofence: %s mutation failed for user %d: %v", event, userID, err)
		return
	}
	if changed {
		if err := m.bus.Publish(ctx, userID, name, map[string]any{"at": now.UTC()}); err != nil {
			log.Printf("geofence: failed to publish %s for user %d: %v", name, userID, err)
		}
	}
}

func (m *Monitor) forceClose(ctx context.Context, userID int64, now time.Time) {
	changed, err := m.clocker.ClockOut(ctx, userID, now)
	if err != nil {
		log.Printf("geofence: auto clock-out failed for user %d: %v", userID, err)
		return
	}
	if changed {
		log.Printf("geofence: auto clock-out closed open session for user %d", userID)
		if err := m.bus.Publish(ctx, userID, "clock_out_succeeded", map[string]any{"at": now.UTC(), "auto": true}); err != nil {
			log.Printf("geofence: failed to publish auto clock-out for user %d: %v", userID, err)
		}
	}
}
