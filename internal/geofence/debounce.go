package geofence

import (
	"context"
	"fmt"
	"time"
)

// Debounce kinds. The mutation window is much longer than the notification
// window: the former absorbs GPS jitter causing enter/exit oscillation, the
// latter only suppresses duplicate alerts from retried cycles.
const (
	KindMutation     = "mutation"
	KindNotification = "notification"
)

// Debounce gates repeated actions per (kind, event) pair behind a cooldown
// window. Acquisition is a single atomic SetNX with the window as TTL: the
// key either already exists (still within the window, denied) or is created
// exactly once, so two overlapping processing cycles can never both pass the
// gate. The timestamp is recorded only when permission is granted.
type Debounce struct {
	kv KV
}

func NewDebounce(kv KV) *Debounce {
	return &Debounce{kv: kv}
}

func (d *Debounce) TryAcquire(ctx context.Context, userID int64, kind string, event Event, now time.Time, window time.Duration) (bool, error) {
	key := debounceKey(userID, kind, event)
	return d.kv.SetNX(ctx, key, now.UTC().Format(time.RFC3339), window)
}

func debounceKey(userID int64, kind string, event Event) string {
	return fmt.Sprintf("geofence:%d:debounce:%s:%s", userID, kind, event)
}
