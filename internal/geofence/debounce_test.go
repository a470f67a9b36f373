package geofence

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeKV is an in-memory KV with TTL expiry driven by an injectable clock,
// shared by the debounce and monitor tests.
type fakeKV struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
	now     func() time.Time
	failAll bool
}

type fakeEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func newFakeKV(now func() time.Time) *fakeKV {
	return &fakeKV{entries: make(map[string]fakeEntry), now: now}
}

func (f *fakeKV) get(key string) (fakeEntry, bool) {
	e, ok := f.entries[key]
	if !ok {
		return fakeEntry{}, false
	}
	if !e.expiresAt.IsZero() && !f.now().Before(e.expiresAt) {
		delete(f.entries, key)
		return fakeEntry{}, false
	}
	return e, true
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", false, context.DeadlineExceeded
	}
	e, ok := f.get(key)
	return e.value, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return context.DeadlineExceeded
	}
	f.entries[key] = f.entry(value, ttl)
	return nil
}

func (f *fakeKV) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return false, context.DeadlineExceeded
	}
	if _, ok := f.get(key); ok {
		return false, nil
	}
	f.entries[key] = f.entry(value, ttl)
	return true, nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.entries, k)
	}
	return nil
}

func (f *fakeKV) entry(value string, ttl time.Duration) fakeEntry {
	e := fakeEntry{value: value}
	if ttl > 0 {
		e.expiresAt = f.now().Add(ttl)
	}
	return e
}

func TestDebounceWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	d := NewDebounce(newFakeKV(clock))
	ctx := context.Background()

	const window = 60 * time.Second

	ok, err := d.TryAcquire(ctx, 1, KindMutation, EventEnter, now, window)
	if err != nil || !ok {
		t.Fatalf("first acquire = (%v, %v), want permitted", ok, err)
	}

	// Second enter inside the window is suppressed.
	now = now.Add(10 * time.Second)
	ok, err = d.TryAcquire(ctx, 1, KindMutation, EventEnter, now, window)
	if err != nil || ok {
		t.Fatalf("acquire within window = (%v, %v), want denied", ok, err)
	}

	// After the window expires a new acquisition is permitted.
	now = now.Add(window)
	ok, err = d.TryAcquire(ctx, 1, KindMutation, EventEnter, now, window)
	if err != nil || !ok {
		t.Fatalf("acquire after window = (%v, %v), want permitted", ok, err)
	}
}

func TestDebounceKeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d := NewDebounce(newFakeKV(func() time.Time { return now }))
	ctx := context.Background()

	if ok, _ := d.TryAcquire(ctx, 1, KindMutation, EventEnter, now, time.Minute); !ok {
		t.Fatalf("mutation enter should be permitted")
	}
	if ok, _ := d.TryAcquire(ctx, 1, KindMutation, EventExit, now, time.Minute); !ok {
		t.Errorf("mutation exit should be independent of mutation enter")
	}
	if ok, _ := d.TryAcquire(ctx, 1, KindNotification, EventEnter, now, 5*time.Second); !ok {
		t.Errorf("notification enter should be independent of mutation enter")
	}
	if ok, _ := d.TryAcquire(ctx, 2, KindMutation, EventEnter, now, time.Minute); !ok {
		t.Errorf("another user's gate should be independent")
	}
}
