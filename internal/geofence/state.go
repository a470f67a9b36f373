package geofence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// configSchemaVersion is bumped whenever the stored region layout changes.
// A mismatch decodes to ErrDecode instead of silently misparsing.
const configSchemaVersion = 1

type storedConfig struct {
	Version int    `json:"version"`
	Region  Region `json:"region"`
}

// Storage keys are namespaced per user. The geofence core exclusively owns
// every key under its prefix; user identity and auth tokens live elsewhere
// and are only read.
func keyConfig(userID int64) string {
	return fmt.Sprintf("geofence:%d:config", userID)
}

func keyInside(userID int64, regionID string) string {
	return fmt.Sprintf("geofence:%d:region:%s:inside", userID, regionID)
}

func keyLastFix(userID int64) string {
	return fmt.Sprintf("geofence:%d:lastfix", userID)
}

// StateStore is the typed serialization boundary between the geofence core
// and the durable key-value store.
type StateStore struct {
	kv KV
}

func NewStateStore(kv KV) *StateStore {
	return &StateStore{kv: kv}
}

func (s *StateStore) SaveRegion(ctx context.Context, userID int64, region *Region) error {
	data, err := json.Marshal(storedConfig{Version: configSchemaVersion, Region: *region})
	if err != nil {
		return fmt.Errorf("failed to encode region config: %w", err)
	}
	return s.kv.Set(ctx, keyConfig(userID), string(data), 0)
}

func (s *StateStore) LoadRegion(ctx context.Context, userID int64) (*Region, error) {
	raw, ok, err := s.kv.Get(ctx, keyConfig(userID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConfigMissing
	}

	var cfg storedConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Version != configSchemaVersion {
		return nil, fmt.Errorf("%w: config schema version %d", ErrDecode, cfg.Version)
	}
	return &cfg.Region, nil
}

// SaveContainment overwrites the inside/outside flag for a region. At most
// one value exists per region at any time.
func (s *StateStore) SaveContainment(ctx context.Context, userID int64, regionID string, inside bool) error {
	v := "0"
	if inside {
		v = "1"
	}
	return s.kv.Set(ctx, keyInside(userID, regionID), v, 0)
}

func (s *StateStore) LoadContainment(ctx context.Context, userID int64, regionID string) (Containment, error) {
	raw, ok, err := s.kv.Get(ctx, keyInside(userID, regionID))
	if err != nil {
		return ContainmentUnknown, err
	}
	if !ok {
		return ContainmentUnknown, nil
	}
	switch raw {
	case "1":
		return ContainmentInside, nil
	case "0":
		return ContainmentOutside, nil
	}
	return ContainmentUnknown, fmt.Errorf("%w: containment flag %q", ErrDecode, raw)
}

func (s *StateStore) SaveLastFix(ctx context.Context, userID int64, fix Sample) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("failed to encode last fix: %w", err)
	}
	// Stale fixes are useless for status display after a day.
	return s.kv.Set(ctx, keyLastFix(userID), string(data), 24*time.Hour)
}

func (s *StateStore) LoadLastFix(ctx context.Context, userID int64) (*Sample, error) {
	raw, ok, err := s.kv.Get(ctx, keyLastFix(userID))
	if err != nil || !ok {
		return nil, err
	}
	var fix Sample
	if err := json.Unmarshal([]byte(raw), &fix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &fix, nil
}

// Clear discards everything the core persisted for the user: region config,
// containment flag, last fix and both debounce gates. Deleting keys that do
// not exist is a successful no-op.
func (s *StateStore) Clear(ctx context.Context, userID int64, regionID string) error {
	keys := []string{
		keyConfig(userID),
		keyLastFix(userID),
		debounceKey(userID, KindMutation, EventEnter),
		debounceKey(userID, KindMutation, EventExit),
		debounceKey(userID, KindNotification, EventEnter),
		debounceKey(userID, KindNotification, EventExit),
	}
	if regionID != "" {
		keys = append(keys, keyInside(userID, regionID))
	}
	return s.kv.Del(ctx, keys...)
}
