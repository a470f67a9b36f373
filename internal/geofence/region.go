package geofence

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Region is an immutable polygon geofence. The vertex list is implicitly
// closed: the last vertex connects back to the first. One region is active
// per monitoring session.
type Region struct {
	ID            string  `json:"id" yaml:"id"`
	Vertices      []Point `json:"vertices" yaml:"vertices"`
	NotifyOnEnter bool    `json:"notify_on_enter" yaml:"notify_on_enter"`
	NotifyOnExit  bool    `json:"notify_on_exit" yaml:"notify_on_exit"`
}

func (r *Region) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("region id is required")
	}
	if len(r.Vertices) < 3 {
		return fmt.Errorf("region needs at least 3 vertices, got %d", len(r.Vertices))
	}
	return nil
}

func (r *Region) wantsNotification(event Event) bool {
	switch event {
	case EventEnter:
		return r.NotifyOnEnter
	case EventExit:
		return r.NotifyOnExit
	}
	return false
}

// LoadRegionFile reads the office polygon from a YAML file. It backs the
// default region used when a start request does not carry its own.
func LoadRegionFile(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}

	var region Region
	if err := yaml.Unmarshal(data, &region); err != nil {
		return nil, fmt.Errorf("failed to parse region file %s: %w", path, err)
	}
	if err := region.Validate(); err != nil {
		return nil, fmt.Errorf("invalid region in %s: %w", path, err)
	}
	return &region, nil
}

// Sample is one location fix from the device. Samples are consumed once per
// processing cycle; only the newest fix of a batch decides containment.
type Sample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func (s Sample) Point() Point {
	return Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// newestSample picks the fix with the latest timestamp. Batches normally
// arrive in chronological order but the platform does not guarantee it.
func newestSample(samples []Sample) Sample {
	newest := samples[0]
	for _, s := range samples[1:] {
		if s.Timestamp.After(newest.Timestamp) {
			newest = s
		}
	}
	return newest
}
