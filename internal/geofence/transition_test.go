package geofence

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		last      Containment
		insideNow bool
		want      Event
	}{
		{"first observation inside", ContainmentUnknown, true, EventNone},
		{"first observation outside", ContainmentUnknown, false, EventNone},
		{"outside to inside", ContainmentOutside, true, EventEnter},
		{"inside to outside", ContainmentInside, false, EventExit},
		{"still inside", ContainmentInside, true, EventNone},
		{"still outside", ContainmentOutside, false, EventNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(tc.last, tc.insideNow); got != tc.want {
				t.Errorf("Detect(%v, %v) = %v, want %v", tc.last, tc.insideNow, got, tc.want)
			}
		})
	}
}

// A sequence alternating outside, inside, outside must produce exactly one
// enter followed by exactly one exit, never two of the same kind in a row.
func TestDetectAlternatingSequence(t *testing.T) {
	observations := []bool{false, false, true, true, true, false, false}

	state := ContainmentUnknown
	var events []Event
	for _, inside := range observations {
		if ev := Detect(state, inside); ev != EventNone {
			events = append(events, ev)
		}
		if inside {
			state = ContainmentInside
		} else {
			state = ContainmentOutside
		}
	}

	if len(events) != 2 || events[0] != EventEnter || events[1] != EventExit {
		t.Fatalf("expected [enter exit], got %v", events)
	}
}
