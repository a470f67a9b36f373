package geofence

import (
	"fmt"
	"strconv"
)

// ParseUserID parses an externally supplied user identity. Attendance
// mutations are never attempted with a missing or non-numeric identity, so
// everything that carries a user id into the core goes through here first.
func ParseUserID(raw string) (int64, error) {
	if raw == "" {
		return 0, ErrInvalidIdentity
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentity, raw)
	}
	return id, nil
}
