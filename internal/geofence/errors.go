package geofence

import "errors"

var (
	// ErrPermissionDenied means a required location or notification
	// permission was not granted on the device.
	ErrPermissionDenied = errors.New("required permission not granted")

	// ErrInvalidIdentity means the user identity is missing or not a
	// positive integer; mutations fail closed on it.
	ErrInvalidIdentity = errors.New("user id is missing or not numeric")

	// ErrConfigMissing means a processing cycle fired with no active region
	// config persisted. Expected transient condition, aborts the cycle.
	ErrConfigMissing = errors.New("no active region config")

	// ErrDecode means a persisted record exists but failed to decode,
	// typically storage corruption or schema drift.
	ErrDecode = errors.New("stored geofence record failed to decode")

	// ErrPlatformDelivery means the location provider itself reported an
	// error for the batch. The cycle is aborted without touching state.
	ErrPlatformDelivery = errors.New("platform reported a location delivery error")
)
