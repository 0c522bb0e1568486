package location

import (
	"errors"
	"time"
)

// Sample is a single location fix. SpeedMps is nil when the sensor did not
// report a speed.
type Sample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Clone returns a copy that shares no memory with s.
func (s Sample) Clone() Sample {
	if s.SpeedMps != nil {
		speed := *s.SpeedMps
		s.SpeedMps = &speed
	}
	return s
}

// Options mirror the knobs a platform geolocation API accepts.
type Options struct {
	HighAccuracy bool
	MaximumAge   time.Duration
	Timeout      time.Duration
}

type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

func ParsePermissionState(s string) (PermissionState, bool) {
	switch PermissionState(s) {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
		return PermissionState(s), true
	}
	return "", false
}

var (
	ErrUnsupported         = errors.New("geolocation not supported")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrUnavailable         = errors.New("location unavailable")
	ErrTimeout             = errors.New("location request timed out")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrQueryUnsupported    = errors.New("permission query not supported")
)

// ErrorKind is the classification of a location failure surfaced to the
// presentation layer.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindUnsupported         ErrorKind = "unsupported"
	KindPermissionDenied    ErrorKind = "permission_denied"
	KindUnavailable         ErrorKind = "unavailable"
	KindTimeout             ErrorKind = "timeout"
	KindPositionUnavailable ErrorKind = "position_unavailable"
	KindReadFailure         ErrorKind = "read_failure"
)

var kindMessages = map[ErrorKind]string{
	KindUnsupported:         "Geolocation is not supported on this device.",
	KindPermissionDenied:    "Location permission denied. Enable it in the device settings.",
	KindUnavailable:         "Could not obtain location permission. Check the settings.",
	KindTimeout:             "Could not obtain location permission. Check the settings.",
	KindPositionUnavailable: "Could not obtain location permission. Check the settings.",
	KindReadFailure:         "Failed to read location. Check the permissions.",
}

// Message is the user-facing text for k, empty for KindNone.
func (k ErrorKind) Message() string {
	return kindMessages[k]
}

// KindOf classifies err. The order matters: a probe failure wraps both
// ErrUnavailable and its cause and must surface as unavailable.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrPositionUnavailable):
		return KindPositionUnavailable
	default:
		return KindReadFailure
	}
}

// ErrorForKind maps the kinds a platform may report for a failed read back to
// their sentinel error. Unknown kinds yield nil.
func ErrorForKind(s string) error {
	switch ErrorKind(s) {
	case KindTimeout:
		return ErrTimeout
	case KindPositionUnavailable:
		return ErrPositionUnavailable
	case KindPermissionDenied:
		return ErrPermissionDenied
	}
	return nil
}
