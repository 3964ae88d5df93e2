package location

import (
	"context"
	"errors"
	"fmt"
)

// Sentinels returned (possibly wrapped) by a Locator.
var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrTimeout             = errors.New("timeout")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrUnsupported         = errors.New("geolocation unsupported")
	ErrUnknown             = errors.New("unknown geolocation error")
	ErrAccuracyRejected    = errors.New("accuracy rejected")
)

// AcquisitionError is the failure surfaced by Acquire when no fix could be obtained.
// Error returns a message suitable for showing to the user.
type AcquisitionError struct {
	Kind error
	Err  error
}

func (e *AcquisitionError) Error() string {
	switch e.Kind {
	case ErrPermissionDenied:
		return "Location access denied. Please enable location permissions."
	case ErrTimeout:
		return "Location request timed out. Please try again."
	case ErrPositionUnavailable:
		return "Location information is unavailable."
	case ErrUnsupported:
		return "Geolocation is not supported on this device."
	default:
		return "An unknown error occurred while getting location."
	}
}

func (e *AcquisitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AccuracyError reports a fix whose accuracy radius exceeded the threshold.
type AccuracyError struct {
	Accuracy  float64
	Threshold float64
}

func (e *AccuracyError) Error() string {
	return fmt.Sprintf("Location accuracy too low: %.0fm (required: %.0fm or better).", e.Accuracy, e.Threshold)
}

func (e *AccuracyError) Is(target error) bool {
	return target == ErrAccuracyRejected
}

// classify maps a Locator error onto the acquisition taxonomy.
func classify(err error) *AcquisitionError {
	for _, kind := range []error{ErrPermissionDenied, ErrTimeout, ErrPositionUnavailable, ErrUnsupported} {
		if errors.Is(err, kind) {
			return &AcquisitionError{Kind: kind, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &AcquisitionError{Kind: ErrTimeout, Err: err}
	}
	return &AcquisitionError{Kind: ErrUnknown, Err: err}
}
