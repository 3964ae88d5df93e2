package location_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neexbeast/geoweather/internal/location"
)

func TestAcquisitionError_MatchesKindAndCause(t *testing.T) {
	cause := fmt.Errorf("device said no: %w", location.ErrPermissionDenied)
	err := &location.AcquisitionError{Kind: location.ErrPermissionDenied, Err: cause}

	assert.True(t, errors.Is(err, location.ErrPermissionDenied))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, location.ErrTimeout))
	assert.Contains(t, err.Error(), "denied")
}

func TestAccuracyError_Message(t *testing.T) {
	err := &location.AccuracyError{Accuracy: 120, Threshold: 50}

	assert.True(t, errors.Is(err, location.ErrAccuracyRejected))
	assert.Equal(t, "Location accuracy too low: 120m (required: 50m or better).", err.Error())
}
