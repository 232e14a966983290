package kernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

func TestNewPosition(t *testing.T) {
	capturedAt := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	t.Run("valid sample without optional fields", func(t *testing.T) {
		p, err := kernel.NewPosition(41.0082, 28.9784, capturedAt)

		require.NoError(t, err)
		require.NoError(t, p.Validate())
		assert.InDelta(t, 41.0082, p.Lat(), 1e-12)
		assert.InDelta(t, 28.9784, p.Lng(), 1e-12)
		assert.Equal(t, capturedAt, p.CapturedAt())

		_, ok := p.Heading()
		assert.False(t, ok)
		_, ok = p.Speed()
		assert.False(t, ok)
		_, ok = p.Accuracy()
		assert.False(t, ok)
	})

	t.Run("zero capture time is rejected", func(t *testing.T) {
		_, err := kernel.NewPosition(41.0082, 28.9784, time.Time{})

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("out of range coordinates are rejected", func(t *testing.T) {
		_, err := kernel.NewPosition(95, 28.9784, capturedAt)

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})
}

func TestPosition_OptionalFields(t *testing.T) {
	base, err := kernel.NewPosition(41.0082, 28.9784, time.Now())
	require.NoError(t, err)

	withAll, err := base.WithHeading(270)
	require.NoError(t, err)
	withAll, err = withAll.WithSpeed(4.2)
	require.NoError(t, err)
	withAll, err = withAll.WithAccuracy(12)
	require.NoError(t, err)

	heading, ok := withAll.Heading()
	assert.True(t, ok)
	assert.InDelta(t, 270.0, heading, 1e-12)
	speed, ok := withAll.Speed()
	assert.True(t, ok)
	assert.InDelta(t, 4.2, speed, 1e-12)
	accuracy, ok := withAll.Accuracy()
	assert.True(t, ok)
	assert.InDelta(t, 12.0, accuracy, 1e-12)

	_, ok = base.Heading()
	assert.False(t, ok, "With* must not modify the receiver")
}

func TestPosition_InvalidOptionalFields(t *testing.T) {
	base, err := kernel.NewPosition(41.0082, 28.9784, time.Now())
	require.NoError(t, err)

	_, err = base.WithHeading(360)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	_, err = base.WithHeading(-1)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	_, err = base.WithSpeed(-0.1)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	_, err = base.WithAccuracy(-5)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
}

func TestPosition_ZeroValueIsInvalid(t *testing.T) {
	var p kernel.Position

	require.ErrorIs(t, p.Validate(), errs.ErrValueIsRequired)
}
