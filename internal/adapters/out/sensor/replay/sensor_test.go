package replay_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dispatch/internal/adapters/out/sensor/replay"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortTrack = `
name: test-walk
points:
  - at: 0s
    lat: 41.0082
    lng: 28.9784
    heading: 45
  - at: 20ms
    lat: 41.0090
    lng: 28.9790
    accuracy: 6.5
  - at: 40ms
    error: permission_denied
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nextSample(t *testing.T, stream ports.PositionStream) kernel.Position {
	t.Helper()
	select {
	case p, ok := <-stream.Samples():
		require.True(t, ok, "samples closed")
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no sample")
	}
	return kernel.Position{}
}

func Test_ParseTrack(t *testing.T) {
	track, err := replay.ParseTrack(strings.NewReader(shortTrack))

	require.NoError(t, err)
	assert.Equal(t, "test-walk", track.Name)
	require.Len(t, track.Points, 3)
	assert.Equal(t, 20*time.Millisecond, track.Points[1].At)
	assert.Equal(t, 40*time.Millisecond, track.Duration())
}

func Test_ParseTrack_Invalid(t *testing.T) {
	tests := map[string]string{
		"no points":        "name: empty\n",
		"offset backwards": "points:\n  - {at: 2s, lat: 1, lng: 1}\n  - {at: 1s, lat: 1, lng: 1}\n",
		"bad latitude":     "points:\n  - {at: 0s, lat: 123, lng: 1}\n",
		"unknown field":    "points:\n  - {at: 0s, lat: 1, lng: 1, altitude: 12}\n",
		"negative speedup": "speedup: -1\npoints:\n  - {at: 0s, lat: 1, lng: 1}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := replay.ParseTrack(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func Test_LoadTrack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shortTrack), 0o600))

	track, err := replay.LoadTrack(path)

	require.NoError(t, err)
	assert.Len(t, track.Points, 3)
}

func Test_Sensor_PlaysTrackInOrder(t *testing.T) {
	track, err := replay.ParseTrack(strings.NewReader(shortTrack))
	require.NoError(t, err)
	sensor, err := replay.NewSensor(track, testLogger())
	require.NoError(t, err)
	started := time.Now()

	stream, err := sensor.Watch(t.Context(), ports.WatchOptions{HighAccuracy: true})
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	first := nextSample(t, stream)
	heading, ok := first.Heading()
	assert.True(t, ok)
	assert.InDelta(t, 45, heading, 1e-9)
	assert.False(t, first.CapturedAt().Before(started))

	second := nextSample(t, stream)
	assert.InDelta(t, 41.0090, second.Lat(), 1e-9)
	assert.GreaterOrEqual(t, time.Since(started), 20*time.Millisecond)

	select {
	case err := <-stream.Errors():
		assert.ErrorIs(t, err, ports.ErrSensorPermissionDenied)
	case <-time.After(2 * time.Second):
		t.Fatal("injected error not delivered")
	}
}

func Test_Sensor_Loops(t *testing.T) {
	sensor, err := replay.NewSensor(replay.Track{
		Loop:    true,
		Speedup: 10,
		Points: []replay.Point{
			{At: 0, Lat: 41, Lng: 29},
			{At: 50 * time.Millisecond, Lat: 41.001, Lng: 29.001},
		},
	}, testLogger())
	require.NoError(t, err)

	stream, err := sensor.Watch(t.Context(), ports.WatchOptions{})
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	var lats []float64
	for range 4 {
		lats = append(lats, nextSample(t, stream).Lat())
	}
	assert.Equal(t, []float64{41, 41.001, 41, 41.001}, lats)
}

func Test_Sensor_CloseStopsPlayback(t *testing.T) {
	sensor, err := replay.NewSensor(replay.Track{
		Points: []replay.Point{{At: time.Hour, Lat: 41, Lng: 29}},
	}, testLogger())
	require.NoError(t, err)
	stream, err := sensor.Watch(t.Context(), ports.WatchOptions{})
	require.NoError(t, err)

	require.NoError(t, stream.Close())

	_, open := <-stream.Samples()
	assert.False(t, open)
	_, open = <-stream.Errors()
	assert.False(t, open)
}
