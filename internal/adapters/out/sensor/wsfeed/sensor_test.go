package wsfeed_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dispatch/internal/adapters/out/sensor/wsfeed"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type bridgeMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// newBridge runs script against every accepted connection.
func newBridge(t *testing.T, script func(conn *websocket.Conn)) *wsfeed.Sensor {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		script(conn)
	}))
	t.Cleanup(srv.Close)

	sensor, err := wsfeed.NewSensor("ws"+strings.TrimPrefix(srv.URL, "http"), nil, testLogger())
	require.NoError(t, err)
	return sensor
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readWatch(t *testing.T, conn *websocket.Conn) map[string]any {
	var msg bridgeMessage
	if !assert.NoError(t, conn.ReadJSON(&msg)) {
		return nil
	}
	assert.Equal(t, "watch", msg.Type)
	var opts map[string]any
	assert.NoError(t, json.Unmarshal(msg.Data, &opts))
	return opts
}

func waitClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func Test_NewSensor_RejectsNonWebSocketURL(t *testing.T) {
	_, err := wsfeed.NewSensor("http://127.0.0.1:9000/feed", nil, testLogger())
	assert.Error(t, err)
}

func Test_Sensor_StreamsLocationUpdates(t *testing.T) {
	captured := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	optsSeen := make(chan map[string]any, 1)
	sensor := newBridge(t, func(conn *websocket.Conn) {
		optsSeen <- readWatch(t, conn)
		_ = conn.WriteJSON(map[string]any{
			"type": "location_update",
			"data": map[string]any{
				"lat": 41.0082, "lng": 28.9784, "heading": 90, "speed": 4.2,
				"timestamp": captured.Format(time.RFC3339),
			},
		})
		waitClosed(conn)
	})

	stream, err := sensor.Watch(t.Context(), ports.WatchOptions{HighAccuracy: true, Timeout: 30 * time.Second})
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	opts := <-optsSeen
	assert.Equal(t, true, opts["highAccuracy"])
	assert.Equal(t, float64(0), opts["maximumAge"])
	assert.Equal(t, float64(30000), opts["timeout"])

	select {
	case p := <-stream.Samples():
		assert.InDelta(t, 41.0082, p.Lat(), 1e-9)
		heading, ok := p.Heading()
		assert.True(t, ok)
		assert.InDelta(t, 90, heading, 1e-9)
		_, hasAccuracy := p.Accuracy()
		assert.False(t, hasAccuracy)
		assert.True(t, captured.Equal(p.CapturedAt()))
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
	}
}

func Test_Sensor_MapsBridgeErrors(t *testing.T) {
	sensor := newBridge(t, func(conn *websocket.Conn) {
		readWatch(t, conn)
		_ = conn.WriteJSON(map[string]any{"type": "error", "data": map[string]any{"code": 2, "message": "no satellites"}})
		_ = conn.WriteJSON(map[string]any{"type": "error", "data": map[string]any{"code": 1, "message": "user denied"}})
		waitClosed(conn)
	})

	stream, err := sensor.Watch(t.Context(), ports.WatchOptions{})
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	var got []error
	for len(got) < 2 {
		select {
		case err := <-stream.Errors():
			got = append(got, err)
		case <-time.After(2 * time.Second):
			t.Fatal("bridge errors not delivered")
		}
	}
	assert.False(t, ports.IsTerminalSensorError(got[0]))
	assert.ErrorIs(t, got[1], ports.ErrSensorPermissionDenied)
}

func Test_Sensor_HandshakeRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	sensor, err := wsfeed.NewSensor("ws"+strings.TrimPrefix(srv.URL, "http"), nil, testLogger())
	require.NoError(t, err)

	_, err = sensor.Watch(t.Context(), ports.WatchOptions{})

	assert.ErrorIs(t, err, ports.ErrSensorPermissionDenied)
}

func Test_Sensor_BridgeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	sensor, err := wsfeed.NewSensor("ws"+strings.TrimPrefix(addr, "http"), nil, testLogger())
	require.NoError(t, err)

	_, err = sensor.Watch(t.Context(), ports.WatchOptions{})

	assert.ErrorIs(t, err, ports.ErrSensorUnsupported)
}

func Test_Sensor_CloseEndsStream(t *testing.T) {
	sensor := newBridge(t, func(conn *websocket.Conn) {
		readWatch(t, conn)
		waitClosed(conn)
	})
	stream, err := sensor.Watch(t.Context(), ports.WatchOptions{})
	require.NoError(t, err)

	require.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())

	_, open := <-stream.Samples()
	assert.False(t, open)
}

func Test_Sensor_BridgeHangupClosesSamples(t *testing.T) {
	sensor := newBridge(t, func(conn *websocket.Conn) {
		readWatch(t, conn)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge stopping"))
	})
	stream, err := sensor.Watch(t.Context(), ports.WatchOptions{})
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	var sample kernel.Position
	select {
	case p, open := <-stream.Samples():
		sample = p
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("samples not closed after hangup")
	}
	assert.True(t, sample.Point().IsZero())
}
