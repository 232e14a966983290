// Package wsfeed reads live positions from a device bridge over WebSocket.
//
// On connect the client sends one "watch" message carrying the requested
// options; the bridge answers with "location_update" and "error" messages
// until either side closes the connection.
package wsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1 << 16
)

var _ ports.LocationSensor = (*Sensor)(nil)

// Sensor dials a new connection for every watch.
type Sensor struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
}

// NewSensor checks that rawURL is a ws:// or wss:// endpoint.
func NewSensor(rawURL string, header http.Header, logger *slog.Logger) (*Sensor, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse location feed url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("location feed url %q must be ws or wss", rawURL)
	}
	return &Sensor{
		url:    u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: writeWait, Proxy: http.ProxyFromEnvironment},
		header: header,
		logger: logger.With("component", "wsfeed"),
	}, nil
}

// Watch connects to the bridge and starts streaming. A refused handshake
// (401/403) is reported as permission denied, any other dial failure as an
// unsupported sensor.
func (s *Sensor) Watch(ctx context.Context, opts ports.WatchOptions) (ports.PositionStream, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: bridge answered %d", ports.ErrSensorPermissionDenied, resp.StatusCode)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: dial %s: %w", ports.ErrSensorUnsupported, s.url, err)
	}

	st := newStream(conn, s.logger)
	if err := st.writeJSON(message{
		Type:      typeWatch,
		Timestamp: time.Now().UTC(),
		Data: mustMarshal(watchRequest{
			HighAccuracy: opts.HighAccuracy,
			MaximumAgeMs: opts.MaximumAge.Milliseconds(),
			TimeoutMs:    opts.Timeout.Milliseconds(),
		}),
	}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send watch request: %w", err)
	}

	st.wg.Add(2)
	go st.readLoop()
	go st.pingLoop()
	return st, nil
}

type stream struct {
	conn    *websocket.Conn
	samples chan kernel.Position
	errs    chan error
	done    chan struct{}
	logger  *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newStream(conn *websocket.Conn, logger *slog.Logger) *stream {
	return &stream{
		conn:    conn,
		samples: make(chan kernel.Position, 16),
		errs:    make(chan error, 4),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

func (s *stream) Samples() <-chan kernel.Position { return s.samples }
func (s *stream) Errors() <-chan error            { return s.errs }

// Close sends a close frame, drops the connection and waits for the
// background loops. It is safe to call more than once.
func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "watch stopped"),
			time.Now().Add(writeWait),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	s.wg.Wait()
	return err
}

func (s *stream) readLoop() {
	defer s.wg.Done()
	defer close(s.errs)
	defer close(s.samples)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg message
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.readFailed(err)
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case typeLocationUpdate:
			var upd locationUpdate
			if err := json.Unmarshal(msg.Data, &upd); err != nil {
				s.emitError(fmt.Errorf("decode location update: %w", err))
				continue
			}
			p, err := upd.toPosition()
			if err != nil {
				s.emitError(fmt.Errorf("invalid location update: %w", err))
				continue
			}
			select {
			case s.samples <- p:
			case <-s.done:
				return
			}
		case typeError:
			var se sensorError
			if err := json.Unmarshal(msg.Data, &se); err != nil {
				s.emitError(fmt.Errorf("decode sensor error: %w", err))
				continue
			}
			s.emitError(se.toError())
		default:
			s.logger.Debug("ignoring location feed message", "type", msg.Type)
		}
	}
}

func (s *stream) readFailed(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Info("location feed closed by bridge")
		return
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == websocket.ClosePolicyViolation {
		s.emitError(fmt.Errorf("%w: %s", ports.ErrSensorPermissionDenied, closeErr.Text))
		return
	}
	s.emitError(fmt.Errorf("location feed read: %w", err))
}

// emitError never blocks the read loop; a full buffer drops the error.
func (s *stream) emitError(err error) {
	select {
	case s.errs <- err:
	case <-s.done:
	default:
		s.logger.Warn("dropping location feed error", "error", err)
	}
}

func (s *stream) pingLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Debug("location feed ping failed", "error", err)
				return
			}
		}
	}
}

func (s *stream) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
