package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dispatch/internal/core/ports"

	"github.com/labstack/echo/v4"
)

const heartbeatInterval = 15 * time.Second

// StreamToasts handles GET /api/v1/toasts/stream. Each toast is sent as a
// "toast" event; ?replay=true first replays the recent history.
func (s *Server) StreamToasts(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := s.toasts.Subscribe()
	defer s.toasts.Unsubscribe(ch)

	if c.QueryParam("replay") == "true" {
		for _, t := range s.toasts.Recent() {
			if err := writeToast(w, t); err != nil {
				return nil
			}
		}
	}
	fmt.Fprintf(w, ": connected\n\n")
	w.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	done := c.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case t, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeToast(w, t); err != nil {
				return nil
			}
		case <-heartbeat.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {\"ts\":%q}\n\n", time.Now().UTC().Format(time.RFC3339))
			w.Flush()
		}
	}
}

func writeToast(w *echo.Response, t ports.Toast) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(w, "id: %s\nevent: toast\ndata: %s\n\n", t.ID, b); err != nil {
		return err
	}
	w.Flush()
	return nil
}
