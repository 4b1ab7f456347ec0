package api

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/event"
)

// getEvents streams a live session's events over a websocket. The
// connection counts as a viewer until it closes. The stream ends after
// session_end.
//
// Query parameters: observer (defaults to a random id) and buffer (the
// subscriber channel capacity, at most event.MaxSubscriberBuffer).
func (s *Server) getEvents(c echo.Context) error {
	id := c.Param("id")
	observer := strings.TrimSpace(c.QueryParam("observer"))
	if observer == "" {
		observer = uuid.NewString()
	}
	buffer := 0
	if raw := c.QueryParam("buffer"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > event.MaxSubscriberBuffer {
			return errors.NewValidationError(
				fmt.Sprintf("buffer must be an integer between 0 and %d", event.MaxSubscriberBuffer)).
				WithField("buffer").WithValue(raw)
		}
		buffer = n
	}

	// Subscribe before the upgrade so that unknown or finished sessions are
	// reported as ordinary JSON errors.
	events, cancel, err := s.Registry.Subscribe(id, buffer)
	if err != nil {
		return err
	}
	defer cancel()

	logger := s.Logger.WithSession(id).With("observer_id", observer)

	websocket.Handler(func(conn *websocket.Conn) {
		defer func() { _ = conn.Close() }()

		// Viewer bookkeeping must outlive the request context.
		ctx := context.WithoutCancel(c.Request().Context())
		if _, err := s.Registry.AddViewer(ctx, id, observer); err != nil {
			logger.Warn("add viewer failed", "error", err.Error())
		}
		defer func() {
			if _, err := s.Registry.RemoveViewer(ctx, id, observer); err != nil && !errors.IsNotFound(err) {
				logger.Warn("remove viewer failed", "error", err.Error())
			}
		}()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			_, _ = io.Copy(io.Discard, conn)
		}()

		logger.Debug("observer connected")
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					logger.Debug("event stream closed")
					return
				}
				if err := websocket.JSON.Send(conn, ev); err != nil {
					logger.Debug("observer send failed", "error", err.Error())
					return
				}
			case <-closed:
				logger.Debug("observer disconnected")
				return
			}
		}
	}).ServeHTTP(c.Response(), c.Request())

	return nil
}
