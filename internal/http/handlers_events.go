package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	eventWriteDeadline = 5 * time.Second
	eventPingInterval  = 30 * time.Second
	eventPongDeadline  = 60 * time.Second
	eventBufferSize    = 16
)

// Event frame types.
const (
	EventSession       = "session"
	EventNotifications = "notifications"
)

type eventFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EventHandlers streams session and notification changes over a websocket.
type EventHandlers struct {
	Clock          clockwork.Clock
	Logger         *slog.Logger
	AllowedOrigins []string
}

func (h *EventHandlers) clock() clockwork.Clock {
	if h.Clock == nil {
		return clockwork.NewRealClock()
	}
	return h.Clock
}

func (h *EventHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Stream handles GET /api/events. The first two frames are the current session
// state and notification list; every later change follows as its own frame.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}

	// Subscribe before the snapshot so no change between the two is lost.
	sessions, cancelSessions := c.Session.Subscribe(eventBufferSize)
	defer cancelSessions()
	lists, cancelLists := c.Notifications.Subscribe(eventBufferSize)
	defer cancelLists()

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger().DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ew := &eventWriter{conn: conn}
	defer ew.close()

	done := make(chan struct{})
	go ew.readUntilClosed(done)

	if ew.send(eventFrame{Type: EventSession, Payload: c.Session.State()}) != nil ||
		ew.send(eventFrame{Type: EventNotifications, Payload: c.Notifications.List()}) != nil {
		return
	}

	ticker := h.clock().NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case st, ok := <-sessions:
			if !ok {
				return
			}
			err = ew.send(eventFrame{Type: EventSession, Payload: st})
		case list, ok := <-lists:
			if !ok {
				return
			}
			err = ew.send(eventFrame{Type: EventNotifications, Payload: list})
		case <-ticker.Chan():
			err = ew.ping()
		case <-done:
			return
		}
		if err != nil {
			h.logger().DebugContext(r.Context(), "websocket write failed", "client_id", c.ID, "error", err)
			return
		}
	}
}

// checkOrigin accepts same-host requests, requests without an Origin header and
// the configured CORS origins.
func (h *EventHandlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(h.AllowedOrigins, "*") || slices.Contains(h.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// eventWriter owns all writes to one connection; only the handler goroutine
// calls it. Socket deadlines always use wall time.
type eventWriter struct {
	conn *websocket.Conn
}

func (ew *eventWriter) send(f eventFrame) error {
	_ = ew.conn.SetWriteDeadline(time.Now().Add(eventWriteDeadline))
	return ew.conn.WriteJSON(f)
}

func (ew *eventWriter) ping() error {
	_ = ew.conn.SetWriteDeadline(time.Now().Add(eventWriteDeadline))
	return ew.conn.WriteMessage(websocket.PingMessage, nil)
}

// readUntilClosed drains client frames so pongs and close frames are processed.
func (ew *eventWriter) readUntilClosed(done chan<- struct{}) {
	defer close(done)
	_ = ew.conn.SetReadDeadline(time.Now().Add(eventPongDeadline))
	ew.conn.SetPongHandler(func(string) error {
		return ew.conn.SetReadDeadline(time.Now().Add(eventPongDeadline))
	})
	for {
		if _, _, err := ew.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (ew *eventWriter) close() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ew.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(eventWriteDeadline))
	_ = ew.conn.Close()
}
