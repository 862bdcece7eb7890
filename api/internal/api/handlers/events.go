package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"stockroom/api/internal/core/domain"
	"stockroom/api/internal/telemetry"
)

// ==============================================================================
// 1. WebSocket Configuration & Constants
// ==============================================================================

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// We only stream OUT, so inbound is tiny.
	maxMessageSize = 512
)


// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

// EventsHandler streams inventory mutations. Every text frame is a sealed JSON event.
type EventsHandler struct {
	Hub      *telemetry.Hub
	Sealer   domain.Sealer
	Logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewEventsHandler only upgrades requests whose Origin is in allowedOrigins.
// A request without an Origin header is not from a browser and is let through.
func NewEventsHandler(hub *telemetry.Hub, sealer domain.Sealer, allowedOrigins []string, logger *slog.Logger) *EventsHandler {
	origins := slices.Clone(allowedOrigins)
	return &EventsHandler{
		Hub:    hub,
		Sealer: sealer,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || slices.Contains(origins, "*") {
					return true
				}
				// 🛡️ CORS headers do not stop a cross-site WebSocket handshake
				return slices.ContainsFunc(origins, func(o string) bool {
					return strings.EqualFold(o, origin)
				})
			},
		},
	}
}

// Stream handles GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade WebSocket connection",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		return
	}

	events := h.Hub.Subscribe()
	done := make(chan struct{})

	// The read pump only exists to process Pong/Close and notice disconnects
	go h.readPump(ws, done)
	h.writePump(ws, events, done)
}

// ==============================================================================
// 3. The Write Pump
// ==============================================================================

func (h *EventsHandler) writePump(ws *websocket.Conn, events chan domain.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Hub.Unsubscribe(events)
		ws.Close()
	}()

	for {
		select {
		case <-done:
			return

		case e, ok := <-events:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}

			payload, err := json.Marshal(e)
			if err != nil {
				h.Logger.Error("Failed to encode event", slog.String("error", err.Error()))
				continue
			}

			sealed, err := h.Sealer.Seal(string(payload))
			if err != nil {
				h.Logger.Error("Failed to seal event", slog.String("error", err.Error()))
				return
			}

			if err := ws.WriteMessage(websocket.TextMessage, []byte(sealed)); err != nil {
				return // Drop the connection if writing fails (e.g., broken pipe)
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ==============================================================================
// 4. The Read Pump (Connection Keep-Alive)
// ==============================================================================

func (h *EventsHandler) readPump(ws *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Warn("WebSocket closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
	}
}
