package progress

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/interfaces"
)

// Handler upgrades HTTP requests to WebSocket connections and streams a
// single job's progress events to the client as JSON text frames.
type Handler struct {
	bus      *Bus
	logger   arbor.ILogger
	upgrader websocket.Upgrader
}

// NewHandler builds a Handler. readBuf/writeBuf size the upgrader's I/O
// buffers; origins are not restricted since this is a local control surface.
func NewHandler(bus *Bus, readBuf, writeBuf int, logger arbor.ILogger) *Handler {
	return &Handler{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// wireEvent is the JSON shape sent over the wire for each progress event.
type wireEvent struct {
	Type    interfaces.ProgressEventType `json:"type"`
	JobID   string                       `json:"job_id"`
	Payload map[string]interface{}       `json:"payload,omitempty"`
}

// ServeHTTP upgrades the connection and streams events for the job named by
// the "job_id" query parameter until the client disconnects or the job's
// subscription is torn down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		http.Error(w, "job_id query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn().Err(err).Msg("progress: failed to upgrade websocket connection")
		}
		return
	}
	defer conn.Close()

	events, unsubscribe := h.bus.SubscribeChan(jobID)
	defer unsubscribe()

	// Drain client-initiated frames (pings, close) on a separate goroutine so a
	// silent client doesn't block event delivery; exit the handler once the
	// read side errors (disconnect or protocol violation).
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-disconnected:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(wireEvent{Type: event.Type, JobID: event.JobID, Payload: event.Payload})
			if err != nil {
				if h.logger != nil {
					h.logger.Warn().Err(err).Msg("progress: failed to marshal event")
				}
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
