package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/resonarr/backend/internal/broker"
	"github.com/resonarr/backend/internal/db"
	"github.com/resonarr/backend/internal/discovery"
	"github.com/resonarr/backend/internal/middleware"
)

// SSEHandler serves the Server-Sent Events stream carrying discovery results
// and notifications. Each stream is one discovery connection: it gets a fresh
// connection ID, a session in the engine, and a broker subscription scoped to
// that ID.
type SSEHandler struct {
	broker  *broker.Broker
	engine  *discovery.Engine
	queries *db.Queries
}

// NewSSEHandler creates an SSEHandler bridging the broker to HTTP.
func NewSSEHandler(b *broker.Broker, engine *discovery.Engine, queries *db.Queries) *SSEHandler {
	return &SSEHandler{broker: b, engine: engine, queries: queries}
}

// Stream opens the event stream. The first event is "connected" with the
// connection ID the client must echo in discovery actions. A heartbeat
// comment goes out every 30 seconds to keep the connection alive through
// proxies. When the client goes away the discovery session is torn down.
func (h *SSEHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	lastfmUsername := ""
	if user, err := h.queries.GetUserByID(r.Context(), claims.UserID); err == nil {
		lastfmUsername = user.LastfmUsername
	} else if err != sql.ErrNoRows {
		slog.Warn("loading user for stream", "error", err)
	}

	connID := uuid.NewString()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := h.broker.Subscribe(connID)
	defer h.broker.Unsubscribe(connID, ch)
	defer h.engine.Disconnect(connID)

	writeEvent(w, discovery.EventConnected, map[string]string{"connectionId": connID})
	flusher.Flush()

	h.engine.Connect(connID, claims.UserID, claims.IsAdmin, lastfmUsername)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			writeEvent(w, ev.Name, ev.Payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// writeEvent frames one named event with a JSON payload.
func writeEvent(w http.ResponseWriter, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("dropping unserializable event", "event", name, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
