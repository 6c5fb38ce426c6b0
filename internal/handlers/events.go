package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lllllllleong/voicedocflow/internal/notify"
)

// handleEvents streams the caller's pipeline stage events as Server-Sent Events.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if a.deps.Broker == nil {
		http.Error(w, "Not Found: event stream disabled", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	owner := session(r).OwnerID
	logCtx := slog.With("ownerId", owner)

	// Soft cap: concurrent requests may overshoot it by a few streams.
	if limit := a.deps.MaxEventStreams; limit > 0 && a.deps.Broker.Subscribers() >= limit {
		logCtx.Warn("Event stream rejected: too many open streams.", "limit", limit)
		http.Error(w, "Service Unavailable: too many event streams", http.StatusServiceUnavailable)
		return
	}

	// Long-lived stream: lift the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logCtx.Debug("Could not disable write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cancel := a.deps.Broker.Subscribe(owner, 16)
	defer cancel()
	logCtx.Debug("Event stream opened.", "openStreams", a.deps.Broker.Subscribers())

	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(a.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e, open := <-events:
			if !open {
				return
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID(), notify.StageEventType, e.Data())
			flusher.Flush()
		}
	}
}
