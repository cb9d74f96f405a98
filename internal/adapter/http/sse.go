package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/service"
)

// SSEHandler streams transcode status transitions for one video as JSON
// server-sent events, so a client can follow a video from uploaded to
// streamable without polling.
type SSEHandler struct {
	eventBus *service.EventBus
	videoSvc VideoService
}

func NewSSEHandler(eventBus *service.EventBus, videoSvc VideoService) *SSEHandler {
	return &SSEHandler{
		eventBus: eventBus,
		videoSvc: videoSvc,
	}
}

func sseWrite(w http.ResponseWriter, eventName string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func terminal(status string) bool {
	return status == string(domain.StatusReady) || status == string(domain.StatusFailed)
}

func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")

		v, err := h.videoSvc.Get(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// Send current state first
		sseWrite(w, "status", toVideoResponse(v))
		if terminal(string(v.Status)) {
			return
		}

		ch := h.eventBus.Subscribe(token)
		defer h.eventBus.Unsubscribe(token, ch)

		ctx := r.Context()
		keepAlive := time.NewTicker(15 * time.Second)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case event, ok := <-ch:
				if !ok {
					return
				}
				sseWrite(w, "status", event)
				if terminal(event.Status) {
					return
				}
			}
		}
	}
}
