package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/LibraryRAG/internal/metrics"
	"github.com/akolanti/LibraryRAG/internal/rag/notify"
)

const eventsHeartbeat = 15 * time.Second

// EventsHandler godoc
// @Summary      Stream ingestion notifications
// @Description  Server-sent events, one "ingestion.completed" event per thesis that finished processing.
// @Tags         Events
// @Produce      text/event-stream
// @Success      200  {object}  notify.Event
// @Router       /events [get]
func EventsHandler(w http.ResponseWriter, r *http.Request) {
	if handlerInstance == nil || handlerInstance.events == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Events are not enabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Streaming unsupported")
		return
	}

	// the server write timeout would cut the stream
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logRH.Debug("Write deadline not cleared", "error", err)
	}

	events, cancel := handlerInstance.events.Subscribe()
	defer cancel()
	metrics.EventSubscriberOpened()
	defer metrics.EventSubscriberClosed()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(w, event); err != nil {
				logRH.Debug("Event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.EventId, event.EventType, payload)
	return err
}
