package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/reel/pkg/domain"
)

// StreamManager fans render events out to SSE subscribers.
type StreamManager struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // RenderID -> set of channels
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a subscriber for renderID. The returned function unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(renderID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[renderID]; !ok {
		sm.subscribers[renderID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[renderID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[renderID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, renderID)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of renderID without blocking.
func (sm *StreamManager) Broadcast(renderID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[renderID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "render_id", renderID)
		}
	}
}

// Hooks returns lifecycle hooks broadcasting frame and finish events.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFrameCaptured: func(_ context.Context, e *domain.FrameEvent) {
			sm.publish(e.RenderID, e)
		},
		OnRenderFinish: func(_ context.Context, e *domain.RenderEvent) {
			payload := map[string]any{
				"type":      e.Type,
				"render_id": e.RenderID,
				"duration":  e.Duration.String(),
			}
			if e.Outcome != nil {
				payload["outcome"] = e.Outcome.Kind.String()
				payload["frames_captured"] = e.Outcome.FramesCaptured
				if e.Outcome.Err != nil {
					payload["error"] = e.Outcome.Err.Error()
				}
			}
			sm.publish(e.RenderID, payload)
		},
	}
}

func (sm *StreamManager) publish(renderID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		sm.logger.Error("SSE: encode event failed", "err", err)
		return
	}
	sm.Broadcast(renderID, string(data))
}

// SubscribeEvents handles GET /renders/{id}/events as a Server-Sent Events stream
// that ends when the render finishes.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	id, err := renderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, ok := s.lookup(id)
	if !ok {
		http.Error(w, domain.ErrRenderNotFound.Error(), http.StatusNotFound)
		return
	}

	events, unsubscribe := s.streams.Subscribe(id)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-events:
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		case <-job.Done():
			for {
				select {
				case event := <-events:
					fmt.Fprintf(w, "data: %s\n\n", event)
				default:
					st := statusOf(job)
					if data, err := json.Marshal(st); err == nil {
						fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
					}
					flusher.Flush()
					return
				}
			}
		}
	}
}
