package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/storewizard/pkg/domain"
)

// StreamManager fans session events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // session key -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for the session's events. The
// returned function unregisters and closes it.
func (sm *StreamManager) Subscribe(sessionKey string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[sessionKey]; !ok {
		sm.subscribers[sessionKey] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionKey][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionKey]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionKey)
			}
		}
	}
}

// Broadcast delivers msg to every subscriber of the session. Slow clients
// lose messages rather than blocking the wizard.
func (sm *StreamManager) Broadcast(sessionKey string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionKey] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "session_key", sessionKey)
		}
	}
}

// Hooks returns lifecycle hooks publishing every event to its session stream.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepChange: func(_ context.Context, e *domain.StepEvent) {
			sm.publish(e.SessionKey, e)
		},
		OnValidation: func(_ context.Context, e *domain.ValidationEvent) {
			sm.publish(e.SessionKey, e)
		},
		OnAutosave: func(_ context.Context, e *domain.AutosaveEvent) {
			sm.publish(e.SessionKey, e)
		},
		OnSubmissionStep: func(_ context.Context, e *domain.SubmissionEvent) {
			sm.publish(e.SessionKey, e)
		},
	}
}

func (sm *StreamManager) publish(sessionKey string, event any) {
	if sessionKey == "" {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		sm.logger.Warn("SSE: failed to encode event", "session_key", sessionKey, "err", err)
		return
	}
	sm.Broadcast(sessionKey, string(data))
}
