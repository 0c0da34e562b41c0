package httpapi

import (
	"context"
	"log/slog"
	"sync"

	"github.com/i474232898/safety-companion/internal/history"
	"github.com/i474232898/safety-companion/internal/store"
)

// maxCachedUsers bounds the per-user cache. Evicted users are reloaded from
// the document store on their next request.
const maxCachedUsers = 1024

// histories keeps one loaded history.Store per user so that concurrent
// requests for the same user are serialized by that store.
type histories struct {
	mu     sync.Mutex
	docs   store.DocumentStore
	limit  int
	max    int
	logger *slog.Logger
	users  map[string]*history.Store
}

func newHistories(docs store.DocumentStore, limit int, logger *slog.Logger) *histories {
	return &histories{
		docs:   docs,
		limit:  limit,
		max:    maxCachedUsers,
		logger: logger,
		users:  make(map[string]*history.Store),
	}
}

// get returns the user's store, loading it on first use. Anonymous callers
// get a fresh in-memory store and a persistence error.
func (h *histories) get(ctx context.Context, userID string) (*history.Store, error) {
	if userID == "" {
		s := history.New(h.docs, "", h.limit, h.logger)
		_, err := s.Load(ctx)
		return s, err
	}

	h.mu.Lock()
	s, ok := h.users[userID]
	h.mu.Unlock()
	if ok {
		return s, nil
	}

	s = history.New(h.docs, userID, h.limit, h.logger)
	if _, err := s.Load(ctx); err != nil {
		// Not cached; the next request retries the load.
		return s, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.users[userID]; ok {
		return existing, nil
	}
	if len(h.users) >= h.max {
		for id := range h.users {
			delete(h.users, id)
			break
		}
	}
	h.users[userID] = s
	return s, nil
}
