package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/i474232898/safety-companion/internal/common"
	"github.com/i474232898/safety-companion/internal/store"
)

// Field is the document field the list is persisted under.
const Field = "recentSearches"

// DefaultLimit is how many searches are kept.
const DefaultLimit = 5

// ErrPersistenceUnavailable is returned alongside a valid in-memory result
// when the list could not be read from or written to the document store,
// including when there is no signed-in user. Callers may ignore it.
var ErrPersistenceUnavailable = errors.New("search history persistence unavailable")

// Store is one user's most-recent-first, de-duplicated, size-bounded list
// of searched place names. Mutations are serialized.
type Store struct {
	mu      sync.Mutex
	docs    store.DocumentStore
	userID  string
	limit   int
	entries []string
	logger  *slog.Logger
}

// New creates a Store for userID. An empty userID keeps the list in memory
// only. limit <= 0 uses DefaultLimit.
func New(docs store.DocumentStore, userID string, limit int, logger *slog.Logger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		docs:   docs,
		userID: userID,
		limit:  limit,
		logger: logger,
	}
}

// Load replaces the in-memory list with the persisted one. A missing
// document yields an empty list.
func (s *Store) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" || s.docs == nil {
		return s.snapshot(), s.unavailable(store.ErrNoIdentity)
	}

	doc, err := s.docs.Get(ctx, s.userID)
	if err != nil {
		return s.snapshot(), s.unavailable(err)
	}

	s.entries = normalize(doc.Strings(Field), s.limit)
	return s.snapshot(), nil
}

// Record inserts query at the front, or promotes it there if already
// present, then evicts from the tail beyond the limit. Blank queries are
// ignored.
func (s *Store) Record(ctx context.Context, query string) ([]string, error) {
	q := common.CollapseSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if q == "" {
		return s.snapshot(), nil
	}

	if i := slices.Index(s.entries, q); i >= 0 {
		s.entries = slices.Delete(s.entries, i, i+1)
	}
	s.entries = slices.Insert(s.entries, 0, q)
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}

	return s.snapshot(), s.persist(ctx)
}

// Remove deletes the entry matching query after the same whitespace
// normalization Record applies. Removing an absent entry changes nothing and
// writes nothing.
func (s *Store) Remove(ctx context.Context, query string) ([]string, error) {
	q := common.CollapseSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.entries, q)
	if i < 0 {
		return s.snapshot(), nil
	}
	s.entries = slices.Delete(s.entries, i, i+1)

	return s.snapshot(), s.persist(ctx)
}

// Entries returns the current in-memory list.
func (s *Store) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) persist(ctx context.Context) error {
	if s.userID == "" || s.docs == nil {
		return s.unavailable(store.ErrNoIdentity)
	}
	if err := s.docs.Merge(ctx, s.userID, store.Document{Field: s.snapshot()}); err != nil {
		return s.unavailable(err)
	}
	return nil
}

func (s *Store) unavailable(cause error) error {
	if errors.Is(cause, store.ErrNoIdentity) {
		s.logger.Debug("search history not persisted", "reason", cause)
	} else {
		s.logger.Warn("search history persistence failed", "user", s.userID, "error", cause)
	}
	return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, cause)
}

func (s *Store) snapshot() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// normalize drops blanks and duplicates from a persisted list, keeping the
// first occurrence, and enforces the limit.
func normalize(entries []string, limit int) []string {
	out := make([]string, 0, min(len(entries), limit))
	for _, e := range entries {
		e = common.CollapseSpace(e)
		if e == "" || slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}
