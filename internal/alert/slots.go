package alert

import (
	"sync"
	"time"

	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/weather"
)

// SlotID names a tracking context such as the device location or the last
// searched place.
type SlotID string

const (
	SlotCurrentLocation  SlotID = "current-location"
	SlotSearchedLocation SlotID = "searched-location"
)

// Slot holds exactly one baseline reading plus the most recent coordinate
// observed for it.
type Slot struct {
	ID           SlotID           `json:"id"`
	Baseline     *weather.Reading `json:"baseline,omitempty"`
	Coordinate   geo.Coordinate   `json:"coordinate"`
	LocationName string           `json:"locationName,omitempty"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	alerted      bool
	alertedName  string
	alertedCoord geo.Coordinate

	// touched is the sequence number of the latest fetch begun for the slot.
	touched   uint64
	committed uint64
}

// DefaultMaxSlots bounds how many slots a SlotStore tracks.
const DefaultMaxSlots = 256

// SlotStore is an in-memory, concurrency-safe set of tracked slots. When full,
// observing a new slot evicts the least recently observed one.
type SlotStore struct {
	mu    sync.RWMutex
	slots map[SlotID]*Slot
	max   int
	clock uint64
}

func NewSlotStore() *SlotStore {
	return NewBoundedSlotStore(DefaultMaxSlots)
}

// NewBoundedSlotStore tracks at most max slots; max <= 0 uses DefaultMaxSlots.
func NewBoundedSlotStore(max int) *SlotStore {
	if max <= 0 {
		max = DefaultMaxSlots
	}
	return &SlotStore{
		slots: make(map[SlotID]*Slot),
		max:   max,
	}
}

// Len returns the number of tracked slots.
func (s *SlotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// Get returns a copy of the slot.
func (s *SlotStore) Get(id SlotID) (Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return Slot{}, false
	}
	return slot.clone(), true
}

// List returns copies of every tracked slot.
func (s *SlotStore) List() []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, slot.clone())
	}
	return out
}

// begin registers a new fetch for the slot, recording the coordinate being
// observed, and returns its sequence number. Sequence numbers are unique
// across the store so a recreated slot never mistakes an old fetch for a new one.
func (s *SlotStore) begin(id SlotID, coord geo.Coordinate, name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[id]
	if !ok {
		if len(s.slots) >= s.max {
			s.evictOldest()
		}
		slot = &Slot{ID: id}
		s.slots[id] = slot
	}
	s.clock++
	slot.touched = s.clock
	slot.Coordinate = coord
	if name != "" {
		slot.LocationName = name
	}
	return s.clock
}

// commit runs fn against the slot under the write lock. A fetch whose
// sequence number is older than the last committed one, or whose slot was
// evicted while it was in flight, is dropped without calling fn; commit
// reports whether fn ran.
func (s *SlotStore) commit(id SlotID, seq uint64, fn func(slot *Slot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[id]
	if !ok || seq < slot.committed {
		return false
	}

	fn(slot)
	slot.committed = seq
	return true
}

func (s *SlotStore) evictOldest() {
	var (
		oldest  SlotID
		touched uint64
		found   bool
	)
	for id, slot := range s.slots {
		if !found || slot.touched < touched {
			oldest, touched, found = id, slot.touched, true
		}
	}
	if found {
		delete(s.slots, oldest)
	}
}

func (s Slot) clone() Slot {
	out := s
	if s.Baseline != nil {
		r := *s.Baseline
		out.Baseline = &r
	}
	return out
}
