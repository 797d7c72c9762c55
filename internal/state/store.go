package state

import (
	"context"
	"image"
	"sync"

	"github.com/FerdiWoo/nowbar/internal/domain"
	"github.com/FerdiWoo/nowbar/internal/sampler"
	"go.uber.org/zap"
)

// Snapshot is the now-playing record read by consumers. Artwork and
// Palette are shared references: treat them as immutable.
type Snapshot struct {
	Track   string
	Artist  string
	Album   string
	Playing bool

	// Position and Duration are seconds
	Position float64
	Duration float64

	Artwork image.Image
	Color   sampler.RGBA
	Palette []sampler.RGBA
}

// Cleared returns the sentinel snapshot shown while nothing plays
func Cleared() Snapshot {
	return Snapshot{
		Track:  domain.NoTrackName,
		Artist: domain.UnknownArtist,
		Album:  domain.UnknownAlbum,
		Color:  sampler.White,
	}
}

// Observer receives a copy of the snapshot after each mutation.
// Observers run serially on the store's writer goroutine and must not block.
type Observer func(Snapshot)

// Store owns the shared now-playing state. All mutations are funneled
// through a single writer goroutine started by Run, so there is exactly
// one writer regardless of how many components enqueue updates.
type Store struct {
	logger  *zap.Logger
	updates chan func(*Snapshot)

	mu      sync.RWMutex
	current Snapshot

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObsID int
}

// NewStore creates a store holding the cleared sentinel state
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger:    logger,
		updates:   make(chan func(*Snapshot), 16),
		current:   Cleared(),
		observers: make(map[int]Observer),
	}
}

// Run consumes mutations until the context is cancelled. It must be
// running for Apply to make progress.
func (s *Store) Run(ctx context.Context) {
	s.logger.Debug("State store started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("State store stopped")
			return
		case mutate := <-s.updates:
			s.mu.Lock()
			mutate(&s.current)
			snap := s.current
			s.mu.Unlock()
			s.notify(snap)
		}
	}
}

// Apply enqueues a mutation for the writer goroutine. The function
// receives the live snapshot and may modify it freely; observers are
// notified once it returns.
func (s *Store) Apply(mutate func(*Snapshot)) {
	s.updates <- mutate
}

// Current returns a copy of the latest snapshot
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers an observer and returns a cancel function that
// removes it. The observer is not called with the current state on
// registration, only on subsequent mutations.
func (s *Store) Subscribe(obs Observer) func() {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = obs
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.obsMu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}
