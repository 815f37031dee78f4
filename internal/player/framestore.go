package player

import (
	"sync"
	"time"
)

// Store holds the most recently decoded frame plus a dirty flag signaling
// an unconsumed new frame. The decode worker is the only writer and the
// presentation consumer is the only reader that clears; anything else may
// only peek.
type Store struct {
	mu      sync.Mutex
	frame   *Frame
	dirty   bool
	gen     uint64
	arrival time.Time
	changed chan struct{}
}

// NewStore returns an empty frame store.
func NewStore() *Store {
	return &Store{changed: make(chan struct{})}
}

// Write installs a new frame, marks it unconsumed and records its arrival
// time. Called only by the decode worker.
func (s *Store) Write(f *Frame) {
	s.mu.Lock()
	s.frame = f
	s.dirty = true
	s.gen++
	s.arrival = time.Now()
	ch := s.changed
	s.changed = make(chan struct{})
	s.mu.Unlock()
	close(ch)
}

// ReadAndClear returns the stored frame and whether it is new since the
// last read, clearing the dirty flag. Called only by the presentation
// consumer.
func (s *Store) ReadAndClear() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := s.dirty
	s.dirty = false
	return s.frame, fresh
}

// Peek returns the stored frame without consuming it.
func (s *Store) Peek() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Dirty reports whether an unconsumed frame is stored.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Generation returns the total number of writes so far.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Arrival returns the wall-clock time the current frame was installed.
func (s *Store) Arrival() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arrival
}

// WaitGeneration blocks until at least `want` writes have happened, then
// returns the stored frame. Returns ErrSync if the deadline passes first.
// Used by the thumbnail path to wait for the frame a seek produces.
func (s *Store) WaitGeneration(want uint64, timeout time.Duration) (*Frame, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		s.mu.Lock()
		if s.gen >= want {
			f := s.frame
			s.mu.Unlock()
			return f, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-deadline.C:
			return nil, ErrSync
		}
	}
}
