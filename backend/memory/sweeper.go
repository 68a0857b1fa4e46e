package memory

import (
	"context"
	"time"
)

// Start launches the background sweeper if it is not already running.
// It is idempotent: at most one sweeper runs per store. After Close, Start
// is a no-op.
func (s *Store) Start() {
	s.life.Lock()
	defer s.life.Unlock()
	if s.closed || s.running() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go s.sweepLoop(ctx, done)
}

// Running reports whether the background sweeper is alive.
func (s *Store) Running() bool {
	s.life.Lock()
	defer s.life.Unlock()
	return s.running()
}

func (s *Store) running() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Stop cancels the background sweeper and waits for it to exit or for ctx to
// end. A sweeper cancelled while waiting for the lock never acquires it.
// Stopping a store without a sweeper is a no-op.
func (s *Store) Stop(ctx context.Context) error {
	s.life.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.life.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the sweeper for good. Entries stay readable.
func (s *Store) Close(ctx context.Context) error {
	s.life.Lock()
	s.closed = true
	s.life.Unlock()
	return s.Stop(ctx)
}

func (s *Store) sweepLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.lockContext(ctx); err != nil {
				return
			}
			s.sweep(s.now())
			s.unlock()
		}
	}
}
