// Package view holds the state of the greeting screen for one mount.
package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/narvanalabs/hellostack/pkg/logger"
)

// Fetcher fetches the text the screen displays.
type Fetcher interface {
	GetGreeting(ctx context.Context) (string, error)
}

// Screen is the state of one mounted greeting screen. Mount starts a single
// fetch whose result replaces the message; Unmount cancels the fetch and
// discards anything that arrives afterwards.
type Screen struct {
	id      string
	fetcher Fetcher
	logger  *logger.Logger

	mu        sync.RWMutex
	message   string
	err       error
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScreen creates an unmounted screen with an empty message.
func NewScreen(fetcher Fetcher, log *logger.Logger) *Screen {
	if log == nil {
		log = &logger.Logger{Logger: slog.Default()}
	}
	return &Screen{
		id:      uuid.NewString(),
		fetcher: fetcher,
		logger:  log,
		done:    make(chan struct{}),
	}
}

// ID returns the mount id used in logs.
func (s *Screen) ID() string {
	return s.id
}

// Mount starts the fetch. The fetch runs until it settles, ctx is done or
// Unmount is called. Only the first call has any effect.
func (s *Screen) Mount(ctx context.Context) {
	s.mu.Lock()
	if s.mounted || s.unmounted {
		s.mu.Unlock()
		return
	}
	s.mounted = true

	ctx = logger.ContextWithMountID(ctx, s.id)
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go s.fetch(ctx)
}

func (s *Screen) fetch(ctx context.Context) {
	defer close(s.done)

	message, err := s.fetcher.GetGreeting(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unmounted {
		return
	}

	if err != nil {
		s.err = err
		if ctx.Err() != nil {
			// The view went away; not a fetch failure.
			return
		}
		s.logger.WithContext(ctx).Error("failed to fetch greeting", "error", err)
		return
	}

	s.message = message
}

// Unmount cancels an in-flight fetch and waits for it to return. The message
// is never written after Unmount returns.
func (s *Screen) Unmount() {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.unmounted = true
	mounted := s.mounted
	cancel := s.cancel
	s.mu.Unlock()

	if !mounted {
		close(s.done)
		return
	}

	cancel()
	<-s.done
}

// Done returns a channel that is closed once the fetch has settled or the
// screen was unmounted.
func (s *Screen) Done() <-chan struct{} {
	return s.done
}

// Message returns the text to display.
func (s *Screen) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

// Err returns the error of a failed fetch, if any.
func (s *Screen) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
