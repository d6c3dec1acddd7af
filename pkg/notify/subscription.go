package notify

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrAlreadyOpen = errors.New("subscription already open")

// Subscription owns the lifecycle of a push channel: Open starts delivering events
// to the handler, Close stops and waits for delivery to end.
//
// When the transport drops, it is run again after a fixed delay. There is no
// backoff: a zero delay means the subscription simply ends.
type Subscription struct {
	transport      Transport
	handler        Handler
	reconnectDelay time.Duration
	logger         zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SubscriptionOption func(*Subscription)

func WithReconnectDelay(d time.Duration) SubscriptionOption {
	return func(s *Subscription) { s.reconnectDelay = d }
}

func WithLogger(l zerolog.Logger) SubscriptionOption {
	return func(s *Subscription) { s.logger = l }
}

func NewSubscription(t Transport, h Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if t == nil {
		return nil, errors.New("subscription transport is nil")
	}
	if h == nil {
		return nil, errors.New("subscription handler is nil")
	}
	s := &Subscription{
		transport: t,
		handler:   h,
		logger:    log.With().Str("component", "notify").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Subscription) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyOpen
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done)
	return nil
}

// Done is closed once delivery has stopped. It is nil before Open.
func (s *Subscription) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Subscription) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (s *Subscription) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	emit := func(ev Event) {
		if ev.ReceivedAt.IsZero() {
			ev.ReceivedAt = time.Now()
		}
		s.logger.Debug().Str("event", ev.Name).Int("bytes", len(ev.Data)).Msg("push event received")
		s.handler.HandleEvent(ctx, ev)
	}

	for {
		err := s.transport.Run(ctx, emit)
		if ctx.Err() != nil {
			s.logger.Debug().Msg("push channel closed")
			return
		}
		if s.reconnectDelay <= 0 {
			s.logger.Warn().Err(err).Msg("push channel ended")
			return
		}
		s.logger.Warn().Err(err).Dur("retry_in", s.reconnectDelay).Msg("push channel dropped")

		t := time.NewTimer(s.reconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
