package resync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/live"
	"github.com/junaikey/livecache/pkg/logger"
)

// ErrGaveUp is returned by Run when the Retryer stops allowing attempts.
var ErrGaveUp = errors.New("resync: gave up re-establishing")

// Target is the part of a live page a Supervisor drives. *live.Page
// implements it for every entity type.
type Target interface {
	Errors() <-chan error
	Reestablish(ctx context.Context) error
	Scope() (live.Scope, bool)
}

// Supervisor re-establishes a Target after its subscriptions drop.
type Supervisor struct {
	target    Target
	retryer   Retryer
	reconnect func(ctx context.Context) error
	logger    logger.Logger

	onRecovered func(attempts int)
}

type Option func(*Supervisor)

func WithRetryer(r Retryer) Option {
	return func(s *Supervisor) {
		s.retryer = r
	}
}

// WithReconnect runs fn before every attempt, typically to replace a lost
// transport connection.
func WithReconnect(fn func(ctx context.Context) error) Option {
	return func(s *Supervisor) {
		s.reconnect = fn
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// OnRecovered registers fn to be called after each successful recovery with
// the number of attempts it took.
func OnRecovered(fn func(attempts int)) Option {
	return func(s *Supervisor) {
		s.onRecovered = fn
	}
}

func New(t Target, opts ...Option) *Supervisor {
	s := &Supervisor{
		target:  t,
		retryer: NewExponentialBackoffRetryer(),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run handles the target's errors until ctx is done or the target is closed.
// It returns nil when the target's Errors channel closes, and ErrGaveUp
// wrapping the last failure when the Retryer gives up.
func (s *Supervisor) Run(ctx context.Context) error {
	errs := s.target.Errors()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			if s.stale(err) {
				s.logger.Debug("Ignoring error of a replaced scope", "error", err.Error())
				continue
			}
			if err := s.recover(ctx, err); err != nil {
				return err
			}
		}
	}
}

// stale reports whether err belongs to a scope the target has already left.
func (s *Supervisor) stale(err error) bool {
	var se *live.SubscriptionError
	if !errors.As(err, &se) {
		return false
	}
	scope, ok := s.target.Scope()
	return ok && scope.ID != se.Scope
}

func (s *Supervisor) recover(ctx context.Context, cause error) error {
	s.logger.Warn("Re-establishing page", "cause", cause.Error())

	lastErr := cause
	for attempt := 0; ; attempt++ {
		delay, ok := s.retryer.NextDelay(attempt, lastErr)
		if !ok {
			return fmt.Errorf("%w after %d attempts: %w", ErrGaveUp, attempt, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		lastErr = s.attempt(ctx)
		switch {
		case lastErr == nil, errors.Is(lastErr, constants.ErrStaleScope):
			// A stale scope means someone else established a newer one.
			s.retryer.Reset()
			s.logger.Info("Page re-established", "attempts", attempt+1)
			if s.onRecovered != nil {
				s.onRecovered(attempt + 1)
			}
			return nil
		case errors.Is(lastErr, constants.ErrPageClosed):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}

		s.logger.Warn("Re-establishing failed",
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", lastErr.Error(),
		)
	}
}

func (s *Supervisor) attempt(ctx context.Context) error {
	if s.reconnect != nil {
		if err := s.reconnect(ctx); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
	}
	return s.target.Reestablish(ctx)
}
