package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/vidgate/vidgate/log"
)

// ErrNoStrategy is returned when every candidate strategy failed.
var ErrNoStrategy = errors.New("no strategy resolved the url")

// DefaultAttemptTimeout bounds one strategy attempt.
const DefaultAttemptTimeout = 30 * time.Second

// Strategy is one pluggable resolution algorithm.
type Strategy interface {
	// Name identifies the strategy in results, history and logs.
	Name() string
	// CanHandle reports whether the strategy applies to the URL.
	CanHandle(url, site string) bool
	// Resolve attempts to produce a playable stream for the URL.
	Resolve(ctx context.Context, url, site string) (*Media, error)
}

// Chain tries strategies in registration order, short-circuiting on the
// first success. Each attempt runs under its own timeout; a timed-out
// attempt is abandoned and the chain proceeds.
type Chain struct {
	strategies     []Strategy
	attemptTimeout time.Duration
}

// NewChain constructs a Chain. A non-positive timeout uses the default.
func NewChain(attemptTimeout time.Duration, strategies ...Strategy) *Chain {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Chain{strategies: strategies, attemptTimeout: attemptTimeout}
}

// Register appends a strategy to the chain.
func (c *Chain) Register(s Strategy) {
	c.strategies = append(c.strategies, s)
}

// Resolve runs the chain. When preferred names a registered strategy it is
// tried first and returned immediately on success. Elapsed time is measured
// chain-wide.
func (c *Chain) Resolve(ctx context.Context, url, site, preferred string) *Result {
	start := time.Now()

	if preferred != "" {
		for _, s := range c.strategies {
			if s.Name() != preferred {
				continue
			}
			if media, err := c.attempt(ctx, s, url, site); err == nil {
				return success(media, s.Name(), time.Since(start))
			}
			break
		}
	}

	for _, s := range c.strategies {
		if !s.CanHandle(url, site) {
			continue
		}

		media, err := c.attempt(ctx, s, url, site)
		if err != nil {
			log.Debugf("resolver: %s failed for %s: %v", s.Name(), url, err)
			continue
		}

		return success(media, s.Name(), time.Since(start))
	}

	return failure(ErrNoStrategy, time.Since(start))
}

// attempt runs one strategy under the attempt timeout. A strategy that never
// returns is abandoned: its result is discarded and the goroutine is left to
// finish on its own once its context fires.
func (c *Chain) attempt(ctx context.Context, s Strategy, url, site string) (*Media, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	type outcome struct {
		media *Media
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		media, err := s.Resolve(attemptCtx, url, site)
		done <- outcome{media, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.media == nil || out.media.URL == "" {
			return nil, errors.New("strategy returned empty media")
		}
		return out.media, nil
	case <-attemptCtx.Done():
		return nil, attemptCtx.Err()
	}
}
