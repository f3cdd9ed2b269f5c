package llm

import (
	"context"
	"fmt"

	logx "github.com/fieldops-copilot/server/pkg/logger"
)

// Selector routes completions to a primary provider and retries once against
// the fallback when the primary fails or is unavailable. Both references are
// fixed at construction; there is no hidden mutable current-provider state.
type Selector struct {
	primary  Provider
	fallback Provider
}

// NewSelector builds a selector. fallback must never fail; the deterministic
// scripted provider satisfies that.
func NewSelector(primary, fallback Provider) (*Selector, error) {
	if fallback == nil {
		return nil, fmt.Errorf("selector: fallback provider is required")
	}
	return &Selector{primary: primary, fallback: fallback}, nil
}

// Primary returns the name of the primary provider, or the fallback's name
// when no primary is configured.
func (s *Selector) Primary() string {
	if s.primary != nil {
		return s.primary.Name()
	}
	return s.fallback.Name()
}

// Complete tries the primary provider and falls back once on failure. The
// error is non-nil only when the fallback itself also fails.
func (s *Selector) Complete(ctx context.Context, req Request) (*Response, error) {
	if s.primary != nil && s.primary.IsAvailable() {
		resp, err := s.primary.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		logx.Warn().
			Err(err).
			Str("provider", s.primary.Name()).
			Str("fallback", s.fallback.Name()).
			Msg("primary provider failed, retrying against fallback")
	}

	resp, err := s.fallback.Complete(ctx, req)
	if err != nil {
		return nil, Fail(s.fallback.Name(), err)
	}
	return resp, nil
}
