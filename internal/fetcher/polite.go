package fetcher

import (
	"context"
	"fmt"
	"net/url"

	"datahunt/pkg/types"
)

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, target *url.URL) bool
}

// Polite wraps a Fetcher with robots.txt checks and per-host throttling.
// Either collaborator may be nil.
type Polite struct {
	next    Fetcher
	robots  RobotsPolicy
	limiter *HostLimiter
}

// NewPolite decorates next.
func NewPolite(next Fetcher, robots RobotsPolicy, limiter *HostLimiter) *Polite {
	return &Polite{next: next, robots: robots, limiter: limiter}
}

// Fetch checks robots rules, waits for the host's turn, then delegates.
func (p *Polite) Fetch(ctx context.Context, req types.FetchRequest) (*types.Page, error) {
	if req.URL == nil {
		return p.next.Fetch(ctx, req)
	}
	if p.robots != nil && !p.robots.Allowed(ctx, req.URL) {
		return nil, fmt.Errorf("%s: %w", req.URL.String(), ErrDisallowed)
	}
	if err := p.limiter.Wait(ctx, req.URL.Hostname()); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", req.URL.Hostname(), err)
	}
	return p.next.Fetch(ctx, req)
}
