// Package ratelimit implements the Rate Gate (spec §4.2): a scoped
// admission control enforcing a global concurrency cap and a per-host
// concurrency cap across every fetch issued by the crawler, regardless
// of which worker issues it. Structurally this generalizes the
// teacher's AdaptiveRateLimiter (internal/procurement/scraping/rate_limiter.go)
// from a per-domain delay scheduler into a strict admission gate with
// host-level backoff.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	xrate "golang.org/x/time/rate"
)

// Config configures the Rate Gate.
type Config struct {
	GlobalConcurrency  int
	PerHostConcurrency int
	GlobalRPS          float64 // smoothed process-wide request rate, 0 disables
	BackoffBase        time.Duration
	BackoffFactor      float64
	BackoffCap         time.Duration
	BackoffJitter      float64 // fraction, e.g. 0.25 for ±25%
}

// DefaultConfig matches spec §4.2's numbers.
func DefaultConfig() Config {
	return Config{
		GlobalConcurrency:  32,
		PerHostConcurrency: 2,
		GlobalRPS:          16,
		BackoffBase:        500 * time.Millisecond,
		BackoffFactor:      2.0,
		BackoffCap:         30 * time.Second,
		BackoffJitter:      0.25,
	}
}

// Gate is the process-local Rate Gate. Its mutex is held only around
// counter mutation, never across I/O (spec §5 "Locking discipline").
// Concurrency ceilings are enforced with buffered channels; the
// smoothed process-wide request rate is layered on top with
// golang.org/x/time/rate, the same token-bucket primitive the rest of
// the pack reaches for instead of a hand-rolled limiter.
type Gate struct {
	cfg      Config
	global   chan struct{}
	rpsLimit *xrate.Limiter

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	sem          chan struct{}
	attempts     int
	nextAdmitAt  time.Time
}

// New constructs a Gate. cfg.GlobalConcurrency and cfg.PerHostConcurrency
// are enforced regardless of which worker issues the fetch, since Gate is
// process-local and shared across all workers in one process (spec §5).
func New(cfg Config) *Gate {
	g := &Gate{
		cfg:    cfg,
		global: make(chan struct{}, cfg.GlobalConcurrency),
		hosts:  make(map[string]*hostState),
	}
	if cfg.GlobalRPS > 0 {
		g.rpsLimit = xrate.NewLimiter(xrate.Limit(cfg.GlobalRPS), int(cfg.GlobalRPS))
	}
	return g
}

// Release returns a slot to both the per-host and global buckets. It
// MUST be invoked on every exit path from whatever Acquire admitted
// (spec §4.2).
type Release func()

// Acquire blocks until a slot exists in both the global and per-host
// buckets for the registered domain of rawURL, honoring any backoff
// scheduled for that host. Returns a Release handle.
func (g *Gate) Acquire(ctx context.Context, rawURL string) (Release, error) {
	host, err := RegisteredDomain(rawURL)
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}

	hs := g.hostStateFor(host)

	if wait := g.waitUntilAdmitted(hs); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case hs.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case g.global <- struct{}{}:
	case <-ctx.Done():
		<-hs.sem
		return nil, ctx.Err()
	}

	if g.rpsLimit != nil {
		if err := g.rpsLimit.Wait(ctx); err != nil {
			<-g.global
			<-hs.sem
			return nil, err
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		<-g.global
		<-hs.sem
	}, nil
}

func (g *Gate) waitUntilAdmitted(hs *hostState) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if hs.nextAdmitAt.IsZero() {
		return 0
	}
	if d := time.Until(hs.nextAdmitAt); d > 0 {
		return d
	}
	return 0
}

// RecordTransientFailure schedules this host's next admission at
// now + backoff(attempts), using exponential backoff with jitter (spec
// §4.2). Call this for 429/5xx responses; do not call it for
// robots_disallowed, invalid_mime, or off_domain_link (those are never
// retried, per spec §7).
func (g *Gate) RecordTransientFailure(host string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	hs := g.hosts[host]
	if hs == nil {
		hs = &hostState{sem: make(chan struct{}, g.cfg.PerHostConcurrency)}
		g.hosts[host] = hs
	}
	hs.attempts++
	hs.nextAdmitAt = time.Now().Add(g.backoff(hs.attempts))
}

// RecordSuccess resets a host's backoff attempt counter.
func (g *Gate) RecordSuccess(host string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if hs := g.hosts[host]; hs != nil {
		hs.attempts = 0
		hs.nextAdmitAt = time.Time{}
	}
}

func (g *Gate) backoff(attempts int) time.Duration {
	d := float64(g.cfg.BackoffBase)
	for i := 1; i < attempts; i++ {
		d *= g.cfg.BackoffFactor
	}
	cap := float64(g.cfg.BackoffCap)
	if d > cap {
		d = cap
	}
	jitter := (rand.Float64()*2 - 1) * g.cfg.BackoffJitter
	d = d * (1 + jitter)
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func (g *Gate) hostStateFor(host string) *hostState {
	g.mu.Lock()
	defer g.mu.Unlock()
	hs, ok := g.hosts[host]
	if !ok {
		hs = &hostState{sem: make(chan struct{}, g.cfg.PerHostConcurrency)}
		g.hosts[host] = hs
	}
	return hs
}

// RegisteredDomain returns the eTLD+1 (registered domain) of a URL's
// host, used for per-host bucketing (spec §4.2) and the same-host rule
// (spec §4.4, §8 invariant 2). An IP literal maps to itself.
func RegisteredDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("url has no host: %s", rawURL)
	}
	if isIPLiteral(host) {
		return host, nil
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Unknown suffix (e.g. a bare single-label host in tests): fall
		// back to the host itself rather than failing admission.
		return host, nil
	}
	return domain, nil
}

func isIPLiteral(host string) bool {
	for _, r := range host {
		if r == ':' {
			return true // IPv6 literal
		}
	}
	var dots int
	for _, r := range host {
		if r == '.' {
			dots++
		} else if r < '0' || r > '9' {
			return false
		}
	}
	return dots == 3
}
