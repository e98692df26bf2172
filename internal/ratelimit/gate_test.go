package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegisteredDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/page":  "example.com",
		"https://sub.example.co.uk/x":   "example.co.uk",
		"http://192.168.1.1:8080/a":     "192.168.1.1",
		"https://example.com":           "example.com",
	}
	for in, want := range cases {
		got, err := RegisteredDomain(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// TestPerHostConcurrencyCeiling asserts that no more than
// PerHostConcurrency callers hold an admitted slot for the same host at
// once, per spec §4.2 and §8 invariant 1.
func TestPerHostConcurrencyCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GlobalConcurrency = 100
	cfg.PerHostConcurrency = 2
	cfg.GlobalRPS = 0
	g := New(cfg)

	const n = 20
	var inFlight int32
	var maxSeen int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			release, err := g.Acquire(ctx, "https://same-host.example/page")
			if err != nil {
				return
			}
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if cur <= old || atomic.CompareAndSwapInt32(&maxSeen, old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			release()
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, int(maxSeen), 2, "per-host concurrency ceiling must never be exceeded")
}

func TestRecordTransientFailureDelaysAdmission(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BackoffBase = 50 * time.Millisecond
	cfg.BackoffJitter = 0
	g := New(cfg)

	host, err := RegisteredDomain("https://slow.example/page")
	require.NoError(t, err)
	g.RecordTransientFailure(host)

	start := time.Now()
	release, err := g.Acquire(context.Background(), "https://slow.example/page")
	require.NoError(t, err)
	defer release()
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
