// Command passport-loadtest measures token validation and token rotation
// throughput against a Redis-backed directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/MrEthical07/goPassport/directory/redisdir"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type principalState struct {
	id    string
	token string
	mu    sync.Mutex
}

func main() {
	var (
		principals  = flag.Int("principals", 10000, "number of principals to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (authenticate + extend)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, PASSPORT_REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "passport-load", "key prefix")
	)
	flag.Parse()

	if *principals <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "principals, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("PASSPORT_REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	store := redisdir.NewStore(client, redisdir.Config{Prefix: *prefix})

	cfg := goPassport.DefaultConfig()
	cfg.JWT.Secret = []byte("passport-loadtest-secret-0123456789abcdef")
	cfg.JWT.AccessTTL = time.Hour
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	issuer, err := goPassport.NewJWTManager(cfg.JWT)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jwt manager: %v\n", err)
		os.Exit(1)
	}
	engine, err := goPassport.New().
		WithConfig(cfg).
		WithDirectory(store).
		WithHasher(noHasher{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]principalState, *principals)
	fmt.Printf("seeding %d principals...\n", *principals)
	startSeed := time.Now()
	for i := range states {
		p, err := store.Create(ctx, fmt.Sprintf("load-%d", i), "-")
		if err != nil {
			fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
			os.Exit(1)
		}
		token, err := issuer.Issue(p.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		if err := store.AddToken(ctx, p.ID, token); err != nil {
			fmt.Fprintf(os.Stderr, "add token failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = principalState{id: p.ID, token: token}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, states, func(st *principalState) bool {
		st.mu.Lock()
		token := st.token
		st.mu.Unlock()
		return engine.Authenticate(ctx, request("/user/profile", token)).Authenticated()
	})
	extendStats := runPhase(*ops, *concurrency, states, func(st *principalState) bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		next, err := issuer.Issue(st.id)
		if err != nil {
			return false
		}
		if err := store.ReplaceToken(ctx, st.id, st.token, next); err != nil {
			return false
		}
		st.token = next
		return true
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("extend", extendStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: authenticated=%d invalid=%d unknown=%d\n",
		snap.Counters[goPassport.MetricTokenAuthenticated],
		snap.Counters[goPassport.MetricTokenInvalid],
		snap.Counters[goPassport.MetricTokenUnknown],
	)
}

// noHasher satisfies the builder; the load test never verifies passwords.
type noHasher struct{}

func (noHasher) Compare(string, string) (bool, error) { return false, nil }

func request(path, token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func runPhase(ops, concurrency int, states []principalState, op func(*principalState) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if int(cursor.Add(1)) > ops {
					return
				}
				st := &states[rand.IntN(len(states))]
				t0 := time.Now()
				ok := op(st)
				d := time.Since(t0)
				if !ok {
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures.Load())
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	slices.Sort(samples)
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
