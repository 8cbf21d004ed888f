package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "bindings to allocate")
		length      = flag.Int("length", internal.OpaqueIDLength, "opaque id length")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "bench::emailId::", "binding key prefix")
		attempts    = flag.Int("max-attempts", 8, "allocation attempts before giving up")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *length <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and length must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	client, cleanup, err := openRedis(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	alphabet, n := internal.OpaqueIDAlphabet, *length
	store := stores.NewBindingStore(client, *prefix,
		func() (string, error) { return internal.NewOpaqueID(alphabet, n) },
		*attempts,
	)

	stats, ids := allocateAll(ctx, store, *ops, *concurrency)

	fmt.Println("---- results ----")
	stats.print("allocate")

	if dup := countDuplicates(ids); dup > 0 {
		fmt.Fprintf(os.Stderr, "FAIL: %d duplicate ids handed out\n", dup)
		os.Exit(1)
	}
	fmt.Printf("distinct ids: %d\n", len(ids))

	missing := 0
	for _, id := range ids {
		ok, err := store.Exists(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "exists check failed: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			missing++
		}
	}
	if missing > 0 {
		fmt.Fprintf(os.Stderr, "FAIL: %d allocated ids have no binding\n", missing)
		os.Exit(1)
	}

	purged, err := store.DeleteMatching(ctx, store.Pattern())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("purged %d bindings\n", purged)
}

// allocateAll spreads ops allocations over concurrency workers, one fresh
// email and code per binding.
func allocateAll(ctx context.Context, store *stores.BindingStore, ops, concurrency int) (summary, []string) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		ids       = make([]string, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				email := fmt.Sprintf("bench-%d@example.com", i)
				code, err := internal.NewOTP()
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}

				t0 := time.Now()
				id, err := store.Allocate(ctx, time.Hour, func(id string) stores.Binding {
					return stores.Binding{Email: email, CodeHash: internal.HashOTP(id, code)}
				})
				d := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, d)
				if err == nil {
					ids = append(ids, id)
				}
				mu.Unlock()
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	return summary{elapsed: elapsed, samples: latencies, failures: failures}, ids
}

func countDuplicates(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	dup := 0
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			dup++
			continue
		}
		seen[id] = struct{}{}
	}
	return dup
}

// openRedis connects to addr, then REDIS_ADDR, and falls back to an
// in-process miniredis.
func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

type summary struct {
	elapsed  time.Duration
	samples  []time.Duration
	failures int64
}

func (s summary) quantile(q float64) time.Duration {
	if len(s.samples) == 0 {
		return 0
	}
	return s.samples[int(q*float64(len(s.samples)-1))]
}

func (s summary) print(name string) {
	rate := 0.0
	if s.elapsed > 0 {
		rate = float64(len(s.samples)) / s.elapsed.Seconds()
	}
	fmt.Printf("%s: ops=%d failures=%d elapsed=%s ops/sec=%.0f p50=%s p95=%s p99=%s max=%s\n",
		name, len(s.samples), s.failures, s.elapsed.Round(time.Millisecond), rate,
		s.quantile(0.50).Round(time.Microsecond),
		s.quantile(0.95).Round(time.Microsecond),
		s.quantile(0.99).Round(time.Microsecond),
		s.quantile(1).Round(time.Microsecond),
	)
}
