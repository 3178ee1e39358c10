// Command tokenpair-loadtest drives authenticate, refresh and logout
// against an engine whose revocation ledger lives in Redis, and reports
// throughput and latency percentiles per phase.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/MrEthical07/tokenpair"
	"github.com/MrEthical07/tokenpair/identity"
	"github.com/MrEthical07/tokenpair/ledger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type options struct {
	subjects    int
	workers     int
	ops         int
	redisAddr   string
	ledgerScope string
}

func main() {
	var o options
	flag.IntVar(&o.subjects, "subjects", 10000, "token pairs issued before the run")
	flag.IntVar(&o.workers, "concurrency", 256, "concurrent workers per phase")
	flag.IntVar(&o.ops, "ops", 200000, "operations in the authenticate and refresh phases")
	flag.StringVar(&o.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address; an in-process miniredis when empty")
	flag.StringVar(&o.ledgerScope, "prefix", "loadtest:revoked", "ledger key prefix")
	flag.Parse()

	if o.subjects <= 0 || o.workers <= 0 || o.ops <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency and ops must be positive")
		os.Exit(2)
	}
	if err := run(context.Background(), o); err != nil {
		fmt.Fprintln(os.Stderr, "loadtest:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	client, stop, err := dialRedis(o.redisAddr)
	if err != nil {
		return err
	}
	defer stop()

	engine, err := buildEngine(client, o.ledgerScope, o.subjects)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	began := time.Now()
	pairs := make([]*tokenpair.LoginResult, o.subjects)
	for i := range pairs {
		if pairs[i], err = engine.IssuePair(ctx, subjectFor(i)); err != nil {
			return fmt.Errorf("issue pair %d: %w", i, err)
		}
	}
	fmt.Printf("issued %d pairs in %s\n", len(pairs), time.Since(began).Round(time.Millisecond))

	results := []phaseResult{
		runPhase("authenticate", o.ops, o.workers, func(r *mrand.Rand) error {
			_, err := engine.Authenticate(ctx, pairs[r.IntN(len(pairs))].AccessToken)
			return err
		}),
		runPhase("refresh", o.ops, o.workers, func(r *mrand.Rand) error {
			_, err := engine.Refresh(ctx, pairs[r.IntN(len(pairs))].RefreshToken)
			return err
		}),
	}

	// Every pair is logged out exactly once.
	var next atomic.Int64
	results = append(results, runPhase("logout", len(pairs), o.workers, func(*mrand.Rand) error {
		return engine.Logout(ctx, pairs[next.Add(1)-1].RefreshToken)
	}))

	report(os.Stdout, results)
	fmt.Printf("audit events dropped: %d\n", engine.AuditDropped())
	return nil
}

func dialRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		c := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("redis: %s\n", addr)
		return c, func() { _ = c.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	c := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("redis: in-process miniredis at %s\n", mr.Addr())
	return c, func() {
		_ = c.Close()
		mr.Close()
	}, nil
}

func buildEngine(client redis.UniversalClient, prefix string, n int) (*tokenpair.Engine, error) {
	cfg := tokenpair.DefaultConfig()
	cfg.Tokens.SigningKey = randomKey(32)
	cfg.Tokens.EncryptionKey = randomKey(32)
	cfg.Tokens.AccessTTL = time.Hour
	cfg.Tokens.RefreshTTL = 24 * time.Hour

	dir := identity.NewMemoryDirectory()
	for i := range n {
		err := dir.Put(identity.Identity{
			Subject:               subjectFor(i),
			Roles:                 []identity.Role{identity.RoleUser},
			Enabled:               true,
			AccountNonExpired:     true,
			AccountNonLocked:      true,
			CredentialsNonExpired: true,
		})
		if err != nil {
			return nil, err
		}
	}

	return tokenpair.New().
		WithConfig(cfg).
		WithLedger(ledger.NewRedisLedger(client, prefix)).
		WithIdentityProvider(dir).
		WithLatencyHistograms(true).
		Build()
}

type phaseResult struct {
	name    string
	elapsed time.Duration
	samples []time.Duration
	errors  int64
}

// runPhase spreads ops calls of op over workers goroutines. Each worker
// records into its own slice; they are merged once all are done.
func runPhase(name string, ops, workers int, op func(*mrand.Rand) error) phaseResult {
	var (
		wg      sync.WaitGroup
		claimed atomic.Int64
		errs    atomic.Int64
	)
	perWorker := make([][]time.Duration, workers)

	began := time.Now()
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := mrand.New(mrand.NewPCG(uint64(w), uint64(began.UnixNano())))
			for claimed.Add(1) <= int64(ops) {
				t0 := time.Now()
				if err := op(r); err != nil {
					errs.Add(1)
				}
				perWorker[w] = append(perWorker[w], time.Since(t0))
			}
		}()
	}
	wg.Wait()

	res := phaseResult{name: name, elapsed: time.Since(began), errors: errs.Load()}
	for _, s := range perWorker {
		res.samples = append(res.samples, s...)
	}
	slices.Sort(res.samples)
	return res
}

// quantile reads q from sorted samples by nearest rank.
func (r phaseResult) quantile(q float64) time.Duration {
	if len(r.samples) == 0 {
		return 0
	}
	i := int(q * float64(len(r.samples)-1))
	return r.samples[min(max(i, 0), len(r.samples)-1)]
}

func report(out io.Writer, results []phaseResult) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "phase\tops\terrors\telapsed\tops/s\tp50\tp95\tp99\t")
	for _, r := range results {
		rate := 0.0
		if r.elapsed > 0 {
			rate = float64(len(r.samples)) / r.elapsed.Seconds()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.0f\t%s\t%s\t%s\t\n",
			r.name, len(r.samples), r.errors,
			r.elapsed.Round(time.Millisecond), rate,
			r.quantile(0.50).Round(time.Microsecond),
			r.quantile(0.95).Round(time.Microsecond),
			r.quantile(0.99).Round(time.Microsecond))
	}
	_ = tw.Flush()
}

func subjectFor(i int) string {
	return fmt.Sprintf("user-%d@loadtest.local", i)
}

func randomKey(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}
