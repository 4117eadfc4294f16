package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/observe"
	"github.com/vango-dev/propagate/pkg/property"
)

// Bench kinds.
const (
	benchInvalidation = "invalidation"
	benchChange       = "change"
	benchCollection   = "collection"
)

type benchConfig struct {
	Kind      string
	Listeners int
	Passes    int
	Weak      bool
}

type benchReport struct {
	Kind        string      `json:"kind"`
	Listeners   int         `json:"listeners"`
	Passes      int         `json:"passes"`
	Weak        bool        `json:"weak"`
	Invocations int64       `json:"invocations"`
	ElapsedMS   float64     `json:"elapsed_ms"`
	PerPassNS   float64     `json:"per_pass_ns"`
	PerCallNS   float64     `json:"per_call_ns"`
	LatencyUS   latencyInfo `json:"latency_us"`
	AllocMB     float64     `json:"alloc_mb"`
	NumGC       uint32      `json:"num_gc"`
}

type latencyInfo struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

func benchCmd() *cobra.Command {
	var (
		cfg      benchConfig
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure notification throughput",
		Long: `Register N listeners on one observable and fire M passes.

Kinds:
  invalidation  property invalidation listeners, one Set per pass
  change        property change listeners, one Set per pass
  collection    set collection listeners, one Add per pass`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runBench(cfg)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			writeSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.Kind, "kind", "k", benchChange, "Listener kind: invalidation, change, collection")
	cmd.Flags().IntVarP(&cfg.Listeners, "listeners", "n", 100, "Listeners per observable")
	cmd.Flags().IntVarP(&cfg.Passes, "passes", "m", 10000, "Notification passes")
	cmd.Flags().BoolVar(&cfg.Weak, "weak", false, "Register weak listeners")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

// runBench fires cfg.Passes notification passes and reports their cost.
func runBench(cfg benchConfig) (benchReport, error) {
	if cfg.Listeners < 0 || cfg.Passes <= 0 {
		return benchReport{}, fmt.Errorf("listeners must be >= 0 and passes > 0")
	}

	var calls atomic.Int64
	var fire func(i int) error
	// Weak listeners stay reachable through owners for the whole run.
	var owners []*int

	switch cfg.Kind {
	case benchInvalidation:
		p := property.New(0)
		for range cfg.Listeners {
			p.AddInvalidationListener(observe.OnInvalidated(func(observe.Observable) {
				calls.Add(1)
			}))
		}
		fire = func(i int) error { return p.Set(i + 1) }

	case benchChange:
		p := property.New(0)
		for range cfg.Listeners {
			if cfg.Weak {
				owner := new(int)
				owners = append(owners, owner)
				p.AddChangeListener(observe.WeakChange(owner, func(_ *int, _ observe.Observable, _, _ int) {
					calls.Add(1)
				}))
				continue
			}
			p.AddChangeListener(observe.OnChanged(func(observe.Observable, int, int) {
				calls.Add(1)
			}))
		}
		fire = func(i int) error { return p.Set(i + 1) }

	case benchCollection:
		s := collections.NewSet[int]()
		for range cfg.Listeners {
			s.AddCollectionListener(observe.OnCollectionChanged(func(observe.Observable, observe.Delta[int]) {
				calls.Add(1)
			}))
		}
		fire = func(i int) error { return s.Add(i) }

	default:
		return benchReport{}, fmt.Errorf("unknown kind %q", cfg.Kind)
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	latencies := make([]time.Duration, 0, cfg.Passes)
	start := time.Now()
	for i := range cfg.Passes {
		t := time.Now()
		if err := fire(i); err != nil {
			return benchReport{}, err
		}
		latencies = append(latencies, time.Since(t))
	}
	elapsed := time.Since(start)

	runtime.ReadMemStats(&after)
	runtime.KeepAlive(owners)

	slices.Sort(latencies)
	report := benchReport{
		Kind:        cfg.Kind,
		Listeners:   cfg.Listeners,
		Passes:      cfg.Passes,
		Weak:        cfg.Weak,
		Invocations: calls.Load(),
		ElapsedMS:   ms(elapsed),
		PerPassNS:   float64(elapsed.Nanoseconds()) / float64(cfg.Passes),
		LatencyUS: latencyInfo{
			P50: us(percentile(latencies, 0.50)),
			P95: us(percentile(latencies, 0.95)),
			P99: us(percentile(latencies, 0.99)),
			Max: us(percentile(latencies, 1)),
		},
		AllocMB: float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
		NumGC:   after.NumGC - before.NumGC,
	}
	if report.Invocations > 0 {
		report.PerCallNS = float64(elapsed.Nanoseconds()) / float64(report.Invocations)
	}
	return report, nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func writeSummary(w io.Writer, r benchReport) {
	fmt.Fprintln(w, "=== propagate bench ===")
	fmt.Fprintf(w, "Kind: %s (weak=%v)\n", r.Kind, r.Weak)
	fmt.Fprintf(w, "Listeners: %d\n", r.Listeners)
	fmt.Fprintf(w, "Passes: %d\n", r.Passes)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Invocations: %d\n", r.Invocations)
	fmt.Fprintf(w, "Elapsed: %.2f ms\n", r.ElapsedMS)
	fmt.Fprintf(w, "Per pass: %.1f ns\n", r.PerPassNS)
	fmt.Fprintf(w, "Per call: %.1f ns\n", r.PerCallNS)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Pass latency:")
	fmt.Fprintf(w, "  p50: %.2f us\n", r.LatencyUS.P50)
	fmt.Fprintf(w, "  p95: %.2f us\n", r.LatencyUS.P95)
	fmt.Fprintf(w, "  p99: %.2f us\n", r.LatencyUS.P99)
	fmt.Fprintf(w, "  max: %.2f us\n", r.LatencyUS.Max)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Alloc: %.2f MB, GC cycles: %d\n", r.AllocMB, r.NumGC)
}
