package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/minimact-dev/minimact/internal/stubserver"
	"github.com/minimact-dev/minimact/pkg/transport"
)

type benchConfig struct {
	Clients      int
	Duration     time.Duration
	PayloadBytes int
	JSONOutput   string
}

type benchCounters struct {
	invocationsSent     atomic.Uint64
	invocationsComplete atomic.Uint64
	failures            atomic.Uint64
}

func newBenchCmd() *cobra.Command {
	cfg := benchConfig{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark invocation round-trips through the full transport",
		Long: `Bench starts an in-process minimact stub server, connects the
given number of clients over real WebSockets, and drives blocking
invocations as fast as they complete, reporting latency percentiles
as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Clients <= 0 {
				return fmt.Errorf("--clients must be > 0")
			}
			if cfg.Duration <= 0 {
				return fmt.Errorf("--duration must be > 0")
			}
			return runBench(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.Clients, "clients", 10, "number of concurrent clients")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 10*time.Second, "benchmark duration")
	cmd.Flags().IntVar(&cfg.PayloadBytes, "payload-bytes", 24, "bytes of payload per invocation")
	cmd.Flags().StringVar(&cfg.JSONOutput, "json", "-", "JSON output path ('-' for stdout)")

	return cmd
}

func runBench(ctx context.Context, cfg benchConfig) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := stubserver.New(logger)
	srv.Responder = func(target string, args []json.RawMessage) (any, string) {
		if len(args) > 0 {
			var payload string
			if err := json.Unmarshal(args[0], &payload); err == nil {
				return payload, ""
			}
		}
		return nil, ""
	}

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	httpServer := &http.Server{Handler: srv.Handler()}
	go func() { _ = httpServer.Serve(ln) }()
	defer func() { _ = httpServer.Shutdown(context.Background()) }()

	wsURL := "ws://" + ln.Addr().String() + stubserver.WSPath

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		counters  benchCounters
		samplesMu sync.Mutex
		samples   []time.Duration
	)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		go func(clientID int) {
			defer wg.Done()
			if err := runBenchClient(runCtx, wsURL, clientID, cfg, &counters, func(rtt time.Duration) {
				samplesMu.Lock()
				samples = append(samples, rtt)
				samplesMu.Unlock()
			}); err != nil {
				counters.failures.Add(1)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := buildBenchReport(cfg, elapsed, latencies, &counters)
	writeBenchSummary(os.Stderr, report)
	return writeBenchJSON(cfg.JSONOutput, report)
}

func runBenchClient(
	ctx context.Context,
	wsURL string,
	clientID int,
	cfg benchConfig,
	counters *benchCounters,
	sample func(time.Duration),
) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conn := transport.New(wsURL, transport.WithLogger(logger))
	if err := conn.Start(ctx); err != nil {
		return err
	}
	defer conn.Stop()

	payload := makePayload(clientID, cfg.PayloadBytes)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		counters.invocationsSent.Add(1)
		if _, err := conn.Invoke(ctx, "Echo", payload); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		counters.invocationsComplete.Add(1)
		sample(time.Since(start))
	}
}

func makePayload(clientID, size int) string {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte('a' + (clientID+i)%26)
	}
	return string(buf)
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

type benchReport struct {
	Clients      int     `json:"clients"`
	DurationMS   int64   `json:"duration_ms"`
	PayloadBytes int     `json:"payload_bytes"`
	Sent         uint64  `json:"invocations_sent"`
	Complete     uint64  `json:"invocations_complete"`
	Failures     uint64  `json:"client_failures"`
	PerSecond    float64 `json:"invocations_per_sec"`
	MinMS        float64 `json:"latency_min_ms"`
	P50MS        float64 `json:"latency_p50_ms"`
	P95MS        float64 `json:"latency_p95_ms"`
	P99MS        float64 `json:"latency_p99_ms"`
	MaxMS        float64 `json:"latency_max_ms"`
}

func buildBenchReport(cfg benchConfig, elapsed time.Duration, latencies []time.Duration, counters *benchCounters) benchReport {
	complete := counters.invocationsComplete.Load()
	report := benchReport{
		Clients:      cfg.Clients,
		DurationMS:   cfg.Duration.Milliseconds(),
		PayloadBytes: cfg.PayloadBytes,
		Sent:         counters.invocationsSent.Load(),
		Complete:     complete,
		Failures:     counters.failures.Load(),
		PerSecond:    float64(complete) / math.Max(0.001, elapsed.Seconds()),
	}
	if len(latencies) > 0 {
		report.MinMS = ms(latencies[0])
		report.P50MS = ms(percentile(latencies, 0.50))
		report.P95MS = ms(percentile(latencies, 0.95))
		report.P99MS = ms(percentile(latencies, 0.99))
		report.MaxMS = ms(latencies[len(latencies)-1])
	}
	return report
}

func writeBenchSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== minimact transport benchmark ===")
	fmt.Fprintf(w, "Clients: %d\n", report.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Invocations: %d complete / %d sent (%d client failures)\n",
		report.Complete, report.Sent, report.Failures)
	fmt.Fprintf(w, "Throughput: %.1f invocations/s\n", report.PerSecond)
	fmt.Fprintln(w, "RTT:")
	fmt.Fprintf(w, "  min: %.2f ms\n", report.MinMS)
	fmt.Fprintf(w, "  p50: %.2f ms\n", report.P50MS)
	fmt.Fprintf(w, "  p95: %.2f ms\n", report.P95MS)
	fmt.Fprintf(w, "  p99: %.2f ms\n", report.P99MS)
	fmt.Fprintf(w, "  max: %.2f ms\n", report.MaxMS)
}

func writeBenchJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
