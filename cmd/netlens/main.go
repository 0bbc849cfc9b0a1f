/*
 * NETCAP - Traffic Analysis Framework
 * Copyright (c) 2017-2020 Philipp Mieden <dreadl0ck [at] protonmail [dot] ch>
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Command netlens is a thin driver over the dissector/tracer/decoder
// libraries: it runs one analysis or trace against a capture file and
// prints the JSON result to stdout. Argument parsing and result
// persistence are intentionally minimal — this binary exists to
// exercise the library end to end, not to be a full-featured CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Matthewyin/nssa-netlens/decoder"
	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/internal/config"
	"github.com/Matthewyin/nssa-netlens/internal/metrics"
	"github.com/Matthewyin/nssa-netlens/tracer"
	"github.com/Matthewyin/nssa-netlens/types"
)

func main() {
	var (
		mode   = flag.String("mode", "", "trace-single | trace-two | analyze")
		pathA  = flag.String("file", "", "capture file (trace-single, analyze)")
		pathB  = flag.String("file2", "", "second capture file (trace-two)")
		kind   = flag.String("analysis", "summary", "analysis type: "+decoderNames())
		metricsAddr = flag.String("metrics-addr", os.Getenv("NETLENS_METRICS_ADDR"), "optional address to serve /metrics on")
	)

	flag.Parse()

	cfg := config.FromEnv()
	logger := config.NewLogger(cfg)

	defer func() { _ = logger.Sync() }()

	m := metrics.New(cfg.ExportMetrics || *metricsAddr != "", prometheus.DefaultRegisterer)

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	gw := dissector.New(cfg.TsharkPath, logger, m)

	if err := run(context.Background(), gw, logger, m, *mode, *pathA, *pathB, *kind); err != nil {
		emitError(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, gw *dissector.Gateway, logger *zap.Logger, m *metrics.Metrics, mode, pathA, pathB, kind string) error {
	if pathA != "" {
		if _, err := os.Stat(pathA); err != nil {
			return fmt.Errorf("File not found: %s", pathA)
		}
	}

	switch mode {
	case "trace-single":
		t := tracer.New(gw, logger, m)

		start := time.Now()
		result, err := t.TraceSingle(ctx, pathA)
		m.ObserveTraceDuration("single", time.Since(start).Seconds())

		if err != nil {
			return err
		}

		return emit(result)

	case "trace-two":
		if _, err := os.Stat(pathB); err != nil {
			return fmt.Errorf("File not found: %s", pathB)
		}

		t := tracer.New(gw, logger, m)

		start := time.Now()
		result, err := t.TraceTwo(ctx, pathA, pathB)
		m.ObserveTraceDuration("two", time.Since(start).Seconds())

		if err != nil {
			return err
		}

		return emit(result)

	case "analyze":
		result, err := decoder.Run(ctx, kind, gw, pathA)
		if err != nil {
			return err
		}

		return emit(result)

	default:
		return fmt.Errorf("unknown mode %q: expected trace-single, trace-two or analyze", mode)
	}
}

func emit(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func emitError(err error) {
	_ = emit(types.ErrorResult{Error: err.Error()})
}

func decoderNames() string {
	names := decoder.Names()

	out := ""

	for i, n := range names {
		if i > 0 {
			out += "|"
		}

		out += n
	}

	return out
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec // local diagnostics endpoint
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
