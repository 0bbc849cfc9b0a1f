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

// Package config centralizes the environment-derived settings shared by
// the dissector, tracer and decoder packages.
package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config carries the small set of knobs the library needs: dissector
// location, debug/metrics gating and timeouts. nssa-netlens has no
// persistence layer of its own, so Config stays narrow.
type Config struct {
	// TsharkPath overrides the dissector binary probe when non-empty.
	TsharkPath string

	// Debug selects zap's development (debug-level) logger in NewLogger.
	// It does not turn on the chain builder's spew dumps; those are
	// controlled only by tracer.ChainOptions.Debug.
	Debug bool

	// ExportMetrics gates whether prometheus counters/histograms are
	// registered and updated.
	ExportMetrics bool

	// DissectorTimeout holds the parsed NETLENS_DISSECTOR_TIMEOUT value.
	// No package in this module applies it: dissector invocations are
	// bounded only by cancelling the context passed to them.
	DissectorTimeout time.Duration
}

// FromEnv builds a Config from the process environment.
func FromEnv() Config {
	cfg := Config{
		TsharkPath:    os.Getenv("TSHARK_PATH"),
		Debug:         boolEnv("NETLENS_DEBUG"),
		ExportMetrics: boolEnv("NETLENS_METRICS"),
	}

	if v := os.Getenv("NETLENS_DISSECTOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DissectorTimeout = d
		}
	}

	return cfg
}

func boolEnv(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}

	return b
}

// NewLogger builds the zap.Logger that callers pass to dissector.New and
// tracer.New, switching between development and production encoders
// based on cfg.Debug.
func NewLogger(cfg Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)

	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		// Fall back to a no-op logger rather than crashing the caller;
		// logging must never be the reason analysis fails.
		return zap.NewNop()
	}

	return logger
}
