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

package decoder

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/Matthewyin/nssa-netlens/dissector"
)

// Analyzer is the uniform shape every aggregator in this package
// implements, so a caller can select one by name.
type Analyzer func(ctx context.Context, gw *dissector.Gateway, path string) (interface{}, error)

// registry is the process-wide analyzer name table, built once at
// package init.
var registry = map[string]Analyzer{
	"summary": func(ctx context.Context, gw *dissector.Gateway, path string) (interface{}, error) {
		return AnalyzeSummary(ctx, gw, path)
	},
	"http": func(ctx context.Context, gw *dissector.Gateway, path string) (interface{}, error) {
		return AnalyzeHTTP(ctx, gw, path)
	},
	"dns": func(ctx context.Context, gw *dissector.Gateway, path string) (interface{}, error) {
		return AnalyzeDNS(ctx, gw, path)
	},
	"tls": func(ctx context.Context, gw *dissector.Gateway, path string) (interface{}, error) {
		return AnalyzeTLS(ctx, gw, path)
	},
	"security": func(ctx context.Context, gw *dissector.Gateway, path string) (interface{}, error) {
		return AnalyzeSecurity(ctx, gw, path)
	},
	"tcp_sessions": func(ctx context.Context, gw *dissector.Gateway, path string) (interface{}, error) {
		return AnalyzeTCPSessions(ctx, gw, path)
	},
	"tcp_anomalies": func(ctx context.Context, gw *dissector.Gateway, path string) (interface{}, error) {
		return AnalyzeTCPAnomalies(ctx, gw, path)
	},
}

// Names returns the registered analyzer names in a stable, sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Run dispatches to the named analyzer. Unknown names are an
// argument-validation error, raised to the entry-point boundary per
// the error-handling contract (everything else degrades gracefully).
func Run(ctx context.Context, name string, gw *dissector.Gateway, path string) (interface{}, error) {
	analyzer, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("decoder: unknown analysis type %q", name)
	}

	result, err := analyzer(ctx, gw, path)
	if err != nil {
		return nil, errors.Wrapf(err, "decoder: %s analysis failed", name)
	}

	return result, nil
}
