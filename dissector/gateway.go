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

// Package dissector drives the external tshark binary: a row-oriented
// field stream for one record per packet, and a whole-file tree export
// of nested layer maps. Both operations degrade to empty/error results
// instead of panicking when the binary is unavailable, per the
// error-handling contract.
package dissector

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Matthewyin/nssa-netlens/internal/metrics"
	"github.com/Matthewyin/nssa-netlens/types"
)

// Gateway owns the resolved dissector binary path. The path is
// process-global configuration in spirit; SetPath is idempotent and
// safe to call repeatedly with the same value.
type Gateway struct {
	mu   sync.Mutex
	path string

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New constructs a Gateway, probing for a dissector binary immediately
// unless explicitPath is non-empty.
func New(explicitPath string, logger *zap.Logger, m *metrics.Metrics) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{logger: logger, metrics: m}

	if explicitPath != "" {
		g.SetPath(explicitPath)
	} else {
		g.SetPath(probe())
	}

	return g
}

// SetPath overwrites the resolved binary path. Repeated writes of the
// same value are harmless; an empty value marks the dissector
// unavailable.
func (g *Gateway) SetPath(path string) {
	g.mu.Lock()
	g.path = path
	g.mu.Unlock()
}

// Path returns the currently resolved binary path, or "" when unavailable.
func (g *Gateway) Path() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.path
}

// IsAvailable reports whether a dissector binary is known. It is a pure
// predicate: it does not re-probe or touch the filesystem.
func (g *Gateway) IsAvailable() bool {
	return g.Path() != ""
}

// FieldStream runs tshark in "-T fields" mode against path, projecting
// fields and optionally narrowing with a display filter, and returns a
// lazily-read channel of records plus an error channel that receives at
// most one value once the stream is fully drained (nil on success).
//
// The returned record channel is always closed; callers must range over
// it to completion (or abandon it by cancelling ctx) to avoid leaking
// the underlying subprocess. Cancelling ctx causes exec.CommandContext's
// own kill-on-cancel behavior to terminate the child before this
// function's goroutine returns, so no zombie is left behind.
func (g *Gateway) FieldStream(ctx context.Context, path string, fields []string, filter string) (<-chan types.Record, <-chan error) {
	records := make(chan types.Record)
	errc := make(chan error, 1)

	if !g.IsAvailable() {
		close(records)
		errc <- ErrUnavailable
		close(errc)

		return records, errc
	}

	args := []string{"-r", path, "-T", "fields", "-E", "separator=,", "-E", "header=y", "-E", "quote=d", "-E", "occurrence=f"}
	for _, f := range fields {
		args = append(args, "-e", f)
	}

	if filter != "" {
		args = append(args, "-Y", filter)
	}

	cmd := exec.CommandContext(ctx, g.Path(), args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		close(records)
		errc <- errors.Wrap(err, "dissector: failed to open stdout pipe")
		close(errc)

		return records, errc
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		close(records)
		errc <- errors.Wrap(ErrUnavailable, err.Error())
		close(errc)

		return records, errc
	}

	go g.pumpFieldStream(ctx, cmd, stdout, &stderr, records, errc)

	return records, errc
}

func (g *Gateway) pumpFieldStream(ctx context.Context, cmd *exec.Cmd, stdout io.ReadCloser, stderr *bytes.Buffer, records chan<- types.Record, errc chan<- error) {
	defer close(records)
	defer close(errc)

	reader := csv.NewReader(stdout)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		// An empty or truncated file yields no header; this is not an
		// error in itself, the stream is simply empty.
		_ = cmd.Wait()

		return
	}

	rows := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			// A malformed CSV row is a field-parse-level failure: skip it
			// and keep reading, matching the "row-level decoding errors
			// are silently skipped" rule.
			g.logger.Debug("dissector: skipping malformed row", zap.Error(err))

			continue
		}

		record := make(types.Record, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			} else {
				record[name] = ""
			}
		}

		select {
		case records <- record:
		case <-ctx.Done():
			// The consumer abandoned the stream; the child has been killed
			// by exec.CommandContext, so reap it before returning.
			_ = cmd.Wait()

			return
		}

		rows++
	}

	waitErr := cmd.Wait()
	g.metrics.IncRows("field_stream", rows)

	if waitErr != nil {
		g.metrics.IncErrors("field_stream")
		g.logger.Debug("dissector: field-stream exited non-zero; partial rows retained",
			zap.Error(waitErr), zap.String("stderr", stderr.String()))
		// Per the streaming contract, a non-zero exit mid-stream simply
		// ends the sequence; rows already yielded remain valid. The
		// failure is still forwarded on errc for diagnostics.
		errc <- &DissectorError{Stderr: stderr.String()}
	}
}

// TreeExport runs tshark in "-T json" mode and buffers the full decoded
// packet list. Memory is O(file); callers must apply a filter that is
// selective enough for their use case.
func (g *Gateway) TreeExport(ctx context.Context, path string, filter string, fields []string) ([]types.PacketObject, error) {
	if !g.IsAvailable() {
		return nil, ErrUnavailable
	}

	args := []string{"-r", path, "-T", "json"}
	if filter != "" {
		args = append(args, "-Y", filter)
	}

	for _, f := range fields {
		args = append(args, "-e", f)
	}

	cmd := exec.CommandContext(ctx, g.Path(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		g.metrics.IncErrors("tree_export")

		return nil, &DissectorError{Stderr: stderr.String()}
	}

	var packets []types.PacketObject
	if stdout.Len() == 0 {
		return packets, nil
	}

	if err := json.Unmarshal(stdout.Bytes(), &packets); err != nil {
		g.metrics.IncErrors("tree_export")

		return nil, &DissectorError{Stderr: "failed to parse tshark JSON output: " + err.Error()}
	}

	g.metrics.IncRows("tree_export", len(packets))

	return packets, nil
}
