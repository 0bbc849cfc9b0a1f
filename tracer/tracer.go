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

package tracer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/internal/metrics"
	"github.com/Matthewyin/nssa-netlens/types"
)

const maxUnmatchedSessions = 50

// Tracer is the public façade over session extraction, matching and
// chain assembly. A single Tracer may be reused across invocations;
// its chain-id counter lives inside BuildChains and resets every call.
type Tracer struct {
	Gateway *dissector.Gateway
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// New constructs a Tracer over an already-configured Gateway.
func New(gw *dissector.Gateway, logger *zap.Logger, m *metrics.Metrics) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracer{Gateway: gw, Logger: logger, Metrics: m}
}

// TraceSingle reconstructs request chains within one capture file.
func (t *Tracer) TraceSingle(ctx context.Context, path string) (*types.TraceResult, error) {
	sessions, err := ExtractSessions(ctx, t.Gateway, path, "", t.Logger)
	if err != nil {
		t.Logger.Debug("trace_single: extraction ended early", zap.Error(err))
	}

	byID := sessionsByKey(sessions)
	if err := HarvestHeaders(ctx, t.Gateway, path, byID); err != nil {
		t.Logger.Debug("trace_single: header harvest ended early", zap.Error(err))
	}

	var edges []Edge
	edges = append(edges, MatchByFingerprint(sessions)...)
	edges = append(edges, MatchByHTTPHeader(sessions, false)...)
	edges = append(edges, MatchByTimingAndSize(sessions)...)

	opts := ChainOptions{
		IncludePackets: true,
		FilePath:       func(string) (string, bool) { return path, true },
	}

	chains := BuildChains(ctx, t.Gateway, edges, opts, t.Logger)

	result := assembleResult(sessions, chains)
	result.RunID = uuid.NewString()
	result.Stats.TotalSessions = len(sessions)

	if t.Metrics != nil {
		t.Metrics.AddChainsFound(len(chains))
	}

	return result, nil
}

// TraceTwo reconstructs request chains spanning two independent
// captures, tagging sessions "file1" and "file2" respectively.
func (t *Tracer) TraceTwo(ctx context.Context, pathA, pathB string) (*types.TraceResult, error) {
	sessionsA, errA := ExtractSessions(ctx, t.Gateway, pathA, "file1", t.Logger)
	if errA != nil {
		t.Logger.Debug("trace_two: file1 extraction ended early", zap.Error(errA))
	}

	sessionsB, errB := ExtractSessions(ctx, t.Gateway, pathB, "file2", t.Logger)
	if errB != nil {
		t.Logger.Debug("trace_two: file2 extraction ended early", zap.Error(errB))
	}

	byIDA := sessionsByKey(sessionsA)
	if err := HarvestHeaders(ctx, t.Gateway, pathA, byIDA); err != nil {
		t.Logger.Debug("trace_two: file1 header harvest ended early", zap.Error(err))
	}

	byIDB := sessionsByKey(sessionsB)
	if err := HarvestHeaders(ctx, t.Gateway, pathB, byIDB); err != nil {
		t.Logger.Debug("trace_two: file2 header harvest ended early", zap.Error(err))
	}

	var edges []Edge
	edges = append(edges, MatchCrossFile(sessionsA, sessionsB)...)
	edges = append(edges, MatchByFingerprint(sessionsA)...)
	edges = append(edges, MatchByHTTPHeader(sessionsA, false)...)
	edges = append(edges, MatchByFingerprint(sessionsB)...)
	edges = append(edges, MatchByHTTPHeader(sessionsB, false)...)

	fileMap := map[string]string{"file1": pathA, "file2": pathB}
	opts := ChainOptions{
		IncludePackets: true,
		FilePath: func(tag string) (string, bool) {
			p, ok := fileMap[tag]

			return p, ok
		},
	}

	all := append(append([]*types.SessionInfo{}, sessionsA...), sessionsB...)

	chains := BuildChains(ctx, t.Gateway, edges, opts, t.Logger)

	result := assembleResult(all, chains)
	result.RunID = uuid.NewString()
	result.Stats.TotalSessions = len(all)
	result.Stats.File1Sessions = len(sessionsA)
	result.Stats.File2Sessions = len(sessionsB)

	if t.Metrics != nil {
		t.Metrics.AddChainsFound(len(chains))
	}

	return result, nil
}

// assembleResult computes unmatched sessions and method statistics from
// the full session set and the assembled chains.
func assembleResult(sessions []*types.SessionInfo, chains []*types.SessionChain) *types.TraceResult {
	matched := make(map[string]bool)
	methodsUsed := make(map[string]int)
	matchedSessionCount := 0

	for _, c := range chains {
		methodsUsed[baseMethod(c.Method)]++

		seen := make(map[string]bool)

		for _, h := range c.Hops {
			key := h.File + ":" + h.SessionID
			matched[key] = true

			if !seen[key] {
				seen[key] = true

				matchedSessionCount++
			}
		}
	}

	var unmatched []types.UnmatchedSession

	for _, s := range sessions {
		if matched[s.Key()] {
			continue
		}

		unmatched = append(unmatched, types.UnmatchedSession{
			SessionID: s.SessionID,
			Src:       endpoint(s.SrcIP, s.SrcPort),
			Dst:       endpoint(s.DstIP, s.DstPort),
			Packets:   s.PacketCount,
			File:      s.FileSource,
		})
	}

	if len(unmatched) > maxUnmatchedSessions {
		unmatched = unmatched[:maxUnmatchedSessions]
	}

	return &types.TraceResult{
		Chains:            orEmptyChains(chains),
		UnmatchedSessions: unmatched,
		Stats: types.TraceStats{
			MatchedChains:   len(chains),
			MatchedSessions: matchedSessionCount,
			MethodsUsed:     methodsUsed,
		},
	}
}

// baseMethod strips a cross-file ":<name>" suffix (e.g.
// "http_header:x-request-id") so stats.methods_used aggregates all
// header-match variants under a single bucket.
func baseMethod(method string) string {
	if i := strings.IndexByte(method, ':'); i >= 0 {
		return method[:i]
	}

	return method
}

func orEmptyChains(chains []*types.SessionChain) []types.SessionChain {
	out := make([]types.SessionChain, 0, len(chains))
	for _, c := range chains {
		out = append(out, *c)
	}

	return out
}
