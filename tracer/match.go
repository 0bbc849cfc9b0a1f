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
	"math"
	"sort"

	"github.com/Matthewyin/nssa-netlens/types"
)

// TimeWindow is the fixed correlation window used throughout matching.
const TimeWindow = 0.5 // seconds

// Method name constants, part of the public result contract.
const (
	MethodPayloadFingerprint = "payload_fingerprint"
	MethodHTTPHeader         = "http_header"
	MethodTimingSize         = "timing_size"
	MethodInferred           = "inferred"
)

// Edge is a weighted candidate match between two sessions, produced by
// one of the matcher functions below.
type Edge struct {
	A, B       *types.SessionInfo
	Confidence float64
	Method     string
}

// MatchByFingerprint groups sessions by non-empty payload fingerprint
// and emits geometry-classified candidate edges within each group.
func MatchByFingerprint(sessions []*types.SessionInfo) []Edge {
	groups := make(map[string][]*types.SessionInfo)
	for _, s := range sessions {
		if s.PayloadFingerprint == "" {
			continue
		}

		groups[s.PayloadFingerprint] = append(groups[s.PayloadFingerprint], s)
	}

	var edges []Edge

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		for i := 0; i < len(group); i++ {
			for j := 0; j < len(group); j++ {
				if i == j {
					continue
				}

				s1, s2 := group[i], group[j]
				if s1.StartTime > s2.StartTime {
					continue
				}

				if s1.SrcIP == s2.SrcIP && s1.DstIP == s2.DstIP {
					continue
				}

				if math.Abs(s1.StartTime-s2.StartTime) > 2*TimeWindow {
					continue
				}

				conf, ok := fingerprintGeometryConfidence(s1, s2)
				if !ok {
					continue
				}

				edges = append(edges, Edge{A: s1, B: s2, Confidence: conf, Method: MethodPayloadFingerprint})
			}
		}
	}

	return edges
}

func fingerprintGeometryConfidence(s1, s2 *types.SessionInfo) (float64, bool) {
	directProxy := s1.DstIP == s2.SrcIP
	portPreserved := s1.SrcPort == s2.SrcPort && s1.SrcIP != s2.SrcIP
	sameVIP := s1.DstIP == s2.DstIP && s1.SrcIP != s2.SrcIP

	switch {
	case directProxy:
		return 0.90, true
	case portPreserved && sameVIP:
		return 0.85, true
	case portPreserved || sameVIP:
		return 0.75, true
	default:
		return 0, false
	}
}

// idHeaders are the three header names eligible for the strict
// equal-value grouping pass of the HTTP-header matcher.
var idHeaders = []string{"x-request-id", "x-correlation-id", "x-trace-id"}

// MatchByHTTPHeader indexes sessions by correlation-header value and
// emits pairwise candidates, plus X-Forwarded-For client-IP matches.
// With crossFile set, equal-value matches carry the method
// "http_header:<name>"; otherwise they carry the bare "http_header".
// X-Forwarded-For matches always carry the bare "http_header".
func MatchByHTTPHeader(sessions []*types.SessionInfo, crossFile bool) []Edge {
	var edges []Edge

	for _, header := range idHeaders {
		groups := make(map[string][]*types.SessionInfo)

		for _, s := range sessions {
			v, ok := s.HTTPHeaders[header]
			if !ok || v == "" {
				continue
			}

			groups[v] = append(groups[v], s)
		}

		method := MethodHTTPHeader
		if crossFile {
			method = MethodHTTPHeader + ":" + header
		}

		for _, group := range groups {
			if len(group) < 2 {
				continue
			}

			for i := 0; i < len(group); i++ {
				for j := i + 1; j < len(group); j++ {
					edges = append(edges, Edge{A: group[i], B: group[j], Confidence: 0.95, Method: method})
				}
			}
		}
	}

	for _, s := range sessions {
		xff, ok := s.HTTPHeaders["x-forwarded-for"]
		if !ok || xff == "" {
			continue
		}

		for _, other := range sessions {
			if other == s {
				continue
			}

			if !containsIP(xff, other.SrcIP) {
				continue
			}

			if math.Abs(other.StartTime-s.StartTime) > TimeWindow {
				continue
			}

			edges = append(edges, Edge{A: other, B: s, Confidence: 0.90, Method: MethodHTTPHeader})
		}
	}

	return edges
}

func containsIP(xffList, ip string) bool {
	if ip == "" {
		return false
	}
	// x-forwarded-for is a comma-separated client IP chain; each entry
	// is trimmed and compared for exact equality with ip.
	for _, candidate := range splitAndTrim(xffList, ',') {
		if candidate == ip {
			return true
		}
	}

	return false
}

func splitAndTrim(s string, sep byte) []string {
	var out []string

	start := 0

	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == sep {
			part := trimSpace(s[start:i])
			if part != "" {
				out = append(out, part)
			}

			start = i + 1
		}
	}

	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}

	for end > start && isSpace(s[end-1]) {
		end--
	}

	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// MatchByTimingAndSize sorts sessions by start time and emits candidate
// edges for nearby pairs with proxy-compatible endpoint geometry and a
// sufficiently similar frame-size sequence.
func MatchByTimingAndSize(sessions []*types.SessionInfo) []Edge {
	sorted := make([]*types.SessionInfo, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime < sorted[j].StartTime })

	var edges []Edge

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			s1, s2 := sorted[i], sorted[j]

			delta := s2.StartTime - s1.StartTime
			if delta > TimeWindow {
				break
			}

			if delta < 0.001 {
				continue
			}

			if s1.SrcIP == s2.SrcIP && s1.SrcPort == s2.SrcPort && s1.DstIP == s2.DstIP && s1.DstPort == s2.DstPort {
				continue
			}

			if !proxyCompatibleGeometry(s1, s2) {
				continue
			}

			similarity, ok := sizeSequenceSimilarity(s1.PacketSizes, s2.PacketSizes)
			if !ok || similarity <= 0.6 {
				continue
			}

			edges = append(edges, Edge{A: s1, B: s2, Confidence: 0.5 + 0.3*similarity, Method: MethodTimingSize})
		}
	}

	return edges
}

func proxyCompatibleGeometry(s1, s2 *types.SessionInfo) bool {
	directProxy := s1.DstIP == s2.SrcIP

	samePort := s1.SrcPort == s2.SrcPort
	diffSrcIP := s1.SrcIP != s2.SrcIP
	sameVIP := s1.DstIP == s2.DstIP

	snatPattern := samePort && sameVIP && diffSrcIP
	portPreservedProxy := samePort && diffSrcIP && (sameVIP || directProxy)

	return directProxy || snatPattern || portPreservedProxy
}

// sizeSequenceSimilarity compares the first n = min(len(a), len(b), 10)
// frame sizes positionally; a position matches when the two sizes are
// within max(100, 0.2*max(a,b)) of each other. Returns ok=false when
// fewer than 3 positions are available to compare.
func sizeSequenceSimilarity(a, b []int) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	if n > 10 {
		n = 10
	}

	if n < 3 {
		return 0, false
	}

	matches := 0

	for i := 0; i < n; i++ {
		ai, bi := a[i], b[i]

		diff := ai - bi
		if diff < 0 {
			diff = -diff
		}

		max := ai
		if bi > max {
			max = bi
		}

		threshold := 0.2 * float64(max)
		if threshold < 100 {
			threshold = 100
		}

		if float64(diff) <= threshold {
			matches++
		}
	}

	return float64(matches) / float64(n), true
}

// MatchCrossFile produces candidate edges between two distinct session
// sets (two-file mode): exact fingerprint equality, exact correlation
// header equality, and timing+size similarity, each with its own
// confidence rule distinct from the single-file matchers.
func MatchCrossFile(a, b []*types.SessionInfo) []Edge {
	var edges []Edge

	for _, s1 := range a {
		for _, s2 := range b {
			if s1.PayloadFingerprint != "" && s1.PayloadFingerprint == s2.PayloadFingerprint {
				edges = append(edges, Edge{A: s1, B: s2, Confidence: 0.90, Method: MethodPayloadFingerprint})
			}

			for _, header := range idHeaders {
				v1, ok1 := s1.HTTPHeaders[header]
				v2, ok2 := s2.HTTPHeaders[header]

				if ok1 && ok2 && v1 != "" && v1 == v2 {
					edges = append(edges, Edge{A: s1, B: s2, Confidence: 0.95, Method: MethodHTTPHeader + ":" + header})
				}
			}

			if math.Abs(s1.StartTime-s2.StartTime) < TimeWindow {
				if similarity, ok := sizeSequenceSimilarity(s1.PacketSizes, s2.PacketSizes); ok && similarity > 0.5 {
					edges = append(edges, Edge{A: s1, B: s2, Confidence: 0.5 + 0.3*similarity, Method: MethodTimingSize})
				}
			}
		}
	}

	return edges
}
