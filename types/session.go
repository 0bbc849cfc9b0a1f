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

// Package types holds the plain, JSON-serializable record shapes shared
// across the dissector, tracer and decoder packages.
package types

// SessionInfo describes one tcp.stream within a single capture file,
// with bidirectional flow accounting.
//
// Invariants:
//   - ForwardPackets + BackwardPackets == PacketCount
//   - StartTime <= ForwardStart <= ForwardEnd <= EndTime (when forward packets exist)
//   - PayloadFingerprint is empty or exactly 16 lowercase hex characters.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	FileSource string `json:"file_source"`

	SrcIP   string `json:"src_ip"`
	SrcPort int    `json:"src_port"`
	DstIP   string `json:"dst_ip"`
	DstPort int    `json:"dst_port"`

	PacketCount int     `json:"packet_count"`
	ByteCount   int     `json:"byte_count"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`

	ForwardPackets int     `json:"forward_packets"`
	ForwardBytes   int     `json:"forward_bytes"`
	ForwardStart   float64 `json:"forward_start"`
	ForwardEnd     float64 `json:"forward_end"`

	BackwardPackets int     `json:"backward_packets"`
	BackwardBytes   int     `json:"backward_bytes"`
	BackwardStart   float64 `json:"backward_start"`
	BackwardEnd     float64 `json:"backward_end"`

	// PacketSizes holds up to the first twenty frame lengths in stream order.
	PacketSizes []int `json:"packet_sizes"`

	// PayloadFingerprint is the first 16 hex characters of the MD5 digest
	// of the first <=64 payload bytes of the first packet carrying a TCP
	// payload. Empty when no qualifying packet was observed.
	PayloadFingerprint string `json:"payload_fingerprint"`

	// HTTPHeaders maps a lowercased correlation header name to its raw value.
	HTTPHeaders map[string]string `json:"http_headers"`
}

// Key returns the union-find / chain-builder node identity for this session.
func (s *SessionInfo) Key() string {
	return s.FileSource + ":" + s.SessionID
}

// PacketInfo is a single packet's detail within a materialized hop.
type PacketInfo struct {
	Seq             int     `json:"seq"`
	FrameNumber     int     `json:"frame_number"`
	TimeEpoch       float64 `json:"time_epoch"`
	RelativeTimeMs  float64 `json:"relative_time_ms"`
	Size            int     `json:"size"`
	SrcPort         int     `json:"src_port"`
	DstPort         int     `json:"dst_port"`
	SeqNum          int64   `json:"seq_num"`
	AckNum          int64   `json:"ack_num"`
	Flags           string  `json:"flags"`
	WindowSize      int     `json:"window_size"`
	Checksum        string  `json:"checksum"`
	UrgentPointer   int     `json:"urgent_pointer"`
	Options         string  `json:"options"`
	Info            string  `json:"info"`
	IsRetransmission bool   `json:"is_retransmission"`
}

// ChainHop is one directional leg (request or response) of a session,
// as it participates in a reconstructed chain.
type ChainHop struct {
	SessionID   string  `json:"session_id"`
	Src         string  `json:"src"`
	Dst         string  `json:"dst"`
	PacketCount int     `json:"packet_count"`
	ByteCount   int     `json:"byte_count"`
	Duration    float64 `json:"duration"`
	File        string  `json:"file"`
	Direction   string  `json:"direction"`
	StartTime   float64 `json:"start_time"`
	Missing     bool    `json:"missing"`

	Packets      []PacketInfo `json:"packets,omitempty"`
	TotalPackets int          `json:"total_packets"`
}

// Direction constants for ChainHop.Direction.
const (
	DirectionRequest  = "request"
	DirectionResponse = "response"
)

// SessionChain is an ordered set of hops spanning one or more sessions
// believed to carry a single logical request end to end.
type SessionChain struct {
	ChainID    string     `json:"chain_id"`
	Confidence float64    `json:"confidence"`
	Method     string     `json:"method"`
	Hops       []ChainHop `json:"hops"`
	LatencyMs  float64    `json:"latency_ms"`
}

// UnmatchedSession is the summary record emitted for a session that did
// not participate in any chain.
type UnmatchedSession struct {
	SessionID string `json:"session_id"`
	Src       string `json:"src"`
	Dst       string `json:"dst"`
	Packets   int    `json:"packets"`
	File      string `json:"file,omitempty"`
}

// TraceStats carries the summary counters attached to a TraceResult.
type TraceStats struct {
	TotalSessions   int            `json:"total_sessions"`
	File1Sessions   int            `json:"file1_sessions,omitempty"`
	File2Sessions   int            `json:"file2_sessions,omitempty"`
	MatchedChains   int            `json:"matched_chains"`
	MatchedSessions int            `json:"matched_sessions"`
	MethodsUsed     map[string]int `json:"methods_used"`
}

// TraceResult is the output of Tracer.TraceSingle / Tracer.TraceTwo.
type TraceResult struct {
	// RunID tags this invocation for cross-referencing against external
	// report storage; the report writer itself is out of scope here.
	RunID             string             `json:"run_id"`
	Chains            []SessionChain     `json:"chains"`
	UnmatchedSessions []UnmatchedSession `json:"unmatched_sessions"`
	Stats             TraceStats         `json:"stats"`
}

// ErrorResult is the sentinel record surfaced to callers instead of a
// panic or language-level exception, per the error-handling contract.
type ErrorResult struct {
	Error string `json:"error"`
}
