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
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

// hopFields is the fixed per-packet field projection used when
// materializing a hop's packet detail.
var hopFields = []string{
	"frame.number", "frame.time_epoch", "frame.len", "ip.src",
	"tcp.srcport", "tcp.dstport", "tcp.seq", "tcp.ack", "tcp.flags",
	"tcp.window_size_value", "tcp.checksum", "tcp.urgent_pointer",
	"tcp.options", "_ws.col.Info", "tcp.analysis.retransmission",
}

// flagMnemonics is deliberately ordered: SYN, ACK, PSH, FIN, RST, URG.
var flagMnemonics = []struct {
	bit  int64
	name string
}{
	{0x02, "SYN"},
	{0x10, "ACK"},
	{0x08, "PSH"},
	{0x01, "FIN"},
	{0x04, "RST"},
	{0x20, "URG"},
}

// ChainOptions controls hop materialization.
type ChainOptions struct {
	// IncludePackets requests per-packet detail expansion for each hop.
	IncludePackets bool

	// FilePath resolves a file_source tag to a readable pcap path. In
	// single-file mode this is a constant function; in two-file mode it
	// looks up the file1/file2 tag.
	FilePath func(fileSource string) (string, bool)

	// Debug spews the union-find parent map and each component's
	// valid-sub-chain split to the logger.
	Debug bool
}

// BuildChains deduplicates edges, unions matched sessions, splits each
// component into maximal valid sub-chains, and materializes each as an
// ordered SessionChain.
func BuildChains(ctx context.Context, gw *dissector.Gateway, edges []Edge, opts ChainOptions, logger *zap.Logger) []*types.SessionChain {
	if logger == nil {
		logger = zap.NewNop()
	}

	deduped, edgeByPair := dedupeEdges(edges)

	uf := newUnionFind()
	sessionByKey := make(map[string]*types.SessionInfo)

	for _, e := range deduped {
		uf.union(e.A.Key(), e.B.Key())
		sessionByKey[e.A.Key()] = e.A
		sessionByKey[e.B.Key()] = e.B
	}

	if opts.Debug {
		logger.Debug("union-find parent map", zap.String("dump", spew.Sdump(uf.parent)))
	}

	components := make(map[string][]*types.SessionInfo)
	for key, s := range sessionByKey {
		root := uf.find(key)
		components[root] = append(components[root], s)
	}

	var chains []*types.SessionChain

	counter := 0

	// Stable component iteration order: sort component keys so chain-id
	// assignment is deterministic across runs with identical input.
	roots := make([]string, 0, len(components))
	for root := range components {
		roots = append(roots, root)
	}

	sort.Strings(roots)

	for _, root := range roots {
		members := components[root]
		if len(members) < 2 {
			continue
		}

		sort.Slice(members, func(i, j int) bool { return members[i].StartTime < members[j].StartTime })

		subChains := splitValidSubChains(members)
		if opts.Debug {
			logger.Debug("component split into sub-chains", zap.String("root", root), zap.String("dump", spew.Sdump(subChains)))
		}

		for _, sub := range subChains {
			if len(sub) < 2 {
				continue
			}

			counter++

			chains = append(chains, materializeChain(ctx, gw, sub, edgeByPair, counter, opts, logger))
		}
	}

	sort.SliceStable(chains, func(i, j int) bool { return chains[i].Confidence > chains[j].Confidence })

	return chains
}

// dedupeEdges keeps, per unordered session-pair key, only the edge with
// maximum confidence. It returns the deduped edges plus a lookup map
// from pair key to the surviving edge for later confidence/method
// lookups during chain materialization.
func dedupeEdges(edges []Edge) ([]Edge, map[string]Edge) {
	best := make(map[string]Edge)

	for _, e := range edges {
		key := pairKey(e.A.Key(), e.B.Key())

		if cur, ok := best[key]; !ok || e.Confidence > cur.Confidence {
			best[key] = e
		}
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]Edge, 0, len(keys))
	for _, k := range keys {
		out = append(out, best[k])
	}

	return out, best
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}

	return a + "|" + b
}

// unionFind is a path-compressed, union-by-assignment disjoint-set
// structure over string keys.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x

		return x
	}

	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}

	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// splitValidSubChains walks a start_time-sorted component and breaks it
// into maximal runs where each consecutive pair satisfies the valid-hop
// predicate.
func splitValidSubChains(sorted []*types.SessionInfo) [][]*types.SessionInfo {
	if len(sorted) == 0 {
		return nil
	}

	var subChains [][]*types.SessionInfo

	current := []*types.SessionInfo{sorted[0]}

	for i := 1; i < len(sorted); i++ {
		last := current[len(current)-1]
		candidate := sorted[i]

		if isValidHopPair(last, candidate) {
			current = append(current, candidate)
		} else {
			if len(current) >= 2 {
				subChains = append(subChains, current)
			}

			current = []*types.SessionInfo{candidate}
		}
	}

	if len(current) >= 2 {
		subChains = append(subChains, current)
	}

	return subChains
}

// isValidHopPair is the chain-builder's connectivity predicate: direct
// proxy, OR port-preserved with same VIP, OR port-preserved alone.
func isValidHopPair(s1, s2 *types.SessionInfo) bool {
	directProxy := s1.DstIP == s2.SrcIP
	portPreserved := s1.SrcPort == s2.SrcPort && s1.SrcIP != s2.SrcIP
	sameVIP := s1.DstIP == s2.DstIP && s1.SrcIP != s2.SrcIP

	return directProxy || (portPreserved && sameVIP) || portPreserved
}

func materializeChain(ctx context.Context, gw *dissector.Gateway, members []*types.SessionInfo, edgeByPair map[string]Edge, counter int, opts ChainOptions, logger *zap.Logger) *types.SessionChain {
	confSum := 0.0
	methodCounts := make(map[string]int)
	methodOrder := make([]string, 0)

	for i := 0; i < len(members)-1; i++ {
		key := pairKey(members[i].Key(), members[i+1].Key())

		conf, method := 0.5, MethodInferred
		if e, ok := edgeByPair[key]; ok {
			conf, method = e.Confidence, e.Method
		}

		confSum += conf

		if _, seen := methodCounts[method]; !seen {
			methodOrder = append(methodOrder, method)
		}

		methodCounts[method]++
	}

	pairs := len(members) - 1
	confidence := 0.0

	if pairs > 0 {
		confidence = round2(confSum / float64(pairs))
	}

	method := modalMethod(methodOrder, methodCounts)

	var hops []types.ChainHop

	for _, s := range members {
		req, resp := materializeHops(ctx, gw, s, opts, logger)
		hops = append(hops, req, resp)
	}

	sort.SliceStable(hops, func(i, j int) bool {
		iZero, jZero := hops[i].StartTime == 0, hops[j].StartTime == 0
		if iZero != jZero {
			return !iZero
		}

		return hops[i].StartTime < hops[j].StartTime
	})

	latency := chainLatency(members)

	return &types.SessionChain{
		ChainID:    fmt.Sprintf("chain_%03d", counter),
		Confidence: confidence,
		Method:     method,
		Hops:       hops,
		LatencyMs:  latency,
	}
}

func modalMethod(order []string, counts map[string]int) string {
	best := ""
	bestCount := -1

	for _, m := range order {
		if counts[m] > bestCount {
			best = m
			bestCount = counts[m]
		}
	}

	return best
}

func chainLatency(members []*types.SessionInfo) float64 {
	if len(members) == 0 {
		return 0
	}

	first := members[0]
	last := members[len(members)-1]

	start := first.ForwardStart
	if start == 0 {
		start = first.StartTime
	}

	end := last.BackwardEnd
	if end == 0 {
		end = last.EndTime
	}

	return round2((end - start) * 1000)
}

func materializeHops(ctx context.Context, gw *dissector.Gateway, s *types.SessionInfo, opts ChainOptions, logger *zap.Logger) (types.ChainHop, types.ChainHop) {
	req := types.ChainHop{
		SessionID:   s.SessionID,
		Src:         endpoint(s.SrcIP, s.SrcPort),
		Dst:         endpoint(s.DstIP, s.DstPort),
		PacketCount: s.ForwardPackets,
		ByteCount:   s.ForwardBytes,
		Duration:    round3(s.ForwardEnd - s.ForwardStart),
		File:        s.FileSource,
		Direction:   types.DirectionRequest,
		StartTime:   s.ForwardStart,
		Missing:     s.ForwardPackets == 0,
	}

	resp := types.ChainHop{
		SessionID:   s.SessionID,
		Src:         endpoint(s.DstIP, s.DstPort),
		Dst:         endpoint(s.SrcIP, s.SrcPort),
		PacketCount: s.BackwardPackets,
		ByteCount:   s.BackwardBytes,
		Duration:    round3(s.BackwardEnd - s.BackwardStart),
		File:        s.FileSource,
		Direction:   types.DirectionResponse,
		StartTime:   s.BackwardStart,
		Missing:     s.BackwardPackets == 0,
	}

	if !opts.IncludePackets || opts.FilePath == nil {
		return req, resp
	}

	path, ok := opts.FilePath(s.FileSource)
	if !ok {
		return req, resp
	}

	reqPackets, respPackets := materializeHopPackets(ctx, gw, path, s, logger)
	req.Packets = reqPackets
	req.TotalPackets = len(reqPackets)
	resp.Packets = respPackets
	resp.TotalPackets = len(respPackets)

	return req, resp
}

func endpoint(ip string, port int) string {
	return ip + ":" + strconv.Itoa(port)
}

func materializeHopPackets(ctx context.Context, gw *dissector.Gateway, path string, s *types.SessionInfo, logger *zap.Logger) ([]types.PacketInfo, []types.PacketInfo) {
	filter := "tcp.stream eq " + s.SessionID

	records, errc := gw.FieldStream(ctx, path, hopFields, filter)

	var (
		reqPackets, respPackets             []types.PacketInfo
		reqSeq, respSeq                     int
		reqFirstTime, respFirstTime         float64
		reqFirstSet, respFirstSet           bool
	)

	for rec := range records {
		ts := atofOr0(rec.Get("frame.time_epoch"))
		forward := rec.Get("ip.src") == s.SrcIP

		var relMs float64

		if forward {
			if !reqFirstSet {
				reqFirstTime = ts
				reqFirstSet = true
			}

			relMs = (ts - reqFirstTime) * 1000
			reqSeq++
		} else {
			if !respFirstSet {
				respFirstTime = ts
				respFirstSet = true
			}

			relMs = (ts - respFirstTime) * 1000
			respSeq++
		}

		pkt := types.PacketInfo{
			TimeEpoch:        ts,
			RelativeTimeMs:   round3(relMs),
			Size:             atoiOr0(rec.Get("frame.len")),
			FrameNumber:      atoiOr0(rec.Get("frame.number")),
			SrcPort:          atoiOr0(rec.Get("tcp.srcport")),
			DstPort:          atoiOr0(rec.Get("tcp.dstport")),
			SeqNum:           atoi64Or0(rec.Get("tcp.seq")),
			AckNum:           atoi64Or0(rec.Get("tcp.ack")),
			Flags:            decodeFlags(rec.Get("tcp.flags")),
			WindowSize:       atoiOr0(rec.Get("tcp.window_size_value")),
			Checksum:         rec.Get("tcp.checksum"),
			UrgentPointer:    atoiOr0(rec.Get("tcp.urgent_pointer")),
			Options:          rec.Get("tcp.options"),
			Info:             rec.Get("_ws.col.Info"),
			IsRetransmission: rec.Get("tcp.analysis.retransmission") != "",
		}

		if forward {
			pkt.Seq = reqSeq
			reqPackets = append(reqPackets, pkt)
		} else {
			pkt.Seq = respSeq
			respPackets = append(respPackets, pkt)
		}
	}

	if err := <-errc; err != nil {
		logger.Debug("hop packet materialization ended early", zap.Error(err), zap.String("session", s.SessionID))
	}

	return reqPackets, respPackets
}

// decodeFlags translates a tcp.flags value (decimal or "0x"-prefixed
// hex, per the two dissector-version formats) into a comma-separated
// mnemonic string in the fixed SYN,ACK,PSH,FIN,RST,URG order.
func decodeFlags(raw string) string {
	if raw == "" {
		return "---"
	}

	base := 10

	trimmed := raw
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		base = 16
		trimmed = raw[2:]
	}

	value, err := strconv.ParseInt(trimmed, base, 64)
	if err != nil {
		return "---"
	}

	var parts []string

	for _, m := range flagMnemonics {
		if value&m.bit != 0 {
			parts = append(parts, m.name)
		}
	}

	if len(parts) == 0 {
		return "---"
	}

	return strings.Join(parts, ",")
}

func atoi64Or0(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}

	return n
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
