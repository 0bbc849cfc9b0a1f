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
	"encoding/hex"
	"math"
	"sort"
	"strings"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

var tcpSessionFields = []string{
	"tcp.stream", "ip.src", "ip.dst", "tcp.srcport", "tcp.dstport",
	"frame.time_epoch", "frame.len", "tcp.payload", "_ws.col.protocol", "_ws.col.Info",
}

const (
	maxPayloadHexChars = 4000
	maxTopSessions     = 50
	maxPayloadASCII    = 1000
	hexViewBytes       = 100
)

type sessionAccumulator struct {
	srcIP, dstIP     string
	srcPort, dstPort int
	packetCount      int
	byteCount        int
	startTime        float64
	endTime          float64
	payloadHex       strings.Builder
	protocolCounts   map[string]int
	firstInfo        string
}

// AnalyzeTCPSessions streams TCP traffic and aggregates each
// tcp.stream into endpoints, counts, time bounds and a bounded payload
// capture, returning the top 50 sessions by packet count.
func AnalyzeTCPSessions(ctx context.Context, gw *dissector.Gateway, path string) (*types.TCPSessionsResult, error) {
	records, errc := gw.FieldStream(ctx, path, tcpSessionFields, "tcp")

	order := make([]string, 0)
	sessions := make(map[string]*sessionAccumulator)

	for rec := range records {
		streamID := rec.Get("tcp.stream")
		if streamID == "" {
			continue
		}

		acc, ok := sessions[streamID]
		if !ok {
			acc = &sessionAccumulator{
				srcIP:          rec.Get("ip.src"),
				dstIP:          rec.Get("ip.dst"),
				srcPort:        parseInt(rec.Get("tcp.srcport")),
				dstPort:        parseInt(rec.Get("tcp.dstport")),
				protocolCounts: make(map[string]int),
				firstInfo:      rec.Get("_ws.col.Info"),
			}
			sessions[streamID] = acc
			order = append(order, streamID)
		}

		applyTCPSessionPacket(acc, rec)
	}

	if err := <-errc; err != nil {
		return nil, err
	}

	out := make([]types.TCPSession, 0, len(order))

	for _, id := range order {
		acc := sessions[id]

		out = append(out, types.TCPSession{
			SessionID:    id,
			SrcIP:        acc.srcIP,
			SrcPort:      acc.srcPort,
			DstIP:        acc.dstIP,
			DstPort:      acc.dstPort,
			PacketCount:  acc.packetCount,
			ByteCount:    acc.byteCount,
			Duration:     round3(acc.endTime - acc.startTime),
			StartTime:    acc.startTime,
			PayloadASCII: renderASCII(acc.payloadHex.String()),
			PayloadHex:   renderHexView(acc.payloadHex.String()),
			Protocol:     modalProtocol(acc.protocolCounts),
			Summary:      acc.firstInfo,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PacketCount > out[j].PacketCount })

	if len(out) > maxTopSessions {
		out = out[:maxTopSessions]
	}

	return &types.TCPSessionsResult{TCPSessions: out, TotalSessions: len(sessions)}, nil
}

func applyTCPSessionPacket(acc *sessionAccumulator, rec types.Record) {
	size := parseInt(rec.Get("frame.len"))
	ts := parseFloat(rec.Get("frame.time_epoch"))

	acc.packetCount++
	acc.byteCount += size

	if acc.startTime == 0 || (ts != 0 && ts < acc.startTime) {
		acc.startTime = ts
	}

	if ts > acc.endTime {
		acc.endTime = ts
	}

	if proto := rec.Get("_ws.col.protocol"); proto != "" {
		acc.protocolCounts[proto]++
	}

	if payload := rec.Get("tcp.payload"); payload != "" && acc.payloadHex.Len() < maxPayloadHexChars {
		cleaned := strings.ReplaceAll(payload, ":", "")
		remaining := maxPayloadHexChars - acc.payloadHex.Len()

		if len(cleaned) > remaining {
			cleaned = cleaned[:remaining]
		}

		acc.payloadHex.WriteString(cleaned)
	}
}

func modalProtocol(counts map[string]int) string {
	best := ""
	bestCount := -1

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}

	return best
}

func renderASCII(hexPayload string) string {
	raw, err := hex.DecodeString(hexPayload)
	if err != nil {
		return ""
	}

	if len(raw) > maxPayloadASCII {
		raw = raw[:maxPayloadASCII]
	}

	out := make([]byte, len(raw))

	for i, b := range raw {
		if b >= 0x20 && b < 0x7f {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}

	return string(out)
}

func renderHexView(hexPayload string) string {
	raw, err := hex.DecodeString(hexPayload)
	if err != nil {
		return ""
	}

	if len(raw) > hexViewBytes {
		raw = raw[:hexViewBytes]
	}

	return hex.EncodeToString(raw)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
