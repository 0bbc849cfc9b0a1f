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

// Package decoder holds the analytical aggregators: traffic summary,
// protocol breakdowns and security detection, each driven by the same
// dissector.Gateway streaming abstraction used by package tracer.
package decoder

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

var summaryFields = []string{
	"frame.time_epoch", "frame.len", "ip.src", "ip.dst",
	"ipv6.src", "ipv6.dst", "_ws.col.protocol",
}

const (
	topProtocolCount = 10
	topTalkerCount   = 10
	maxTimelinePoints = 50
)

// ipTraffic accumulates per-IP send/receive counters, get-or-create on
// first sight, as a plain map since a single trace invocation is
// single-threaded.
type ipTraffic struct {
	packetsSent, packetsReceived int
	bytesSent, bytesReceived     int
}

// AnalyzeSummary streams every packet in path and produces coarse
// totals, a top-10 protocol breakdown, top-10 talkers, and an
// up-to-50-point traffic timeline.
func AnalyzeSummary(ctx context.Context, gw *dissector.Gateway, path string) (*types.SummaryResult, error) {
	records, errc := gw.FieldStream(ctx, path, summaryFields, "")

	var (
		totalPackets int
		totalBytes   int
		firstTS, lastTS float64
		firstSet     bool
	)

	protoCounts := make(map[string]int)
	talkers := make(map[string]*ipTraffic)
	buckets := make(map[int]*types.TimelinePoint)

	for rec := range records {
		ts := parseFloat(rec.Get("frame.time_epoch"))
		size := parseInt(rec.Get("frame.len"))
		proto := rec.Get("_ws.col.protocol")

		src := rec.Get("ip.src")
		if src == "" {
			src = rec.Get("ipv6.src")
		}

		dst := rec.Get("ip.dst")
		if dst == "" {
			dst = rec.Get("ipv6.dst")
		}

		totalPackets++
		totalBytes += size

		if !firstSet {
			firstTS = ts
			firstSet = true
		}

		if !firstSet || ts < firstTS {
			firstTS = ts
		}

		if ts > lastTS {
			lastTS = ts
		}

		if proto != "" {
			protoCounts[proto]++
		}

		if src != "" {
			t := talkerFor(talkers, src)
			t.packetsSent++
			t.bytesSent += size
		}

		if dst != "" {
			t := talkerFor(talkers, dst)
			t.packetsReceived++
			t.bytesReceived += size
		}

		if firstSet {
			bucketKey := int(math.Floor(ts)) - int(math.Floor(firstTS))
			bucket, ok := buckets[bucketKey]

			if !ok {
				bucket = &types.TimelinePoint{Time: strconv.Itoa(bucketKey)}
				buckets[bucketKey] = bucket
			}

			bucket.Bytes += size
			bucket.Packets++
		}
	}

	err := <-errc

	result := &types.SummaryResult{
		Summary: types.PacketSummary{
			TotalPackets:    totalPackets,
			TotalBytes:      totalBytes,
			DurationSeconds: round2(lastTS - firstTS),
			FirstTimestamp:  firstTS,
			LastTimestamp:   lastTS,
		},
		Protocols:  topProtocols(protoCounts, totalPackets),
		TopTalkers: topTalkers(talkers),
		Timeline:   resampleTimeline(buckets),
	}

	return result, err
}

func talkerFor(m map[string]*ipTraffic, ip string) *ipTraffic {
	t, ok := m[ip]
	if !ok {
		t = &ipTraffic{}
		m[ip] = t
	}

	return t
}

func topProtocols(counts map[string]int, total int) []types.ProtocolStats {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}

		return names[i] < names[j]
	})

	if len(names) > topProtocolCount {
		names = names[:topProtocolCount]
	}

	out := make([]types.ProtocolStats, 0, len(names))

	for _, name := range names {
		pct := 0.0
		if total > 0 {
			pct = round1(float64(counts[name]) / float64(total) * 100)
		}

		out = append(out, types.ProtocolStats{Name: name, Count: counts[name], Percentage: pct})
	}

	return out
}

func topTalkers(talkers map[string]*ipTraffic) []types.TalkerStats {
	ips := make([]string, 0, len(talkers))
	for ip := range talkers {
		ips = append(ips, ip)
	}

	sort.Slice(ips, func(i, j int) bool {
		ti, tj := talkers[ips[i]], talkers[ips[j]]
		ci := ti.packetsSent + ti.packetsReceived
		cj := tj.packetsSent + tj.packetsReceived

		if ci != cj {
			return ci > cj
		}

		return ips[i] < ips[j]
	})

	if len(ips) > topTalkerCount {
		ips = ips[:topTalkerCount]
	}

	out := make([]types.TalkerStats, 0, len(ips))

	for _, ip := range ips {
		t := talkers[ip]
		out = append(out, types.TalkerStats{
			IP:              ip,
			PacketsSent:     t.packetsSent,
			PacketsReceived: t.packetsReceived,
			BytesSent:       t.bytesSent,
			BytesReceived:   t.bytesReceived,
		})
	}

	return out
}

func resampleTimeline(buckets map[int]*types.TimelinePoint) []types.TimelinePoint {
	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	points := make([]types.TimelinePoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, *buckets[k])
	}

	if len(points) <= maxTimelinePoints {
		return points
	}

	stride := float64(len(points)) / float64(maxTimelinePoints)
	out := make([]types.TimelinePoint, 0, maxTimelinePoints)

	for i := 0; i < maxTimelinePoints; i++ {
		idx := int(float64(i) * stride)
		if idx >= len(points) {
			idx = len(points) - 1
		}

		out = append(out, points[idx])
	}

	return out
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return f
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
