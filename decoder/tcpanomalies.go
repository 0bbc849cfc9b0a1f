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
	"strconv"
	"strings"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

var tcpAnomalyFields = []string{
	"frame.number", "frame.time_epoch", "frame.len", "ip.src", "ip.dst",
	"tcp.stream", "tcp.seq", "tcp.ack", "tcp.window_size_value",
	"tcp.flags", "tcp.flags.reset",
	"tcp.analysis.retransmission", "tcp.analysis.fast_retransmission",
	"tcp.analysis.out_of_order", "tcp.analysis.duplicate_ack",
	"tcp.analysis.zero_window", "tcp.analysis.window_full",
	"tcp.analysis.lost_segment", "tcp.analysis.ack_lost_segment",
}

// anomalyFlagFields lists the tcp.analysis.* fields checked, in the
// order their mnemonic is reported.
var anomalyFlagFields = []struct {
	field string
	name  string
}{
	{"tcp.analysis.retransmission", "retransmission"},
	{"tcp.analysis.fast_retransmission", "fast_retransmission"},
	{"tcp.analysis.out_of_order", "out_of_order"},
	{"tcp.analysis.duplicate_ack", "duplicate_ack"},
	{"tcp.analysis.zero_window", "zero_window"},
	{"tcp.analysis.window_full", "window_full"},
	{"tcp.analysis.lost_segment", "lost_segment"},
	{"tcp.analysis.ack_lost_segment", "ack_lost_segment"},
}

// AnalyzeTCPAnomalies tree-exports packets flagged by tshark's TCP
// analysis heuristics or carrying an RST, classifies each by anomaly
// type, and aggregates per tcp.stream.
func AnalyzeTCPAnomalies(ctx context.Context, gw *dissector.Gateway, path string) (*types.TCPAnomaliesResult, error) {
	filter := "tcp.analysis.flags or tcp.flags.reset==1"

	packets, err := gw.TreeExport(ctx, path, filter, tcpAnomalyFields)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	order := make([]string, 0)
	sessions := make(map[string]*types.TCPAnomalySession)

	for _, pkt := range packets {
		layers := pkt.Source.Layers

		streamID := layers.First("tcp.stream")
		if streamID == "" {
			continue
		}

		sess, ok := sessions[streamID]
		if !ok {
			sess = &types.TCPAnomalySession{
				StreamID:       streamID,
				Src:            layers.First("ip.src"),
				Dst:            layers.First("ip.dst"),
				AnomalySummary: make(map[string]int),
			}
			sessions[streamID] = sess
			order = append(order, streamID)
		}

		anomalyTypes := classifyAnomaly(layers)
		if len(anomalyTypes) == 0 {
			continue
		}

		for _, t := range anomalyTypes {
			sess.AnomalySummary[t]++
			totals[t]++
		}

		event := types.TCPAnomalyEvent{
			Frame: layers.First("frame.number"),
			Time:  layers.First("frame.time_epoch"),
			Len:   layers.First("frame.len"),
			Types: anomalyTypes,
			Src:   layers.First("ip.src"),
			Dst:   layers.First("ip.dst"),
		}
		event.TCP.Seq = layers.First("tcp.seq")
		event.TCP.Ack = layers.First("tcp.ack")
		event.TCP.Win = layers.First("tcp.window_size_value")
		event.TCP.FlagsStr = decodeFlags(layers.First("tcp.flags"))
		event.TCP.FlagsHex = layers.First("tcp.flags")

		sess.Events = append(sess.Events, event)
		sess.EventsCount++
	}

	out := make([]types.TCPAnomalySession, 0, len(order))
	for _, id := range order {
		out = append(out, *sessions[id])
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].EventsCount > out[j].EventsCount })

	return &types.TCPAnomaliesResult{TotalAnomalies: totals, AnomalousSessions: out}, nil
}

func classifyAnomaly(layers types.PacketLayers) []string {
	var found []string

	for _, f := range anomalyFlagFields {
		if v := layers.First(f.field); v == "1" || v == "True" {
			found = append(found, f.name)
		}
	}

	if rst := layers.First("tcp.flags.reset"); rst == "1" || rst == "True" {
		found = append(found, "reset")
	}

	return found
}

// flagMnemonicTable mirrors the tracer package's hop-level flag
// mnemonic translator (SYN, ACK, PSH, FIN, RST, URG, in that order);
// duplicated rather than exported across packages since it is a small
// pure lookup with no shared state.
var flagMnemonicTable = []struct {
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

	for _, m := range flagMnemonicTable {
		if value&m.bit != 0 {
			parts = append(parts, m.name)
		}
	}

	if len(parts) == 0 {
		return "---"
	}

	return strings.Join(parts, ",")
}
