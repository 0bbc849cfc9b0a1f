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

// Package tracer implements multi-hop TCP session correlation: session
// extraction, header harvesting, pairwise matching and union-find chain
// assembly across one or two independent captures.
package tracer

import (
	"context"
	"crypto/md5" //nolint:gosec // fingerprinting only, not a security boundary
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

// sessionFields is the fixed field projection for session extraction,
// part of the public wire contract.
var sessionFields = []string{
	"tcp.stream", "ip.src", "ip.dst", "tcp.srcport", "tcp.dstport",
	"frame.time_epoch", "frame.len", "tcp.payload",
}

const maxPacketSizes = 20

// ExtractSessions streams TCP traffic from path and accumulates one
// SessionInfo per tcp.stream, tagged with tag (falling back to the
// file's basename when tag is empty). Row-level decoding failures are
// swallowed; a stream-level dissector failure returns whatever sessions
// were built up to that point alongside the error.
func ExtractSessions(ctx context.Context, gw *dissector.Gateway, path, tag string, logger *zap.Logger) ([]*types.SessionInfo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if tag == "" {
		tag = filepath.Base(path)
	}

	order := make([]string, 0)
	sessions := make(map[string]*types.SessionInfo)

	records, errc := gw.FieldStream(ctx, path, sessionFields, "tcp")

	for rec := range records {
		streamID := rec.Get("tcp.stream")
		if streamID == "" {
			continue
		}

		s, ok := sessions[streamID]
		if !ok {
			s = &types.SessionInfo{
				SessionID:   streamID,
				FileSource:  tag,
				SrcIP:       rec.Get("ip.src"),
				DstIP:       rec.Get("ip.dst"),
				SrcPort:     atoiOr0(rec.Get("tcp.srcport")),
				DstPort:     atoiOr0(rec.Get("tcp.dstport")),
				HTTPHeaders: make(map[string]string),
				PacketSizes: make([]int, 0, maxPacketSizes),
			}
			sessions[streamID] = s
			order = append(order, streamID)
		}

		applyPacket(s, rec, logger)
	}

	if err := <-errc; err != nil {
		logger.Debug("session extraction ended early", zap.Error(err), zap.String("path", path))

		return sessionsInOrder(order, sessions), err
	}

	return sessionsInOrder(order, sessions), nil
}

func sessionsInOrder(order []string, sessions map[string]*types.SessionInfo) []*types.SessionInfo {
	out := make([]*types.SessionInfo, 0, len(order))
	for _, id := range order {
		out = append(out, sessions[id])
	}

	return out
}

func applyPacket(s *types.SessionInfo, rec types.Record, logger *zap.Logger) {
	size := atoiOr0(rec.Get("frame.len"))
	ts := atofOr0(rec.Get("frame.time_epoch"))
	srcIP := rec.Get("ip.src")

	s.PacketCount++
	s.ByteCount += size

	if len(s.PacketSizes) < maxPacketSizes {
		s.PacketSizes = append(s.PacketSizes, size)
	}

	if s.StartTime == 0 || (ts != 0 && ts < s.StartTime) {
		s.StartTime = ts
	}

	if ts > s.EndTime {
		s.EndTime = ts
	}

	forward := srcIP == s.SrcIP

	if forward {
		s.ForwardPackets++
		s.ForwardBytes += size

		if s.ForwardStart == 0 || (ts != 0 && ts < s.ForwardStart) {
			s.ForwardStart = ts
		}

		if ts > s.ForwardEnd {
			s.ForwardEnd = ts
		}
	} else {
		s.BackwardPackets++
		s.BackwardBytes += size

		if s.BackwardStart == 0 || (ts != 0 && ts < s.BackwardStart) {
			s.BackwardStart = ts
		}

		if ts > s.BackwardEnd {
			s.BackwardEnd = ts
		}
	}

	if s.PayloadFingerprint == "" {
		if payload := rec.Get("tcp.payload"); payload != "" {
			if fp := fingerprint(payload); fp != "" {
				s.PayloadFingerprint = fp
			} else {
				logger.Debug("payload too short for fingerprint", zap.String("session", s.SessionID))
			}
		}
	}
}

// fingerprint decodes a hex-encoded payload (tolerating ":"-separated
// octets, the form tshark uses for tcp.payload), and returns the first
// 16 hex characters of the MD5 digest of its first <=64 bytes, or the
// empty string when fewer than 8 bytes decode.
func fingerprint(hexPayload string) string {
	cleaned := strings.ReplaceAll(hexPayload, ":", "")

	raw, err := hex.DecodeString(cleaned)
	if err != nil || len(raw) < 8 {
		return ""
	}

	if len(raw) > 64 {
		raw = raw[:64]
	}

	sum := md5.Sum(raw) //nolint:gosec

	return hex.EncodeToString(sum[:])[:16]
}

func atoiOr0(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}

func atofOr0(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return f
}
