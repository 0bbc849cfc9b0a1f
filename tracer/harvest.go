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
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

var harvestFields = []string{"tcp.stream", "http.x_forwarded_for", "tcp.payload"}

// correlationHeaders lists the header names harvested from raw payload
// bytes via regex, scanned in this fixed order.
var correlationHeaders = []string{
	"x-request-id", "x-correlation-id", "x-trace-id",
	"x-forwarded-for", "x-real-ip",
}

var headerPatterns = buildHeaderPatterns()

func buildHeaderPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(correlationHeaders))
	for _, name := range correlationHeaders {
		patterns[name] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `:\s*([^\r\n]+)`)
	}

	return patterns
}

// HarvestHeaders runs a second pass over path filtered to HTTP traffic,
// attaching correlation headers to the sessions already extracted by
// ExtractSessions. Unknown stream ids (no matching session) are
// ignored. Later packets within a session overwrite earlier header
// values for the same header name, matching the documented overwrite
// quirk. x-forwarded-for is populated first from tshark's structured
// field, then the payload regex scan runs over all five header names
// (including x-forwarded-for and x-real-ip) and overwrites whatever
// value is already set.
func HarvestHeaders(ctx context.Context, gw *dissector.Gateway, path string, sessions map[string]*types.SessionInfo) error {
	records, errc := gw.FieldStream(ctx, path, harvestFields, "http")

	for rec := range records {
		streamID := rec.Get("tcp.stream")
		if streamID == "" {
			continue
		}

		s, ok := sessions[streamID]
		if !ok {
			continue
		}

		if xff := rec.Get("http.x_forwarded_for"); xff != "" {
			s.HTTPHeaders["x-forwarded-for"] = xff
		}

		payload := decodePayloadLossy(rec.Get("tcp.payload"))
		if payload == "" {
			continue
		}

		for name, pattern := range headerPatterns {
			if m := pattern.FindStringSubmatch(payload); m != nil {
				s.HTTPHeaders[name] = strings.TrimSpace(m[1])
			}
		}
	}

	return <-errc
}

// decodePayloadLossy hex-decodes a tcp.payload field (tolerating ":"
// separators) and interprets the bytes as lossy UTF-8, the same
// relaxed decoding used for security-aggregator payload scanning.
func decodePayloadLossy(hexPayload string) string {
	if hexPayload == "" {
		return ""
	}

	cleaned := strings.ReplaceAll(hexPayload, ":", "")

	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return ""
	}

	return string(raw)
}

// sessionsByKey indexes a slice of sessions from one capture by their
// SessionID (the tcp.stream id), the lookup shape HarvestHeaders expects.
func sessionsByKey(sessions []*types.SessionInfo) map[string]*types.SessionInfo {
	byID := make(map[string]*types.SessionInfo, len(sessions))
	for _, s := range sessions {
		byID[s.SessionID] = s
	}

	return byID
}
