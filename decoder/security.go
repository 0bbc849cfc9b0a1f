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
	"regexp"
	"strings"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

const synScanThreshold = 20

var synScanFields = []string{"ip.src", "tcp.dstport"}

var payloadScanFields = []string{"ip.src", "ip.dst", "tcp.payload"}

// sqliPatterns and xssPatterns are the fixed five-pattern detection
// sets; patterns are intentionally broad substring/regex checks, not a
// full WAF ruleset.
var sqliPatternSource = []string{
	`union\s+select`,
	`'\s+or\s+'1'='1`,
	`"\s+or\s+"1"="1`,
	`information_schema`,
	`waitfor\s+delay`,
}

var xssPatternSource = []string{
	`<script>`,
	`javascript:`,
	`onerror=`,
	`onload=`,
	`alert\(`,
}

var sqliPatterns = compilePatterns(sqliPatternSource)

var xssPatterns = compilePatterns(xssPatternSource)

func compilePatterns(sources []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(sources))
	for i, s := range sources {
		out[i] = regexp.MustCompile(s)
	}

	return out
}

const basicAuthMarker = "Authorization: Basic"

// AnalyzeSecurity runs two independent streaming scans: a SYN-scan
// detector keyed by distinct destination ports per source IP, and a
// payload regex scan for SQL injection, XSS and plaintext Basic Auth.
func AnalyzeSecurity(ctx context.Context, gw *dissector.Gateway, path string) (*types.SecurityResult, error) {
	var alerts []types.SecurityAlert

	seen := make(map[string]bool)

	synAlerts, err := scanSynFlood(ctx, gw, path)
	if err != nil {
		return nil, err
	}

	for _, a := range synAlerts {
		dedupeAppend(&alerts, seen, a)
	}

	payloadAlerts, err := scanPayloads(ctx, gw, path)
	if err != nil {
		return nil, err
	}

	for _, a := range payloadAlerts {
		dedupeAppend(&alerts, seen, a)
	}

	return &types.SecurityResult{SecurityAlerts: alerts, TotalAlerts: len(alerts)}, nil
}

func dedupeAppend(alerts *[]types.SecurityAlert, seen map[string]bool, a types.SecurityAlert) {
	key := a.AlertType + "|" + a.SourceIP + "|" + a.Description
	if seen[key] {
		return
	}

	seen[key] = true
	*alerts = append(*alerts, a)
}

func scanSynFlood(ctx context.Context, gw *dissector.Gateway, path string) ([]types.SecurityAlert, error) {
	records, errc := gw.FieldStream(ctx, path, synScanFields, "tcp.flags.syn==1 and tcp.flags.ack==0")

	portsBySrc := make(map[string]map[string]bool)

	for rec := range records {
		src := rec.Get("ip.src")
		port := rec.Get("tcp.dstport")

		if src == "" {
			continue
		}

		set, ok := portsBySrc[src]
		if !ok {
			set = make(map[string]bool)
			portsBySrc[src] = set
		}

		set[port] = true
	}

	if err := <-errc; err != nil {
		return nil, err
	}

	var alerts []types.SecurityAlert

	for src, ports := range portsBySrc {
		if len(ports) > synScanThreshold {
			alerts = append(alerts, types.SecurityAlert{
				Severity:    "high",
				AlertType:   "syn_scan",
				Description: "possible SYN scan: distinct destination ports exceed threshold",
				SourceIP:    src,
			})
		}
	}

	return alerts, nil
}

func scanPayloads(ctx context.Context, gw *dissector.Gateway, path string) ([]types.SecurityAlert, error) {
	records, errc := gw.FieldStream(ctx, path, payloadScanFields, "tcp.len > 0")

	var alerts []types.SecurityAlert

	for rec := range records {
		payload := decodeHexLossy(rec.Get("tcp.payload"))
		if payload == "" {
			continue
		}

		src := rec.Get("ip.src")
		dst := rec.Get("ip.dst")
		preview := previewOf(payload)
		lowerPayload := strings.ToLower(payload)

		for i, p := range sqliPatterns {
			if p.MatchString(lowerPayload) {
				alerts = append(alerts, types.SecurityAlert{
					Severity:       "high",
					AlertType:      "sql_injection",
					Description:    sqliDescription(i),
					SourceIP:       src,
					TargetIP:       dst,
					PayloadPreview: preview,
				})

				break
			}
		}

		for i, p := range xssPatterns {
			if p.MatchString(lowerPayload) {
				alerts = append(alerts, types.SecurityAlert{
					Severity:       "medium",
					AlertType:      "xss",
					Description:    xssDescription(i),
					SourceIP:       src,
					TargetIP:       dst,
					PayloadPreview: preview,
				})

				break
			}
		}

		if strings.Contains(payload, basicAuthMarker) {
			alerts = append(alerts, types.SecurityAlert{
				Severity:       "low",
				AlertType:      "plaintext_credentials",
				Description:    "HTTP Basic Auth transmitted in cleartext",
				SourceIP:       src,
				TargetIP:       dst,
				PayloadPreview: preview,
			})
		}
	}

	if err := <-errc; err != nil {
		return nil, err
	}

	return alerts, nil
}

func sqliDescription(i int) string {
	return "SQL Injection pattern detected: " + sqliPatternSource[i]
}

func xssDescription(i int) string {
	return "Cross-Site Scripting pattern detected: " + xssPatternSource[i]
}

func decodeHexLossy(hexPayload string) string {
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

func previewOf(s string) string {
	const maxPreview = 120
	if len(s) > maxPreview {
		return s[:maxPreview]
	}

	return s
}
