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

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

var httpFields = []string{
	"frame.number", "tcp.stream",
	"http.request.method", "http.host", "http.request.uri", "http.user_agent",
	"http.response.code", "http.content_type",
}

const topHostCount = 10

// AnalyzeHTTP tree-exports HTTP traffic and emits one record per
// request or response packet, plus a top-10 Host table.
func AnalyzeHTTP(ctx context.Context, gw *dissector.Gateway, path string) (*types.HTTPResult, error) {
	packets, err := gw.TreeExport(ctx, path, "http", httpFields)
	if err != nil {
		return nil, err
	}

	var requests []types.HTTPRecord

	hostCounts := make(map[string]int)
	hostOrder := make([]string, 0)

	totalRequests, totalResponses := 0, 0

	for _, pkt := range packets {
		layers := pkt.Source.Layers

		frame := layers.First("frame.number")
		stream := layers.First("tcp.stream")

		if method := layers.First("http.request.method"); method != "" {
			host := layers.First("http.host")

			requests = append(requests, types.HTTPRecord{
				Frame:  frame,
				Stream: stream,
				Type:   "request",
				Method: method,
				Host:   host,
				Path:   layers.First("http.request.uri"),
				UA:     layers.First("http.user_agent"),
			})

			totalRequests++

			if host != "" {
				if _, seen := hostCounts[host]; !seen {
					hostOrder = append(hostOrder, host)
				}

				hostCounts[host]++
			}

			continue
		}

		if status := layers.First("http.response.code"); status != "" {
			requests = append(requests, types.HTTPRecord{
				Frame:  frame,
				Stream: stream,
				Type:   "response",
				Status: status,
				CType:  layers.First("http.content_type"),
			})

			totalResponses++
		}
	}

	sort.Slice(hostOrder, func(i, j int) bool {
		if hostCounts[hostOrder[i]] != hostCounts[hostOrder[j]] {
			return hostCounts[hostOrder[i]] > hostCounts[hostOrder[j]]
		}

		return hostOrder[i] < hostOrder[j]
	})

	if len(hostOrder) > topHostCount {
		hostOrder = hostOrder[:topHostCount]
	}

	topHosts := make([]types.HostCount, 0, len(hostOrder))
	for _, h := range hostOrder {
		topHosts = append(topHosts, types.HostCount{Host: h, Count: hostCounts[h]})
	}

	return &types.HTTPResult{
		TotalRequests:  totalRequests,
		TotalResponses: totalResponses,
		UniqueHosts:    len(hostCounts),
		Requests:       requests,
		TopHosts:       topHosts,
	}, nil
}
