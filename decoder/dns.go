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
	"sort"

	"context"

	"github.com/Matthewyin/nssa-netlens/dissector"
	"github.com/Matthewyin/nssa-netlens/types"
)

var dnsFields = []string{
	"frame.number", "dns.id", "dns.qry.name", "dns.qry.type",
	"dns.flags.response", "dns.resp.name", "dns.a", "dns.aaaa",
	"dns.cname", "dns.flags.rcode",
}

// dnsTypeMnemonics is the fixed DNS query-type mnemonic table.
var dnsTypeMnemonics = map[string]string{
	"1": "A", "2": "NS", "5": "CNAME", "6": "SOA", "12": "PTR",
	"15": "MX", "16": "TXT", "28": "AAAA", "33": "SRV", "255": "ANY",
}

const topDomainCount = 10

// AnalyzeDNS tree-exports DNS traffic and emits one record per query
// or response packet, plus a top-10 queried-domain table.
func AnalyzeDNS(ctx context.Context, gw *dissector.Gateway, path string) (*types.DNSResult, error) {
	packets, err := gw.TreeExport(ctx, path, "dns", dnsFields)
	if err != nil {
		return nil, err
	}

	var queries []types.DNSQuery

	domainCounts := make(map[string]int)
	domainOrder := make([]string, 0)

	totalQueries, totalResponses := 0, 0

	for _, pkt := range packets {
		layers := pkt.Source.Layers

		domain := layers.First("dns.qry.name")
		isResponse := layers.First("dns.flags.response") == "1"

		var answers []string

		for _, field := range []string{"dns.a", "dns.aaaa", "dns.cname", "dns.resp.name"} {
			answers = append(answers, layers[field]...)
		}

		q := types.DNSQuery{
			Frame:      layers.First("frame.number"),
			ID:         layers.First("dns.id"),
			Domain:     domain,
			Type:       dnsTypeMnemonics[layers.First("dns.qry.type")],
			Answers:    answers,
			RCode:      layers.First("dns.flags.rcode"),
			IsResponse: isResponse,
		}

		queries = append(queries, q)

		if isResponse {
			totalResponses++
		} else {
			totalQueries++
		}

		if domain != "" {
			if _, seen := domainCounts[domain]; !seen {
				domainOrder = append(domainOrder, domain)
			}

			domainCounts[domain]++
		}
	}

	sort.Slice(domainOrder, func(i, j int) bool {
		if domainCounts[domainOrder[i]] != domainCounts[domainOrder[j]] {
			return domainCounts[domainOrder[i]] > domainCounts[domainOrder[j]]
		}

		return domainOrder[i] < domainOrder[j]
	})

	if len(domainOrder) > topDomainCount {
		domainOrder = domainOrder[:topDomainCount]
	}

	topDomains := make([]types.DomainCount, 0, len(domainOrder))
	for _, d := range domainOrder {
		topDomains = append(topDomains, types.DomainCount{Domain: d, Count: domainCounts[d]})
	}

	return &types.DNSResult{
		TotalQueries:   totalQueries,
		TotalResponses: totalResponses,
		UniqueDomains:  len(domainCounts),
		Queries:        queries,
		TopDomains:     topDomains,
	}, nil
}
