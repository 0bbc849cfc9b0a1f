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

var tlsFields = []string{
	"tls.handshake.type", "tls.handshake.extensions_server_name",
	"tls.handshake.version", "tls.record.version", "tls.handshake.ciphersuite",
}

// tlsVersionMnemonics is the fixed TLS-version mnemonic table.
var tlsVersionMnemonics = map[string]string{
	"0x0301": "TLS 1.0", "0x0302": "TLS 1.1", "0x0303": "TLS 1.2", "0x0304": "TLS 1.3",
}

const topSNICount = 10

// handshakeTypeNames maps the tls.handshake.type code to a readable label.
var handshakeTypeNames = map[string]string{"1": "client_hello", "2": "server_hello"}

// AnalyzeTLS tree-exports TLS handshake traffic and emits one record
// per Client/Server Hello, plus a top-10 SNI table and a version
// histogram.
func AnalyzeTLS(ctx context.Context, gw *dissector.Gateway, path string) (*types.TLSResult, error) {
	filter := "tls.handshake.type == 1 or tls.handshake.type == 2"

	packets, err := gw.TreeExport(ctx, path, filter, tlsFields)
	if err != nil {
		return nil, err
	}

	var handshakes []types.TLSHandshake

	sniCounts := make(map[string]int)
	sniOrder := make([]string, 0)
	versions := make(map[string]int)

	for _, pkt := range packets {
		layers := pkt.Source.Layers

		typeCode := layers.First("tls.handshake.type")
		handshakeType := handshakeTypeNames[typeCode]

		version := layers.First("tls.handshake.version")
		if version == "" {
			version = layers.First("tls.record.version")
		}

		versionLabel, ok := tlsVersionMnemonics[version]
		if !ok {
			versionLabel = version
		}

		sni := layers.First("tls.handshake.extensions_server_name")

		handshakes = append(handshakes, types.TLSHandshake{
			SNI:     sni,
			Version: versionLabel,
			Type:    handshakeType,
			Cipher:  layers.First("tls.handshake.ciphersuite"),
		})

		if versionLabel != "" {
			versions[versionLabel]++
		}

		if sni != "" {
			if _, seen := sniCounts[sni]; !seen {
				sniOrder = append(sniOrder, sni)
			}

			sniCounts[sni]++
		}
	}

	sort.Slice(sniOrder, func(i, j int) bool {
		if sniCounts[sniOrder[i]] != sniCounts[sniOrder[j]] {
			return sniCounts[sniOrder[i]] > sniCounts[sniOrder[j]]
		}

		return sniOrder[i] < sniOrder[j]
	})

	if len(sniOrder) > topSNICount {
		sniOrder = sniOrder[:topSNICount]
	}

	topSNI := make([]types.SNICount, 0, len(sniOrder))
	for _, s := range sniOrder {
		topSNI = append(topSNI, types.SNICount{SNI: s, Count: sniCounts[s]})
	}

	return &types.TLSResult{
		TotalHandshakes: len(handshakes),
		UniqueSNI:       len(sniCounts),
		Handshakes:      handshakes,
		TopSNI:          topSNI,
		Versions:        versions,
	}, nil
}
