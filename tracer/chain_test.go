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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matthewyin/nssa-netlens/types"
)

func withForward(s *types.SessionInfo, packets, bytes int, start, end float64) *types.SessionInfo {
	s.ForwardPackets = packets
	s.ForwardBytes = bytes
	s.ForwardStart = start
	s.ForwardEnd = end
	s.BackwardPackets = packets
	s.BackwardBytes = bytes
	s.BackwardStart = start
	s.BackwardEnd = end
	s.PacketCount = packets * 2
	s.ByteCount = bytes * 2

	return s
}

func TestBuildChains_DirectProxySingleChain(t *testing.T) {
	a := withForward(session("1", "cap", "10.0.0.1", 51000, "10.0.0.2", 80, 0.000), 3, 300, 0.000, 0.010)
	b := withForward(session("2", "cap", "10.0.0.2", 51000, "10.0.0.3", 80, 0.050), 3, 300, 0.050, 0.060)

	edges := []Edge{{A: a, B: b, Confidence: 0.90, Method: MethodPayloadFingerprint}}

	chains := BuildChains(context.Background(), nil, edges, ChainOptions{}, nil)

	require.Len(t, chains, 1)
	assert.Equal(t, "chain_001", chains[0].ChainID)
	assert.Equal(t, 0.90, chains[0].Confidence)
	assert.Equal(t, MethodPayloadFingerprint, chains[0].Method)
	assert.Len(t, chains[0].Hops, 4)
}

func TestBuildChains_DedupeKeepsMaxConfidence(t *testing.T) {
	a := session("1", "cap", "10.0.0.1", 1, "10.0.0.2", 2, 0)
	b := session("2", "cap", "10.0.0.2", 1, "10.0.0.3", 2, 0.01)

	edges := []Edge{
		{A: a, B: b, Confidence: 0.75, Method: MethodTimingSize},
		{A: b, B: a, Confidence: 0.90, Method: MethodPayloadFingerprint},
	}

	chains := BuildChains(context.Background(), nil, edges, ChainOptions{}, nil)

	require.Len(t, chains, 1)
	assert.Equal(t, 0.90, chains[0].Confidence)
	assert.Equal(t, MethodPayloadFingerprint, chains[0].Method)
}

func TestBuildChains_InvalidTransitiveUnionStillMerges(t *testing.T) {
	// 1<->2 direct proxy, 2<->3 port-preserved; 1<->3 shares no geometry,
	// but since both consecutive pairs in sorted order are valid hops the
	// splitter keeps all three together as one sub-chain.
	s1 := session("1", "cap", "10.0.0.1", 1, "10.0.0.2", 80, 0.000)
	s2 := session("2", "cap", "10.0.0.2", 5000, "10.0.0.3", 80, 0.050)
	s3 := session("3", "cap", "10.0.0.4", 5000, "10.0.0.5", 80, 0.100)

	edges := []Edge{
		{A: s1, B: s2, Confidence: 0.90, Method: MethodPayloadFingerprint},
		{A: s2, B: s3, Confidence: 0.75, Method: MethodPayloadFingerprint},
		{A: s1, B: s3, Confidence: 0.90, Method: MethodPayloadFingerprint},
	}

	chains := BuildChains(context.Background(), nil, edges, ChainOptions{}, nil)

	require.Len(t, chains, 1)
	assert.Len(t, chains[0].Hops, 6)
}

func TestBuildChains_UnrelatedPairSplits(t *testing.T) {
	s1 := session("1", "cap", "10.0.0.1", 1, "10.0.0.2", 80, 0.000)
	s2 := session("2", "cap", "10.0.0.2", 1, "10.0.0.3", 80, 0.050)
	s3 := session("3", "cap", "9.9.9.9", 9999, "8.8.8.8", 9999, 0.100)

	edges := []Edge{
		{A: s1, B: s2, Confidence: 0.90, Method: MethodPayloadFingerprint},
		{A: s2, B: s3, Confidence: 0.75, Method: MethodPayloadFingerprint},
	}

	chains := BuildChains(context.Background(), nil, edges, ChainOptions{}, nil)

	require.Len(t, chains, 1)
	assert.Len(t, chains[0].Hops, 4) // only s1,s2 survive as a valid sub-chain
}

func TestDecodeFlags(t *testing.T) {
	assert.Equal(t, "SYN", decodeFlags("0x02"))
	assert.Equal(t, "SYN,ACK", decodeFlags("0x12"))
	assert.Equal(t, "ACK", decodeFlags("16"))
	assert.Equal(t, "---", decodeFlags(""))
	assert.Equal(t, "---", decodeFlags("not-a-number"))
}

func TestIsValidHopPair(t *testing.T) {
	direct := session("1", "cap", "10.0.0.1", 1, "10.0.0.2", 80, 0)
	next := session("2", "cap", "10.0.0.2", 2, "10.0.0.3", 80, 0.01)
	assert.True(t, isValidHopPair(direct, next))

	unrelated := session("3", "cap", "9.9.9.9", 1, "8.8.8.8", 2, 0.02)
	assert.False(t, isValidHopPair(next, unrelated))
}
