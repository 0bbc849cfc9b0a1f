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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matthewyin/nssa-netlens/types"
)

func session(id, fileSource, srcIP string, srcPort int, dstIP string, dstPort int, start float64) *types.SessionInfo {
	return &types.SessionInfo{
		SessionID:   id,
		FileSource:  fileSource,
		SrcIP:       srcIP,
		SrcPort:     srcPort,
		DstIP:       dstIP,
		DstPort:     dstPort,
		StartTime:   start,
		EndTime:     start,
		HTTPHeaders: map[string]string{},
	}
}

func TestMatchByFingerprint_DirectProxy(t *testing.T) {
	a := session("1", "cap", "10.0.0.1", 51000, "10.0.0.2", 80, 0.000)
	a.PayloadFingerprint = "aaaaaaaaaaaaaaaa"

	b := session("2", "cap", "10.0.0.2", 51000, "10.0.0.3", 80, 0.050)
	b.PayloadFingerprint = "aaaaaaaaaaaaaaaa"

	edges := MatchByFingerprint([]*types.SessionInfo{a, b})

	require.Len(t, edges, 1)
	assert.Equal(t, 0.90, edges[0].Confidence)
	assert.Equal(t, MethodPayloadFingerprint, edges[0].Method)
}

func TestMatchByFingerprint_NoMatchWithoutPayload(t *testing.T) {
	a := session("1", "cap", "10.0.0.1", 51000, "10.0.0.2", 80, 0)
	b := session("2", "cap", "10.0.0.2", 51000, "10.0.0.3", 80, 0.01)

	edges := MatchByFingerprint([]*types.SessionInfo{a, b})
	assert.Empty(t, edges)
}

func TestMatchByHTTPHeader_RequestID(t *testing.T) {
	s1 := session("1", "cap", "10.0.0.1", 1, "10.0.0.9", 80, 0.000)
	s2 := session("2", "cap", "10.0.0.2", 2, "10.0.0.9", 80, 0.060)
	s3 := session("3", "cap", "10.0.0.3", 3, "10.0.0.9", 80, 0.120)

	for _, s := range []*types.SessionInfo{s1, s2, s3} {
		s.HTTPHeaders["x-request-id"] = "abc-123"
	}

	edges := MatchByHTTPHeader([]*types.SessionInfo{s1, s2, s3}, false)

	require.Len(t, edges, 3) // C(3,2)
	for _, e := range edges {
		assert.Equal(t, 0.95, e.Confidence)
		assert.Equal(t, MethodHTTPHeader, e.Method)
	}
}

func TestMatchByHTTPHeader_XForwardedFor(t *testing.T) {
	x := session("x", "cap", "1.1.1.1", 40000, "2.2.2.2", 443, 0.000)
	y := session("y", "cap", "2.2.2.2", 40001, "3.3.3.3", 443, 0.150)
	y.HTTPHeaders["x-forwarded-for"] = "1.1.1.1"

	edges := MatchByHTTPHeader([]*types.SessionInfo{x, y}, false)

	require.Len(t, edges, 1)
	assert.Equal(t, x, edges[0].A)
	assert.Equal(t, y, edges[0].B)
	assert.Equal(t, 0.90, edges[0].Confidence)
}

func TestMatchByTimingAndSize_PortPreserved(t *testing.T) {
	a := session("1", "cap", "10.0.0.1", 5000, "10.0.0.2", 80, 0.000)
	a.PacketSizes = []int{74, 74, 66, 517, 66}

	b := session("2", "cap", "10.0.0.2", 5000, "10.0.0.3", 80, 0.100)
	b.PacketSizes = []int{74, 74, 66, 517, 66}

	edges := MatchByTimingAndSize([]*types.SessionInfo{a, b})

	require.Len(t, edges, 1)
	assert.InDelta(t, 0.80, edges[0].Confidence, 1e-9)
	assert.Equal(t, MethodTimingSize, edges[0].Method)
}

func TestSizeSequenceSimilarity_RequiresThreePositions(t *testing.T) {
	_, ok := sizeSequenceSimilarity([]int{10, 20}, []int{10, 20})
	assert.False(t, ok)
}

func TestMatchCrossFile_Fingerprint(t *testing.T) {
	a := session("1", "file1", "10.0.0.1", 1, "10.0.0.2", 2, 1.0)
	a.PayloadFingerprint = "deadbeefcafefeed"

	b := session("1", "file2", "10.9.9.9", 9, "10.9.9.8", 8, 1.0)
	b.PayloadFingerprint = "deadbeefcafefeed"

	edges := MatchCrossFile([]*types.SessionInfo{a}, []*types.SessionInfo{b})

	require.NotEmpty(t, edges)

	var found bool

	for _, e := range edges {
		if e.Method == MethodPayloadFingerprint {
			found = true

			assert.Equal(t, 0.90, e.Confidence)
		}
	}

	assert.True(t, found)
}
