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

	"github.com/Matthewyin/nssa-netlens/types"
)

func TestBaseMethod_StripsHeaderNameSuffix(t *testing.T) {
	assert.Equal(t, "http_header", baseMethod("http_header:x-request-id"))
	assert.Equal(t, "http_header", baseMethod("http_header:x-forwarded-for"))
	assert.Equal(t, "payload_fingerprint", baseMethod("payload_fingerprint"))
}

func TestAssembleResult_AggregatesSuffixedMethodsUnderOneBucket(t *testing.T) {
	s1 := &types.SessionInfo{SessionID: "1", FileSource: "file1"}
	s2 := &types.SessionInfo{SessionID: "2", FileSource: "file2"}
	s3 := &types.SessionInfo{SessionID: "3", FileSource: "file1"}

	chains := []*types.SessionChain{
		{
			Method: MethodHTTPHeader + ":x-request-id",
			Hops: []types.ChainHop{
				{SessionID: s1.SessionID, File: s1.FileSource},
				{SessionID: s2.SessionID, File: s2.FileSource},
			},
		},
		{
			Method: MethodHTTPHeader + ":x-forwarded-for",
			Hops: []types.ChainHop{
				{SessionID: s2.SessionID, File: s2.FileSource},
				{SessionID: s3.SessionID, File: s3.FileSource},
			},
		},
	}

	result := assembleResult([]*types.SessionInfo{s1, s2, s3}, chains)

	assert.Equal(t, 2, result.Stats.MethodsUsed[MethodHTTPHeader])
	assert.Empty(t, result.Stats.MethodsUsed[MethodHTTPHeader+":x-request-id"])
}

func TestAssembleResult_UnmatchedPreservesInputOrder(t *testing.T) {
	s1 := &types.SessionInfo{SessionID: "z-session", FileSource: "file1"}
	s2 := &types.SessionInfo{SessionID: "a-session", FileSource: "file1"}

	result := assembleResult([]*types.SessionInfo{s1, s2}, nil)

	if assert.Len(t, result.UnmatchedSessions, 2) {
		assert.Equal(t, "z-session", result.UnmatchedSessions[0].SessionID)
		assert.Equal(t, "a-session", result.UnmatchedSessions[1].SessionID)
	}
}
