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
	"go.uber.org/zap"

	"github.com/Matthewyin/nssa-netlens/types"
)

func TestFingerprint_RequiresEightBytes(t *testing.T) {
	assert.Empty(t, fingerprint("ab:cd:ef")) // 3 bytes
	assert.Empty(t, fingerprint(""))
	assert.Empty(t, fingerprint("not-hex"))
}

func TestFingerprint_ColonSeparatedAndPlain(t *testing.T) {
	colon := "47:45:54:20:2f:68:65:6c:6c:6f:0d:0a"
	plain := "4745542f68656c6c6f"

	fp1 := fingerprint(colon)
	assert.Len(t, fp1, 16)

	fp2 := fingerprint(plain[:16]) // still >= 8 bytes
	assert.NotEmpty(t, fp2)
}

func TestFingerprint_Deterministic(t *testing.T) {
	payload := "4745542068656c6c6f20776f726c64"
	assert.Equal(t, fingerprint(payload), fingerprint(payload))
}

func TestApplyPacket_BidirectionalAccounting(t *testing.T) {
	s := &types.SessionInfo{SessionID: "1", SrcIP: "10.0.0.1", HTTPHeaders: map[string]string{}}
	logger := zap.NewNop()

	applyPacket(s, types.Record{"ip.src": "10.0.0.1", "frame.len": "100", "frame.time_epoch": "1.000"}, logger)
	applyPacket(s, types.Record{"ip.src": "10.0.0.2", "frame.len": "200", "frame.time_epoch": "1.050"}, logger)

	assert.Equal(t, 2, s.PacketCount)
	assert.Equal(t, 300, s.ByteCount)
	assert.Equal(t, 1, s.ForwardPackets)
	assert.Equal(t, 1, s.BackwardPackets)
	assert.Equal(t, 100, s.ForwardBytes)
	assert.Equal(t, 200, s.BackwardBytes)
	assert.Equal(t, 1.000, s.StartTime)
	assert.Equal(t, 1.050, s.EndTime)
}

func TestApplyPacket_CapsPacketSizesAtTwenty(t *testing.T) {
	s := &types.SessionInfo{SessionID: "1", SrcIP: "10.0.0.1", HTTPHeaders: map[string]string{}}
	logger := zap.NewNop()

	for i := 0; i < 25; i++ {
		applyPacket(s, types.Record{"ip.src": "10.0.0.1", "frame.len": "64", "frame.time_epoch": "0"}, logger)
	}

	assert.Len(t, s.PacketSizes, maxPacketSizes)
}

func TestAtoiOr0_FallsBackOnBadInput(t *testing.T) {
	assert.Equal(t, 0, atoiOr0("not-a-number"))
	assert.Equal(t, 42, atoiOr0("42"))
}
