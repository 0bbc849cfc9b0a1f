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
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderASCII_NonPrintableBecomesDot(t *testing.T) {
	raw := []byte{0x41, 0x00, 0x42}
	encoded := hex.EncodeToString(raw)

	assert.Equal(t, "A.B", renderASCII(encoded))
}

func TestRenderHexView_TruncatesToHundredBytes(t *testing.T) {
	raw := make([]byte, 200)
	for i := range raw {
		raw[i] = byte(i % 256)
	}

	encoded := hex.EncodeToString(raw)

	assert.Len(t, renderHexView(encoded), hexViewBytes*2)
}

func TestModalProtocol_PicksHighestCount(t *testing.T) {
	counts := map[string]int{"TCP": 1, "HTTP": 5}
	assert.Equal(t, "HTTP", modalProtocol(counts))
}

func TestApplyTCPSessionPacket_CapsPayloadHexAt4000(t *testing.T) {
	acc := &sessionAccumulator{protocolCounts: make(map[string]int)}

	big := make([]byte, 3000)
	encoded := hex.EncodeToString(big)

	applyTCPSessionPacket(acc, map[string]string{"tcp.payload": encoded, "frame.len": "10", "frame.time_epoch": "1.0"})
	applyTCPSessionPacket(acc, map[string]string{"tcp.payload": encoded, "frame.len": "10", "frame.time_epoch": "1.1"})

	assert.LessOrEqual(t, acc.payloadHex.Len(), maxPayloadHexChars)
}
