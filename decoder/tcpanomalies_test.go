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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Matthewyin/nssa-netlens/types"
)

func TestClassifyAnomaly_RetransmissionAndReset(t *testing.T) {
	layers := types.PacketLayers{
		"tcp.analysis.retransmission": {"1"},
		"tcp.flags.reset":             {"1"},
	}

	got := classifyAnomaly(layers)

	assert.Contains(t, got, "retransmission")
	assert.Contains(t, got, "reset")
}

func TestClassifyAnomaly_EmptyWhenNoFlags(t *testing.T) {
	assert.Empty(t, classifyAnomaly(types.PacketLayers{}))
}

func TestClassifyAnomaly_WindowFullAndAckLostSegment(t *testing.T) {
	layers := types.PacketLayers{
		"tcp.analysis.window_full":      {"1"},
		"tcp.analysis.ack_lost_segment": {"1"},
	}

	got := classifyAnomaly(layers)

	assert.Contains(t, got, "window_full")
	assert.Contains(t, got, "ack_lost_segment")
	assert.NotContains(t, got, "keep_alive")
}

func TestDecodeFlags_HexAndDecimal(t *testing.T) {
	assert.Equal(t, "SYN,ACK", decodeFlags("0x12"))
	assert.Equal(t, "ACK", decodeFlags("16"))
	assert.Equal(t, "---", decodeFlags(""))
}
