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

func TestTopProtocols_PercentageRounding(t *testing.T) {
	counts := map[string]int{"TCP": 2, "UDP": 1}

	stats := topProtocols(counts, 3)

	assert.Len(t, stats, 2)
	assert.Equal(t, "TCP", stats[0].Name)
	assert.InDelta(t, 66.7, stats[0].Percentage, 0.01)
}

func TestTopTalkers_SortedByCombinedTraffic(t *testing.T) {
	talkers := map[string]*ipTraffic{
		"10.0.0.1": {packetsSent: 5, packetsReceived: 1},
		"10.0.0.2": {packetsSent: 1, packetsReceived: 1},
	}

	out := topTalkers(talkers)

	assert.Equal(t, "10.0.0.1", out[0].IP)
}

func TestResampleTimeline_CapsAtFifty(t *testing.T) {
	buckets := make(map[int]*types.TimelinePoint)
	for i := 0; i < 120; i++ {
		buckets[i] = &types.TimelinePoint{Packets: 1}
	}

	out := resampleTimeline(buckets)

	assert.LessOrEqual(t, len(out), maxTimelinePoints)
}

func TestResampleTimeline_PassesThroughSmallSets(t *testing.T) {
	buckets := map[int]*types.TimelinePoint{0: {Packets: 3}, 1: {Packets: 5}}

	out := resampleTimeline(buckets)

	assert.Len(t, out, 2)
}

func TestParseInt_FallsBackOnBadInput(t *testing.T) {
	assert.Equal(t, 0, parseInt("garbage"))
	assert.Equal(t, 7, parseInt("7"))
}
