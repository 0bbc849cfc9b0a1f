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

package types

// Record is one row of the dissector's field-stream output: a mapping
// from requested field name to its textual value. A field present in
// the projection but empty on the wire is kept as an empty string entry
// rather than omitted, so callers can distinguish "absent" from "empty".
type Record map[string]string

// Get returns the value for key, or the empty string if the key is
// absent from the row entirely (as opposed to present-but-empty).
func (r Record) Get(key string) string {
	return r[key]
}

// PacketLayers is the `_source.layers` map of a tree-export packet
// object: each field name maps to every occurrence of that field
// within the packet, in wire order.
type PacketLayers map[string][]string

// First returns the first occurrence of key, or the empty string if
// the field did not appear in this packet.
func (l PacketLayers) First(key string) string {
	values := l[key]
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// PacketSource wraps the layers map the way tshark's `-T json` nests it.
type PacketSource struct {
	Layers PacketLayers `json:"layers"`
}

// PacketObject is a single packet as returned by tree-export.
type PacketObject struct {
	Source PacketSource `json:"_source"`
}
