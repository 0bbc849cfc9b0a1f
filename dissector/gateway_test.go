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

package dissector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGateway_SetPathIdempotent(t *testing.T) {
	gw := New("/usr/bin/tshark", zap.NewNop(), nil)

	assert.True(t, gw.IsAvailable())
	assert.Equal(t, "/usr/bin/tshark", gw.Path())

	gw.SetPath("/usr/bin/tshark")
	assert.Equal(t, "/usr/bin/tshark", gw.Path())
}

func TestGateway_UnavailableWhenNoPath(t *testing.T) {
	gw := New("", zap.NewNop(), nil)
	gw.SetPath("")

	assert.False(t, gw.IsAvailable())
}

func TestDissectorError_MessageFallback(t *testing.T) {
	err := &DissectorError{}
	assert.Equal(t, "dissector: command failed", err.Error())

	err2 := &DissectorError{Stderr: "boom"}
	assert.Equal(t, "dissector: boom", err2.Error())
}
