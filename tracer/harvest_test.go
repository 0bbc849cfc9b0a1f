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
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderPatterns_CaseInsensitiveMatch(t *testing.T) {
	payload := "GET / HTTP/1.1\r\nX-Request-Id: abc-123\r\nHost: example.com\r\n"

	m := headerPatterns["x-request-id"].FindStringSubmatch(payload)
	if assert.NotNil(t, m) {
		assert.Equal(t, "abc-123", m[1])
	}
}

func TestHeaderPatterns_CoversAllFiveCorrelationHeaders(t *testing.T) {
	payload := "GET / HTTP/1.1\r\n" +
		"X-Request-Id: r-1\r\n" +
		"X-Correlation-Id: c-1\r\n" +
		"X-Trace-Id: t-1\r\n" +
		"X-Forwarded-For: 10.0.0.1\r\n" +
		"X-Real-Ip: 10.0.0.2\r\n"

	for name, want := range map[string]string{
		"x-request-id":     "r-1",
		"x-correlation-id": "c-1",
		"x-trace-id":       "t-1",
		"x-forwarded-for":  "10.0.0.1",
		"x-real-ip":        "10.0.0.2",
	} {
		m := headerPatterns[name].FindStringSubmatch(payload)
		if assert.NotNilf(t, m, "pattern for %s did not match", name) {
			assert.Equal(t, want, m[1])
		}
	}
}

func TestDecodePayloadLossy_HexWithColons(t *testing.T) {
	raw := []byte("hello")
	encoded := hex.EncodeToString(raw)

	assert.Equal(t, "hello", decodePayloadLossy(encoded))
	assert.Equal(t, "hello", decodePayloadLossy("68:65:6c:6c:6f"))
	assert.Equal(t, "", decodePayloadLossy(""))
	assert.Equal(t, "", decodePayloadLossy("zz"))
}
