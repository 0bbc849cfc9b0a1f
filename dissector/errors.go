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

import "errors"

// ErrUnavailable is returned when no dissector binary could be located.
// Callers compare with errors.Is; public operations never panic on this
// condition, they degrade to an empty result instead.
var ErrUnavailable = errors.New("dissector: no tshark binary available")

// DissectorError wraps a non-zero dissector exit or malformed output.
// Its Stderr field is surfaced verbatim to callers per the error
// contract ("DissectorError" propagated as {error: stderr}).
type DissectorError struct {
	Stderr string
}

func (e *DissectorError) Error() string {
	if e.Stderr == "" {
		return "dissector: command failed"
	}

	return "dissector: " + e.Stderr
}
