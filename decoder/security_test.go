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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Matthewyin/nssa-netlens/types"
)

func TestSqliPatterns_MatchUnionSelect(t *testing.T) {
	payload := strings.ToLower("id=1 UNION SELECT username, password FROM users")

	matched := false

	for _, p := range sqliPatterns {
		if p.MatchString(payload) {
			matched = true
		}
	}

	assert.True(t, matched)
}

func TestSqliPatterns_MatchTautology(t *testing.T) {
	payload := strings.ToLower("username=admin' OR '1'='1")

	matched := false

	for _, p := range sqliPatterns {
		if p.MatchString(payload) {
			matched = true
		}
	}

	assert.True(t, matched)
}

func TestXssPatterns_MatchScriptTag(t *testing.T) {
	payload := "<script>alert(1)</script>"

	matched := false

	for _, p := range xssPatterns {
		if p.MatchString(payload) {
			matched = true
		}
	}

	assert.True(t, matched)
}

func TestDedupeAppend_DropsDuplicateKey(t *testing.T) {
	var alerts []types.SecurityAlert

	seen := make(map[string]bool)
	a := types.SecurityAlert{AlertType: "sql_injection", SourceIP: "1.2.3.4", Description: "union select"}

	dedupeAppend(&alerts, seen, a)
	dedupeAppend(&alerts, seen, a)
	dedupeAppend(&alerts, seen, a)

	assert.Len(t, alerts, 1)
}
