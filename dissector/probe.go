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
	"os"
	"os/exec"
	"path/filepath"
)

const macOSWiresharkPath = "/Applications/Wireshark.app/Contents/MacOS/tshark"

// probe locates the tshark binary following the fixed order from the
// public interface contract:
//
//  1. TSHARK_PATH environment variable
//  2. a bundled path relative to the running executable
//  3. the standard macOS Wireshark.app path
//  4. PATH search for "tshark"
//
// It returns the empty string when nothing is found; probing is a pure
// predicate and never fails.
func probe() string {
	if p := os.Getenv("TSHARK_PATH"); p != "" {
		return p
	}

	if p := bundledPath(); p != "" {
		if info, err := os.Stat(p); err == nil && !info.IsDir() && isExecutable(info.Mode()) {
			return p
		}
	}

	if info, err := os.Stat(macOSWiresharkPath); err == nil && !info.IsDir() {
		return macOSWiresharkPath
	}

	if p, err := exec.LookPath("tshark"); err == nil {
		return p
	}

	return ""
}

// bundledPath mirrors the reference implementation's
// "resources/bin/tshark" path, resolved relative to the running
// executable rather than a source file (Go binaries have no __file__).
func bundledPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}

	dir := filepath.Dir(exe)

	return filepath.Join(dir, "resources", "bin", "tshark")
}

func isExecutable(mode os.FileMode) bool {
	return mode&0o111 != 0
}
