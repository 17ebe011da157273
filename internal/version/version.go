/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package version reports build metadata for the -V flag, read from the
// binary's embedded module/VCS info rather than linker-injected variables.
package version

import (
	"fmt"
	"runtime/debug"
)

// Info is what -V prints: the module version plus enough VCS metadata to
// tell two builds of the same tag apart.
type Info struct {
	Version   string
	Revision  string
	Modified  bool
	GoVersion string
}

// Read extracts Info from the running binary's embedded build info. It
// never fails: a binary built without module/VCS metadata (e.g. `go build`
// outside a module) just reports "unknown" fields.
func Read() Info {
	info := Info{Version: "unknown", Revision: "unknown", GoVersion: "unknown"}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if bi.Main.Version != "" {
		info.Version = bi.Main.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String renders Info as "<version> (<revision>[ dirty], <go version>)";
// -V prints it after the program name.
func (i Info) String() string {
	dirty := ""
	if i.Modified {
		dirty = " dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", i.Version, i.Revision, dirty, i.GoVersion)
}
