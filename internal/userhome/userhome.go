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

// Package userhome resolves the home directory a relative server_path
// anchors to: the process's own home (via mitchellh/go-homedir, which
// handles the cross-platform env-var/CGo lookup) when no user was named
// on the transfer request, or a named system account's home (via
// os/user, which go-homedir itself does not look up) otherwise.
package userhome

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/wenbinhou/xcp/internal/xerr"
)

// Resolve anchors serverPath to userName's home directory per spec.md
// §4.4 step 5: an absolute path is returned unchanged; "~" or "~/..." and
// any other relative path are resolved against the home directory. An
// empty userName resolves against the server process's own account.
func Resolve(serverPath, userName string) (string, error) {
	home, err := homeDir(userName)
	if err != nil {
		return "", xerr.Wrap(xerr.KindConfiguration, err, "userhome: resolving home directory for "+displayUser(userName))
	}

	fi, statErr := os.Stat(home)
	if statErr != nil || !fi.IsDir() {
		return "", xerr.New(xerr.KindConfiguration, "userhome: home directory "+home+" for "+displayUser(userName)+" is not a directory")
	}

	if filepath.IsAbs(serverPath) {
		return serverPath, nil
	}

	switch {
	case serverPath == "~":
		return home, nil
	case strings.HasPrefix(serverPath, "~/"):
		return filepath.Join(home, serverPath[2:]), nil
	case strings.HasPrefix(serverPath, `~\`):
		return filepath.Join(home, serverPath[2:]), nil
	default:
		return filepath.Join(home, serverPath), nil
	}
}

func homeDir(userName string) (string, error) {
	if userName == "" {
		return homedir.Dir()
	}
	u, err := user.Lookup(userName)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}

func displayUser(userName string) string {
	if userName == "" {
		return "the current process account"
	}
	return userName
}
