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

package config

import (
	"fmt"
	"regexp"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wenbinhou/xcp/internal/endpoint"
)

// ClientConfig is the option struct xcp's entry point consumes, already
// resolved into "which side is remote" plus the transfer parameters.
type ClientConfig struct {
	// IsFromServerToClient is true for a pull (from is the remote peer).
	IsFromServerToClient bool
	ServerPath           string
	LocalPath            string
	UserName             string
	Port                 uint16
	BlockSize            uint64
	Recursive            bool
	Verbosity            int
	ShowVersion          bool
}

// RegisterClientFlags adds xcp's flags to cmd and binds each one through v.
func RegisterClientFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.Flags().Uint16P("port", "P", endpoint.DefaultPort, "server portal port")
	cmd.Flags().StringP("user", "u", "", "user whose home directory anchors a relative server path")
	cmd.Flags().Uint64P("block", "B", 0, "fixed transfer block size in bytes; 0 enables adaptive sizing")
	cmd.Flags().BoolP("recursive", "r", false, "transfer a directory tree")
	cmd.Flags().CountP("verbose", "v", "increase verbosity (repeatable)")
	cmd.Flags().CountP("quiet", "q", "decrease verbosity (repeatable)")
	cmd.Flags().BoolP("version", "V", false, "print version and exit")

	for _, name := range []string{"port", "user", "block", "recursive", "verbose", "quiet", "version"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("config: binding --%s: %w", name, err)
		}
	}
	return nil
}

// driveLetter matches a single-letter Windows drive prefix ("C:\..."),
// which a platform-aware host parser must not mistake for a "host:path"
// remote spec.
var driveLetter = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// peerSpec is one resolved `from`/`to` positional argument: either a local
// path, or a user@host:path remote reference.
type peerSpec struct {
	isRemote bool
	userName string
	host     string
	path     string
}

// parsePeerSpec splits "[user@]host:path" from a bare local path. A colon
// preceded by a single letter is a Windows drive letter, not a host
// separator, when running on an OS that has drive letters.
var hostPathSplit = regexp.MustCompile(`^(?:([^@:]+)@)?([^@:]+):(.+)$`)

func parsePeerSpec(raw string) peerSpec {
	if runtime.GOOS == "windows" && driveLetter.MatchString(raw) {
		return peerSpec{path: raw}
	}
	m := hostPathSplit.FindStringSubmatch(raw)
	if m == nil {
		return peerSpec{path: raw}
	}
	return peerSpec{isRemote: true, userName: m[1], host: m[2], path: m[3]}
}

// LoadClientConfig resolves the positional from/to arguments into a
// ClientConfig, determining transfer direction from which side names a
// remote host. Exactly one of from/to may be remote.
func LoadClientConfig(v *viper.Viper, from, to string) (*ClientConfig, string, error) {
	src := parsePeerSpec(from)
	dst := parsePeerSpec(to)

	cfg := &ClientConfig{
		Port:        uint16(v.GetInt("port")),
		UserName:    v.GetString("user"),
		BlockSize:   v.GetUint64("block"),
		Recursive:   v.GetBool("recursive"),
		Verbosity:   v.GetInt("verbose") - v.GetInt("quiet"),
		ShowVersion: v.GetBool("version"),
	}

	var host string
	switch {
	case src.isRemote && dst.isRemote:
		return nil, "", fmt.Errorf("config: both %q and %q name a remote host; transfers between two remote hosts are not supported", from, to)
	case src.isRemote:
		cfg.IsFromServerToClient = true
		cfg.ServerPath = src.path
		cfg.LocalPath = dst.path
		host = src.host
		if src.userName != "" {
			cfg.UserName = src.userName
		}
	case dst.isRemote:
		cfg.IsFromServerToClient = false
		cfg.ServerPath = dst.path
		cfg.LocalPath = src.path
		host = dst.host
		if dst.userName != "" {
			cfg.UserName = dst.userName
		}
	default:
		return nil, "", fmt.Errorf("config: neither %q nor %q names a remote host", from, to)
	}

	return cfg, host, nil
}
