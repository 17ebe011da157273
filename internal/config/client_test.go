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
	"testing"

	"github.com/spf13/viper"
)

func TestParsePeerSpec(t *testing.T) {
	cases := []struct {
		in       string
		isRemote bool
		user     string
		host     string
		path     string
	}{
		{in: "/var/tmp/file.bin", path: "/var/tmp/file.bin"},
		{in: "host:path/to/file", isRemote: true, host: "host", path: "path/to/file"},
		{in: "alice@host:path/to/file", isRemote: true, user: "alice", host: "host", path: "path/to/file"},
		{in: "host:/abs/path", isRemote: true, host: "host", path: "/abs/path"},
	}

	for _, c := range cases {
		got := parsePeerSpec(c.in)
		if got.isRemote != c.isRemote || got.userName != c.user || got.host != c.host || got.path != c.path {
			t.Errorf("parsePeerSpec(%q) = %+v, want {isRemote:%v user:%q host:%q path:%q}", c.in, got, c.isRemote, c.user, c.host, c.path)
		}
	}
}

func TestLoadClientConfigDirection(t *testing.T) {
	v := viper.New()
	v.Set("port", 62581)
	v.Set("block", uint64(0))

	cfg, host, err := LoadClientConfig(v, "local.bin", "bob@remote:dest.bin")
	if err != nil {
		t.Fatalf("LoadClientConfig: %v", err)
	}
	if cfg.IsFromServerToClient {
		t.Fatalf("push transfer misclassified as pull")
	}
	if host != "remote" || cfg.UserName != "bob" {
		t.Fatalf("host/user = %q/%q, want remote/bob", host, cfg.UserName)
	}
	if cfg.ServerPath != "dest.bin" || cfg.LocalPath != "local.bin" {
		t.Fatalf("server/local path = %q/%q", cfg.ServerPath, cfg.LocalPath)
	}

	if _, _, err := LoadClientConfig(v, "a@h1:x", "b@h2:y"); err == nil {
		t.Fatalf("expected error for two remote peers")
	}
	if _, _, err := LoadClientConfig(v, "local-a", "local-b"); err == nil {
		t.Fatalf("expected error for two local peers")
	}
}
