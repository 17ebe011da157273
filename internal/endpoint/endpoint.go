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

// Package endpoint wraps IPv4/IPv6 socket addresses and the
// host[:port][@multiplicity] requested-endpoint strings the CLI surface
// accepts for -p/-C/-P flags.
package endpoint

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is a resolved socket address together with its display form and
// an "unspecified address" flag (0.0.0.0 / ::).
type Endpoint struct {
	Addr *net.TCPAddr
}

// New wraps a resolved *net.TCPAddr.
func New(addr *net.TCPAddr) Endpoint {
	return Endpoint{Addr: addr}
}

// IsUnspecified reports whether the address is the IPv4 or IPv6 "any"
// address (0.0.0.0 or ::), used by the client to detect it must substitute
// the portal's peer address when opening channels.
func (e Endpoint) IsUnspecified() bool {
	return e.Addr == nil || e.Addr.IP == nil || e.Addr.IP.IsUnspecified()
}

// String renders the endpoint the way an operator expects to see it,
// bracketing IPv6 addresses.
func (e Endpoint) String() string {
	if e.Addr == nil {
		return "<nil>"
	}
	return e.Addr.String()
}

// Requested is a not-yet-resolved endpoint as given on the command line:
// a host string, an optional port (0 means "let the OS choose"), and a
// multiplicity (how many channel connections to open to this endpoint).
type Requested struct {
	Host         string
	Port         uint16
	Multiplicity uint32
	// MultiplicityExplicit is true when the "@n" suffix was present on the
	// command line, including "@1" — distinct from Multiplicity == 1 by
	// default. The portal listener uses this to decide whether it also
	// accepts channel connections (spec.md §9): "-p host" alone never
	// reuses the portal socket, but "-p host@1" does.
	MultiplicityExplicit bool
	Resolved             []*net.TCPAddr
}

// DefaultPort is the well-known xcpd portal port.
const DefaultPort = 62581

// Parse parses a "host[:port][@multiplicity]" string as used by -p, -C and
// the client's server argument. An empty host resolves to "any" (all
// interfaces); port 0 means "pick any"; multiplicity defaults to 1.
func Parse(s string, defaultPort uint16) (Requested, error) {
	r := Requested{Port: defaultPort, Multiplicity: 1}

	body := s
	if idx := strings.LastIndexByte(body, '@'); idx >= 0 {
		n, err := strconv.ParseUint(body[idx+1:], 10, 32)
		if err != nil {
			return Requested{}, fmt.Errorf("endpoint: invalid multiplicity in %q: %w", s, err)
		}
		if n == 0 {
			return Requested{}, fmt.Errorf("endpoint: multiplicity must be >= 1 in %q", s)
		}
		r.Multiplicity = uint32(n)
		r.MultiplicityExplicit = true
		body = body[:idx]
	}

	host, port, err := splitHostPort(body)
	if err != nil {
		return Requested{}, err
	}

	r.Host = host
	if port != "" {
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return Requested{}, fmt.Errorf("endpoint: invalid port in %q: %w", s, err)
		}
		r.Port = uint16(p)
	}

	return r, nil
}

// splitHostPort tolerates a bare host with no port (the whole flag body is
// taken as host, default port applies) in addition to net.SplitHostPort's
// stricter "host:port" requirement.
func splitHostPort(body string) (host, port string, err error) {
	if body == "" {
		return "", "", nil
	}

	host, port, err = net.SplitHostPort(body)
	if err == nil {
		return host, port, nil
	}

	// No colon at all: treat the whole string as a bare host.
	if !strings.Contains(body, ":") {
		return body, "", nil
	}

	return "", "", fmt.Errorf("endpoint: cannot parse %q: %w", body, err)
}

// Resolve looks up every address the requested host maps to, at the
// requested port. A resolution failure is the caller's cue to treat this as
// a resolution error (configuration/resolution errors abort before any
// socket is created).
func (r *Requested) Resolve() error {
	host := r.Host
	if host == "" {
		host = "::"
	}

	ips, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		// LookupIPAddr rejects literal "::"/"0.0.0.0"; fall back to a
		// direct parse for the "any" addresses and bare IPs.
		if ip := net.ParseIP(host); ip != nil {
			r.Resolved = []*net.TCPAddr{{IP: ip, Port: int(r.Port)}}
			return nil
		}
		return fmt.Errorf("endpoint: resolving %q: %w", host, err)
	}

	out := make([]*net.TCPAddr, 0, len(ips))
	for _, ip := range ips {
		out = append(out, &net.TCPAddr{IP: ip.IP, Zone: ip.Zone, Port: int(r.Port)})
	}
	r.Resolved = out
	return nil
}
