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

// Package config registers the xcp/xcpd flag surface on a cobra.Command,
// binds it through viper, and turns the bound values into the option
// structs the core consumes. It owns no transfer semantics of its own.
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wenbinhou/xcp/internal/endpoint"
)

// ServerConfig is the option struct xcpd's entry point consumes: a portal
// listen endpoint, zero or more dedicated channel listen endpoints, and the
// verbosity/version flags every core component reads.
type ServerConfig struct {
	Portal      endpoint.Requested
	Channels    []endpoint.Requested
	Verbosity   int
	ShowVersion bool
}

// RegisterServerFlags adds xcpd's flags to cmd and binds each one through
// v, a *viper.Viper, rather than reading pflag values directly.
func RegisterServerFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.Flags().StringP("portal", "p", fmt.Sprintf("[::]:%d", endpoint.DefaultPort), "listen endpoint, host[:port][@n]; @n also accepts n channels on the portal socket")
	cmd.Flags().StringArrayP("channel", "C", nil, "channel listen endpoint, host[:port][@n] (repeatable)")
	cmd.Flags().CountP("verbose", "v", "increase verbosity (repeatable)")
	cmd.Flags().CountP("quiet", "q", "decrease verbosity (repeatable)")
	cmd.Flags().BoolP("version", "V", false, "print version and exit")

	for _, name := range []string{"portal", "channel", "verbose", "quiet", "version"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("config: binding --%s: %w", name, err)
		}
	}
	return nil
}

// LoadServerConfig reads the bound flag values out of v and parses every
// endpoint string, returning a ready-to-use ServerConfig.
func LoadServerConfig(v *viper.Viper) (*ServerConfig, error) {
	cfg := &ServerConfig{
		Verbosity:   v.GetInt("verbose") - v.GetInt("quiet"),
		ShowVersion: v.GetBool("version"),
	}

	portal, err := endpoint.Parse(v.GetString("portal"), endpoint.DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("config: --portal: %w", err)
	}
	cfg.Portal = portal

	for _, raw := range v.GetStringSlice("channel") {
		ch, err := endpoint.Parse(raw, endpoint.DefaultPort)
		if err != nil {
			return nil, fmt.Errorf("config: --channel %q: %w", raw, err)
		}
		cfg.Channels = append(cfg.Channels, ch)
	}

	return cfg, nil
}
