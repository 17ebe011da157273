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

// Command xcpd is the parallel-channel copy server: it listens on a portal
// address plus zero or more dedicated channel addresses and serves
// transfers requested by xcp clients.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wenbinhou/xcp/internal/config"
	"github.com/wenbinhou/xcp/internal/endpoint"
	"github.com/wenbinhou/xcp/internal/metrics"
	"github.com/wenbinhou/xcp/internal/portal"
	"github.com/wenbinhou/xcp/internal/version"
	"github.com/wenbinhou/xcp/internal/xlog"
	"github.com/wenbinhou/xcp/internal/xsocket"
)

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()
	var metricsAddr string

	cmd := &cobra.Command{
		Use:          "xcpd",
		Short:        "Serve parallel-channel file and directory transfers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), v, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (disabled when empty)")

	if err := config.RegisterServerFlags(cmd, v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runServer(ctx context.Context, v *viper.Viper, metricsAddr string) error {
	cfg, err := config.LoadServerConfig(v)
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Println("xcpd", version.Read())
		return nil
	}

	log := xlog.New(xlog.FromVerbosity(cfg.Verbosity), true)

	if err := cfg.Portal.Resolve(); err != nil {
		return err
	}
	portalLn, err := xsocket.Listen(firstAddr(cfg.Portal), xsocket.DefaultListenOptions())
	if err != nil {
		return fmt.Errorf("xcpd: listening on portal %s: %w", cfg.Portal.Host, err)
	}

	var channels []portal.ChannelListener
	for _, req := range cfg.Channels {
		if err := req.Resolve(); err != nil {
			return err
		}
		ln, err := xsocket.Listen(firstAddr(req), xsocket.DefaultListenOptions())
		if err != nil {
			return fmt.Errorf("xcpd: listening on channel %s: %w", req.Host, err)
		}
		channels = append(channels, portal.ChannelListener{Listener: ln, Multiplicity: uint64(req.Multiplicity)})
	}

	// The portal socket also accepts channel connections only when -p
	// carried an explicit @n, including @1; a bare -p host never reuses
	// the portal socket (spec.md §9).
	portalChannelMultiplicity := uint64(0)
	if cfg.Portal.MultiplicityExplicit {
		portalChannelMultiplicity = uint64(cfg.Portal.Multiplicity)
	}

	server := portal.NewServer(portalLn, portalChannelMultiplicity, channels, log)

	if metricsAddr != "" {
		mtr := metrics.New()
		server = server.WithMetrics(mtr)
		go func() {
			if err := mtr.Serve(ctx, metricsAddr); err != nil {
				log.Warning("xcpd: metrics server stopped", map[string]any{"error": err.Error()})
			}
		}()
	}

	log.Info("xcpd: listening", map[string]any{"portal": portalLn.Addr().String(), "channels": len(channels)})

	done := make(chan struct{})
	go func() {
		server.Run()
		close(done)
	}()

	select {
	case <-ctx.Done():
		log.Info("xcpd: shutting down", nil)
		server.Close()
		<-done
	case <-done:
	}
	return nil
}

// firstAddr picks the first resolved address for a requested endpoint;
// Resolve has already been called and guarantees at least one entry.
func firstAddr(r endpoint.Requested) *net.TCPAddr {
	return r.Resolved[0]
}
