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

// Command xcp is the parallel-channel copy client: it initiates a transfer
// against a running xcpd server, striping data across as many channel
// connections as the server advertises.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/wenbinhou/xcp/internal/config"
	"github.com/wenbinhou/xcp/internal/endpoint"
	"github.com/wenbinhou/xcp/internal/portal"
	"github.com/wenbinhou/xcp/internal/transfer"
	"github.com/wenbinhou/xcp/internal/version"
	"github.com/wenbinhou/xcp/internal/xlog"
)

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "xcp <from> <to>",
		Short:        "Copy a file or directory over parallel channels",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), v, args[0], args[1])
		},
	}

	if err := config.RegisterClientFlags(cmd, v); err != nil {
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

func runClient(ctx context.Context, v *viper.Viper, from, to string) error {
	cfg, host, err := config.LoadClientConfig(v, from, to)
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Println("xcp", version.Read())
		return nil
	}

	log := xlog.New(xlog.FromVerbosity(cfg.Verbosity), true)

	req, err := endpoint.Parse(fmt.Sprintf("%s:%d", host, cfg.Port), cfg.Port)
	if err != nil {
		return fmt.Errorf("xcp: %w", err)
	}
	if err := req.Resolve(); err != nil {
		return fmt.Errorf("xcp: %w", err)
	}
	candidates := req.Resolved

	bars := mpb.New(mpb.WithWidth(64), mpb.WithRefreshRate(200*time.Millisecond))
	var bar *mpb.Bar
	progress := func(p transfer.Progress) {
		if bar == nil {
			bar = bars.New(int64(p.TotalBytes),
				mpb.BarStyle(),
				mpb.PrependDecorators(decor.Name(cfg.LocalPath)),
				mpb.AppendDecorators(decor.CountersKiloByte("% .1f / % .1f"), decor.Percentage()),
			)
		}
		bar.SetCurrent(int64(p.TransferredSize))
	}

	request := portal.Request{
		IsFromServerToClient: cfg.IsFromServerToClient,
		ServerPath:           cfg.ServerPath,
		LocalPath:            cfg.LocalPath,
		Recursive:            cfg.Recursive,
		BlockSize:            cfg.BlockSize,
		UserName:             cfg.UserName,
	}

	client, err := portal.Run(ctx, candidates, request, progress, log)
	if client != nil {
		defer client.Close()
	}
	if err != nil {
		bars.Wait()
		return fmt.Errorf("xcp: transfer failed: %w", err)
	}
	if bar != nil {
		bar.SetCurrent(int64(client.TotalSize()))
	}
	bars.Wait()

	if client.Result() != portal.ResultSucceeded {
		return fmt.Errorf("xcp: transfer did not succeed")
	}
	return nil
}
