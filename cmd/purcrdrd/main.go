// Command purcrdrd runs the PURCMC renderer daemon: it binds the
// Unix-domain and WebSocket listeners and drives the dispatch
// goroutine until interrupted.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/purc-tools/purcrdr/constants"
	"github.com/purc-tools/purcrdr/control"
	"github.com/purc-tools/purcrdr/logging"
	"github.com/purc-tools/purcrdr/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		unixPath     string
		wsAddr       string
		logLevel     string
		reapPeriod   time.Duration
		noRespPeriod time.Duration
	)

	cmd := &cobra.Command{
		Use:   "purcrdrd",
		Short: "PURCMC renderer daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(unixPath, wsAddr, logLevel, reapPeriod, noRespPeriod)
		},
	}

	cmd.Flags().StringVar(&unixPath, "unix-socket", constants.DefaultUnixSocketPath, "Unix-domain socket path (empty disables it)")
	cmd.Flags().StringVar(&wsAddr, "ws-addr", "", "WebSocket listen address, e.g. :7702 (empty disables it)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().DurationVar(&reapPeriod, "reap-period", constants.ReapDanglingPeriod, "dangling-endpoint reap interval")
	cmd.Flags().DurationVar(&noRespPeriod, "no-responding-period", constants.CheckNoRespondingPeriod, "unresponsive-endpoint check interval")

	return cmd
}

func run(unixPath, wsAddr, logLevel string, reapPeriod, noRespPeriod time.Duration) error {
	log := logging.NewWithLevel("purcrdrd", logLevel)

	cfg := server.DefaultConfig()
	cfg.UnixSocketPath = unixPath
	cfg.WSAddr = wsAddr
	cfg.Logger = log
	cfg.Housekeeping.SetConfig(control.HousekeepingConfig{
		ReapDanglingPeriod:      reapPeriod,
		CheckNoRespondingPeriod: noRespPeriod,
	})

	srv := server.New(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting listeners: %w", err)
	}

	log.Info("purcrdrd listening", "unix", unixPath, "ws", wsAddr)

	err := srv.Run(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
