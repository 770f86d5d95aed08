// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shayne/yargs"
	"github.com/yeetrun/zipview/pkg/config"
	"github.com/yeetrun/zipview/pkg/zipview"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"tailscale.com/tsnet"
	"tailscale.com/util/must"
)

const shutdownTimeout = 30 * time.Second

type serveFlagsParsed struct {
	Config        string        `flag:"config" short:"c" help:"Configuration file (default ~/.zipview.toml)"`
	Listen        string        `flag:"listen" short:"l" help:"Address to listen on, overrides the configuration"`
	TSNetHost     string        `flag:"tsnet-host" help:"Listen on the tailnet with this hostname"`
	TSNetDir      string        `flag:"tsnet-dir" help:"State directory for tsnet (default ./zipview-tsnet)"`
	FlushInterval time.Duration `flag:"flush-interval" help:"Close idle archive handles this often, overrides the configuration"`
	Verbose       bool          `flag:"verbose" short:"v" help:"Enable debug logging"`
}

func main() {
	helpConfig := buildHelpConfig()
	args := commandArgs(yargs.ApplyAliases(os.Args[1:], helpConfig))

	handlers := map[string]yargs.SubcommandHandler{
		"serve":         handleServe,
		"check":         handleCheck,
		"sample-config": handleSampleConfig,
		"version":       handleVersion,
	}
	if err := yargs.RunSubcommands(context.Background(), args, helpConfig, struct{}{}, handlers); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandArgs makes serve the default subcommand, so that a bare
// invocation or one starting with a flag starts the server.
func commandArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"serve"}
	}
	switch args[0] {
	case "help", "-h", "--help", "--help-llm":
		return args
	}
	if strings.HasPrefix(args[0], "-") {
		return append([]string{"serve"}, args...)
	}
	return args
}

// stripCommand removes the subcommand name passed along to a handler.
func stripCommand(args []string, name string) []string {
	if len(args) > 0 && args[0] == name {
		return args[1:]
	}
	return args
}

func configPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return config.DefaultPath()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func handleServe(ctx context.Context, args []string) error {
	result, err := yargs.ParseFlags[serveFlagsParsed](stripCommand(args, "serve"))
	if err != nil {
		return err
	}
	flags := result.Flags
	if len(result.Args) > 0 {
		return fmt.Errorf("unexpected argument %q", result.Args[0])
	}

	logger, err := newLogger(flags.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	path, err := configPath(flags.Config)
	if err != nil {
		return err
	}
	s, err := zipview.NewServer(&zipview.Config{
		ConfigPath:    path,
		FlushInterval: flags.FlushInterval,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer s.Shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cmp.Or(flags.Listen, s.ListenAddr())
	var ln net.Listener
	if ts := initTSNet(flags, logger); ts != nil {
		defer ts.Close()
		if _, err := ts.Up(ctx); err != nil {
			return fmt.Errorf("failed to start tsnet: %w", err)
		}
		ln, err = ts.Listen("tcp", addr)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	logger.Info("serving", zap.String("addr", ln.Addr().String()), zap.String("config", path),
		zap.String("version", zipview.Version()))

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-hup:
				if err := s.Reload(); err != nil {
					logger.Error("reload failed", zap.Error(err))
				}
			case <-ctx.Done():
				logger.Info("shutting down")
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			}
		}
	})
	return g.Wait()
}

// initTSNet returns a tsnet.Server if a tailnet hostname was requested.
func initTSNet(flags serveFlagsParsed, logger *zap.Logger) *tsnet.Server {
	if flags.TSNetHost == "" {
		return nil
	}
	dir := flags.TSNetDir
	if dir == "" {
		dir = must.Get(filepath.Abs("zipview-tsnet"))
	}
	sugar := logger.Named("tsnet").Sugar()
	return &tsnet.Server{
		Dir:      dir,
		Hostname: flags.TSNetHost,
		Logf:     sugar.Debugf,
		UserLogf: sugar.Infof,
	}
}

func handleVersion(context.Context, []string) error {
	fmt.Println(zipview.Version())
	return nil
}
