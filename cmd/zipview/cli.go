// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shayne/yargs"
	"github.com/yeetrun/zipview/pkg/archive"
	"github.com/yeetrun/zipview/pkg/cmdutil"
	"github.com/yeetrun/zipview/pkg/config"
	"github.com/yeetrun/zipview/pkg/fileutil"
	"github.com/yeetrun/zipview/pkg/ftdetect"
	"golang.org/x/term"
)

func buildHelpConfig() yargs.HelpConfig {
	return yargs.HelpConfig{
		Command: yargs.CommandInfo{
			Name:        "zipview",
			Description: "Browse the contents of zip archives over HTTP",
			Examples: []string{
				"zipview",
				"zipview serve --config ~/.zipview.toml --listen :8080",
				"zipview check",
			},
		},
		SubCommands: map[string]yargs.SubCommandInfo{
			"serve": {
				Name:        "serve",
				Description: "Serve the configured archives (default)",
				Usage:       "[--config=PATH] [--listen=ADDR] [--tsnet-host=NAME]",
				Examples: []string{
					"zipview serve --listen 127.0.0.1:8080",
					"zipview serve --tsnet-host docs",
				},
			},
			"check": {
				Name:        "check",
				Description: "Open every configured archive once and report the result",
				Usage:       "[--config=PATH]",
			},
			"sample-config": {
				Name:        "sample-config",
				Description: "Write a sample configuration file",
				Usage:       "[PATH]",
				Examples:    []string{"zipview sample-config ~/.zipview.toml"},
			},
			"version": {
				Name:        "version",
				Description: "Print the version",
			},
		},
	}
}

type checkFlagsParsed struct {
	Config string `flag:"config" short:"c" help:"Configuration file (default ~/.zipview.toml)"`
}

var errCheckFailed = errors.New("some archives could not be opened")

func handleCheck(ctx context.Context, args []string) error {
	result, err := yargs.ParseFlags[checkFlagsParsed](stripCommand(args, "check"))
	if err != nil {
		return err
	}
	path, err := configPath(result.Flags.Config)
	if err != nil {
		return err
	}
	conf, err := config.Load(path)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
	return checkArchives(ctx, os.Stdout, conf)
}

// checkArchives opens each archive of conf, the resource zip included, and
// writes one line per archive to w.
func checkArchives(ctx context.Context, w io.Writer, conf *config.Config) error {
	repo := archive.NewRepository(conf, nil)
	defer repo.Close()

	archives := repo.Archives()
	if res, ok := repo.Get(config.ResourceVDir); ok {
		archives = append(archives, res)
	}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	var failed int
	for _, a := range archives {
		var entries int
		err := a.With(ctx, func(h *archive.Handle) error {
			entries = len(h.Entries())
			return nil
		})
		if err != nil {
			failed++
			if ft, derr := ftdetect.DetectFile(a.File); derr == nil && ft != ftdetect.Zip {
				err = fmt.Errorf("not a zip file (looks like %v)", ft)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", a.Name, a.File, red("Invalid"), err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d entries\n", a.Name, a.File, green("OK"), entries)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errCheckFailed, failed, len(archives))
	}
	return nil
}

type sampleConfigFlagsParsed struct {
	Force bool `flag:"force" short:"f" help:"Overwrite an existing file"`
}

func handleSampleConfig(_ context.Context, args []string) error {
	result, err := yargs.ParseFlags[sampleConfigFlagsParsed](stripCommand(args, "sample-config"))
	if err != nil {
		return err
	}
	pos := append([]string{}, result.Args...)
	pos = append(pos, result.RemainingArgs...)
	if len(pos) == 0 {
		return config.WriteSample(os.Stdout)
	}
	var confirm func(string) (bool, error)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		confirm = func(msg string) (bool, error) {
			return cmdutil.Confirm(os.Stdin, os.Stderr, msg)
		}
	}
	return writeSampleConfig(pos[0], result.Flags.Force, confirm)
}

// writeSampleConfig writes the sample configuration to path. An existing
// file is replaced only with force or when confirm, if set, agrees.
func writeSampleConfig(path string, force bool, confirm func(string) (bool, error)) error {
	exists, err := fileutil.Exists(path)
	if err != nil {
		return err
	}
	if exists && !force {
		if confirm == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		ok, err := confirm(fmt.Sprintf("%s already exists. Overwrite?", path))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s not overwritten", path)
		}
	}
	if err := fileutil.WriteFile(path, 0o644, config.WriteSample); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}
