// WinChi - a terminal chat client for local GGUF models.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bankaii7723/WinChi/internal/cli"
	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/ui/chat"
	"github.com/Bankaii7723/WinChi/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		cli.DisplayError(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func run(argv []string) error {
	cmd, args, err := cli.Parse(argv)
	if err != nil {
		return err
	}

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return nil
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	}

	// Nothing is logged to the terminal until the log file is open.
	log.SetOutput(io.Discard)

	cfg, err := cli.LoadConfig(args)
	if err != nil {
		return err
	}

	logFile, err := openLog(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	} else {
		defer logFile.Close()
	}
	cli.LogConfig(cmd, cfg)

	engine, err := inference.New(cfg)
	if err != nil {
		return err
	}

	switch cmd {
	case cli.CmdChat:
		return cli.RunChat(context.Background(), cfg, engine)
	case cli.CmdAsk, cli.CmdBench:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if cmd == cli.CmdBench {
			return cli.RunBench(ctx, cfg, engine, args, os.Stdout)
		}
		return cli.RunAsk(ctx, cfg, engine, args, os.Stdout)
	default:
		return runTUI(cfg, engine)
	}
}

// openLog directs the standard logger to the configured log file.
func openLog(cfg *config.Config) (*os.File, error) {
	path, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	return tea.LogToFile(path, "winchi")
}

// runTUI runs the full-screen UI until the user quits.
func runTUI(cfg *config.Config, engine inference.Engine) error {
	m := chat.New(chat.Options{
		Engine:    engine,
		Config:    cfg,
		Theme:     styles.NewTheme(),
		ModelPath: cfg.Inference.ModelPath,
	})

	opts := []tea.ProgramOption{}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)

	final, err := p.Run()
	if fm, ok := final.(chat.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	if err != nil {
		return fmt.Errorf("error running winchi: %w", err)
	}
	return nil
}
