// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main provides winchi-setup, a guided first-run setup for WinChi.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Bankaii7723/WinChi/internal/cli"
	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
)

const version = "1.0.0"

var errChecksFailed = errors.New("one or more checks failed")

func main() {
	p := cli.NewArgParser(os.Args[1:], "check", "force", "help", "h", "version", "v")

	if p.BoolFlag("help", "h") {
		printHelp(os.Stdout)
		return
	}
	if p.BoolFlag("version", "v") {
		fmt.Printf("winchi-setup v%s\n", version)
		return
	}
	if unknown := p.UnknownFlags("check", "force", "model", "m", "backend", "config", "c", "help", "h", "version", "v"); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "unknown flag %s\n\n", unknown[0])
		printHelp(os.Stderr)
		os.Exit(cli.ExitUsageError)
	}

	s := &setup{
		out:         os.Stdout,
		in:          bufio.NewReader(os.Stdin),
		interactive: cli.IsTTY(),
		checkOnly:   p.BoolFlag("check"),
		force:       p.BoolFlag("force"),
		model:       p.Flag("model", "m"),
		backend:     p.Flag("backend"),
		configPath:  p.Flag("config", "c"),
	}
	if err := s.run(context.Background()); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.ExitGeneralError)
	}
}

// printHelp shows usage information
func printHelp(w io.Writer) {
	fmt.Fprintln(w, `winchi-setup v`+version+`

Usage: winchi-setup [OPTIONS]

Options:
  --model, -m PATH   Model file to configure (.gguf or .bin)
  --backend NAME     Inference backend: llama or ollama
  --config, -c PATH  Config file to write (default ~/.winchi/config.toml)
  --check            Only run the system checks
  --force            Overwrite an existing config file
  --help, -h         Show this help
  --version, -v      Show version`)
}

// =============================================================================
// SETUP FLOW
// =============================================================================

// setup checks the system and writes a starter config file.
type setup struct {
	out         io.Writer
	in          *bufio.Reader
	interactive bool

	checkOnly  bool
	force      bool
	model      string
	backend    string
	configPath string
}

func (s *setup) run(ctx context.Context) error {
	path := s.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	cfg, exists, err := loadExisting(path)
	if err != nil {
		return err
	}

	s.banner()

	if s.backend != "" {
		cfg.Inference.Backend = strings.ToLower(s.backend)
	}
	if s.model != "" {
		cfg.Inference.ModelPath = modelfile.ExpandPath(s.model)
	} else if cfg.Inference.ModelPath == "" && s.interactive && !s.checkOnly {
		cfg.Inference.ModelPath = s.askModelPath()
	}

	s.section("SYSTEM CHECK")
	results := runChecks(ctx, cfg)
	s.printResults(results)

	if s.checkOnly {
		if failed(results) {
			return errChecksFailed
		}
		return nil
	}

	s.section("CONFIGURATION")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if exists && !s.force {
		fmt.Fprintf(s.out, "  Config file already exists: %s\n", path)
		fmt.Fprintln(s.out, "  -> Run with --force to overwrite it")
	} else {
		if err := config.SaveTOML(cfg, path); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "  [OK] Wrote %s\n", path)
	}

	s.section("NEXT STEPS")
	if cfg.Inference.ModelPath != "" {
		fmt.Fprintln(s.out, "  Start chatting:   winchi")
		fmt.Fprintln(s.out, "  Line mode:        winchi chat")
	} else {
		fmt.Fprintln(s.out, "  Start WinChi and load a model from the Settings page (Tab):")
		fmt.Fprintln(s.out, "    winchi")
	}
	fmt.Fprintln(s.out)

	if failed(results) {
		return errChecksFailed
	}
	return nil
}

// loadExisting reads the config at path, or returns the defaults when no
// file exists yet.
func loadExisting(path string) (*config.Config, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return config.Default(), false, nil
		}
		return nil, false, err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

// askModelPath prompts for a model file until a valid one or nothing is
// entered.
func (s *setup) askModelPath() string {
	for {
		fmt.Fprint(s.out, "Model file (.gguf), or Enter to skip: ")
		line, err := s.in.ReadString('\n')
		path := modelfile.ExpandPath(line)
		if path == "" {
			return ""
		}
		res := checkModel(path)
		if res.Status == StatusPass {
			return path
		}
		fmt.Fprintf(s.out, "  %s %s\n", res.Status.Label(), res.Message)
		if err != nil {
			return ""
		}
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

const rule = "--------------------------------------------------------------------------------"

func (s *setup) banner() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, strings.ReplaceAll(rule, "-", "="))
	fmt.Fprintln(s.out, center("WINCHI SETUP"))
	fmt.Fprintln(s.out, center("Chat with local GGUF models in your terminal"))
	fmt.Fprintln(s.out, strings.ReplaceAll(rule, "-", "="))
	fmt.Fprintln(s.out)
}

func (s *setup) section(title string) {
	fmt.Fprintln(s.out, rule)
	fmt.Fprintln(s.out, center(title))
	fmt.Fprintln(s.out, rule)
	fmt.Fprintln(s.out)
}

func (s *setup) printResults(results []CheckResult) {
	for _, r := range results {
		fmt.Fprintf(s.out, "  %s %s: %s\n", r.Status.Label(), r.Name, r.Message)
		if r.Fix != "" && r.Status != StatusPass {
			fmt.Fprintf(s.out, "       -> %s\n", r.Fix)
		}
	}
	fmt.Fprintln(s.out)
}

func center(text string) string {
	pad := (len(rule) - len(text)) / 2
	if pad <= 0 {
		return text
	}
	return strings.Repeat(" ", pad) + text
}
