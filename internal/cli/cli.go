// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"log"
	"runtime"
	"strconv"
	"strings"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/util"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdBench
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:     "tui",
	CmdChat:    "chat",
	CmdAsk:     "ask",
	CmdBench:   "bench",
	CmdVersion: "version",
	CmdHelp:    "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Model is the model file path (--model)
	Model string
	// ConfigPath overrides config file discovery (--config)
	ConfigPath string
	// MaxTokens is the token limit; 0 when not given
	MaxTokens int
	// Temperature is valid only when HasTemperature is set
	Temperature    float64
	HasTemperature bool
	// Plain disables markdown rendering for ask
	Plain bool
	// JSON prints bench results as JSON
	JSON bool
	// Prompt is the ask prompt, or the custom bench prompt (--prompt)
	Prompt string
	// Models are the model files to compare with bench
	Models []string
	// Tests are the bench test types to run; empty runs all
	Tests []string
}

// Flag names accepted by every command.
var knownFlags = []string{"model", "m", "config", "c", "tokens", "n", "temp", "t", "plain", "json", "tests", "prompt", "help", "h", "version", "V"}

const usageText = `winchi - chat with a local GGUF model

Usage:
  winchi [flags]                    Start the full-screen UI (default)
  winchi tui [flags]                Same as above
  winchi chat --model PATH [flags]  Line-mode chat in the terminal
  winchi ask --model PATH [flags] PROMPT...
                                    Answer one prompt and exit
  winchi bench [flags] [MODEL...]   Measure speed of the configured model,
                                    or compare the given model files
  winchi version                    Show version information
  winchi help                       Show this help

Flags:
  -m, --model PATH     Model file (.gguf or .bin)
  -c, --config PATH    Config file (default ~/.winchi/config.toml)
  -n, --tokens N       Maximum new tokens (%d-%d, default %d)
  -t, --temp T         Sampling temperature (%s-%s, default %s)
      --plain          ask: print raw text instead of rendered markdown
      --json           bench: print results as JSON
      --tests LIST     bench: comma-separated test types to run
                       (latency, speed, explanation, instruction; default all)
      --prompt TEXT    bench: also time a custom prompt

Environment:
  WINCHI_MODEL, WINCHI_BACKEND, WINCHI_LIB, WINCHI_MAX_TOKENS,
  WINCHI_TEMPERATURE, WINCHI_OLLAMA_URL, WINCHI_CONFIG

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText,
		config.MinMaxTokens, config.MaxMaxTokens, config.DefaultMaxTokens,
		util.FormatTemperature(config.MinTemperature),
		util.FormatTemperature(config.MaxTemperature),
		util.FormatTemperature(config.DefaultTemperature),
		Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "winchi version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses the arguments after the program name.
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, "plain", "json", "help", "h", "version", "V")
	var args Args

	if unknown := p.UnknownFlags(knownFlags...); len(unknown) > 0 {
		return CmdHelp, args, usageErrorf("", "unknown flag %s", unknown[0])
	}
	if p.BoolFlag("help", "h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version", "V") {
		return CmdVersion, args, nil
	}

	cmd := CmdTUI
	rest := p.Positionals()
	if first := p.Positional(0); first != "" {
		switch strings.ToLower(first) {
		case "tui":
			cmd = CmdTUI
		case "chat":
			cmd = CmdChat
		case "ask":
			cmd = CmdAsk
		case "bench", "benchmark":
			cmd = CmdBench
		case "version":
			return CmdVersion, args, nil
		case "help":
			return CmdHelp, args, nil
		default:
			return CmdHelp, args, usageErrorf("", "unknown command %q", rest[0])
		}
		rest = rest[1:]
	}

	args.Model = p.Flag("model", "m")
	args.ConfigPath = p.Flag("config", "c")
	args.Plain = p.BoolFlag("plain")
	args.JSON = p.BoolFlag("json")

	if v := p.Flag("tokens", "n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < config.MinMaxTokens || n > config.MaxMaxTokens {
			return cmd, args, usageErrorf(cmd.String(), "--tokens must be an integer between %d and %d, got %q",
				config.MinMaxTokens, config.MaxMaxTokens, v)
		}
		args.MaxTokens = n
	}
	if v := p.Flag("temp", "t"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < config.MinTemperature || t > config.MaxTemperature {
			return cmd, args, usageErrorf(cmd.String(), "--temp must be between %s and %s, got %q",
				util.FormatTemperature(config.MinTemperature), util.FormatTemperature(config.MaxTemperature), v)
		}
		args.Temperature = t
		args.HasTemperature = true
	}

	if cmd != CmdBench {
		for _, name := range []string{"tests", "prompt"} {
			if p.HasFlag(name) {
				return cmd, args, usageErrorf(cmd.String(), "--%s only applies to bench", name)
			}
		}
	}

	switch cmd {
	case CmdAsk:
		args.Prompt = strings.TrimSpace(strings.Join(rest, " "))
		if args.Prompt == "" {
			return cmd, args, usageErrorf("ask", "missing prompt")
		}
	case CmdBench:
		args.Models = rest
		if tests := p.FlagOrDefault("all", "tests"); tests != "all" {
			args.Tests = strings.Split(tests, ",")
		}
		if p.HasFlag("prompt") {
			args.Prompt = strings.TrimSpace(p.Flag("prompt"))
			if args.Prompt == "" {
				return cmd, args, usageErrorf("bench", "--prompt needs a value")
			}
		}
	default:
		if len(rest) > 0 {
			return cmd, args, usageErrorf(cmd.String(), "unexpected argument %q", rest[0])
		}
	}

	return cmd, args, nil
}

// Apply copies command-line overrides into cfg.
func (a Args) Apply(cfg *config.Config) {
	if a.Model != "" {
		cfg.Inference.ModelPath = a.Model
	}
	if a.MaxTokens > 0 {
		cfg.Generation.MaxTokens = a.MaxTokens
	}
	if a.HasTemperature {
		cfg.Generation.Temperature = a.Temperature
	}
}

// LoadConfig loads the config file (--config or the default search) and
// applies args on top.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	args.Apply(cfg)
	return cfg, nil
}

// LogConfig records the effective settings in the log.
func LogConfig(cmd Command, cfg *config.Config) {
	log.Printf("CONFIG_LOADED | command=%s backend=%s model=%s max_tokens=%d temperature=%s",
		cmd, cfg.Inference.Backend, cfg.Inference.ModelPath, cfg.Generation.MaxTokens,
		util.FormatTemperature(cfg.Generation.Temperature))
}
