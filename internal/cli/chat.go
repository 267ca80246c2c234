// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/session"
	"github.com/Bankaii7723/WinChi/internal/stream"
	"github.com/Bankaii7723/WinChi/internal/util"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of input. *liner.State satisfies it.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession runs requests against one loaded model and streams replies
// to out.
type chatSession struct {
	model  inference.Model
	params *session.Params
	bridge *stream.Bridge
	tick   time.Duration
	out    io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newChatSession(model inference.Model, params *session.Params, tick time.Duration, out io.Writer) *chatSession {
	if tick <= 0 {
		tick = config.DefaultTickInterval
	}
	return &chatSession{
		model:  model,
		params: params,
		bridge: stream.NewBridge(),
		tick:   tick,
		out:    out,
	}
}

// send runs one request and prints fragments as they arrive. It returns
// once the background run has finished.
func (s *chatSession) send(ctx context.Context, text string) stream.Result {
	req := s.params.BuildRequest(text)
	s.bridge.ClearStop()
	s.bridge.Reset()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	log.Printf("GENERATION_START | id=%s max_tokens=%d temperature=%s prompt_len=%d",
		req.ShortID(), req.MaxTokens, util.FormatTemperature(req.Temperature), len(req.Prompt))

	open := inference.Opener(s.model, req.Prompt, inference.GenerateConfig{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Streaming:   true,
	})
	done := make(chan stream.Result, 1)
	go func() {
		done <- stream.RunOpened(ctx, open, s.bridge)
	}()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case res := <-done:
			s.flush()
			fmt.Fprintln(s.out)
			s.logResult(req, res)
			return res
		case <-ticker.C:
			s.flush()
		}
	}
}

// stop asks the running request, if any, to end.
func (s *chatSession) stop() {
	s.bridge.RequestStop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// flush writes every queued fragment.
func (s *chatSession) flush() {
	for _, frag := range s.bridge.DrainAll() {
		fmt.Fprint(s.out, frag)
	}
}

func (s *chatSession) logResult(req session.Request, res stream.Result) {
	switch {
	case res.Err != nil:
		log.Printf("GENERATION_ERROR | id=%s fragments=%d error=%v", req.ShortID(), res.Fragments, res.Err)
	case res.Stopped:
		log.Printf("GENERATION_STOPPED | id=%s fragments=%d elapsed_ms=%d", req.ShortID(), res.Fragments, res.Elapsed.Milliseconds())
	default:
		log.Printf("GENERATION_DONE | id=%s fragments=%d elapsed_ms=%d", req.ShortID(), res.Fragments, res.Elapsed.Milliseconds())
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const chatHelp = `Commands:
  /eli5          Prefix the next message with "Explain like I'm 5"
  /thorough      Prefix the next message with "Explain thoroughly"
  /efficient     Prefix the next message with "Explain efficiently"
  /tokens N      Set the token limit
  /temp T        Set the temperature
  /settings      Show the current settings
  /help          Show this help
  /quit          Exit (also /exit, /q, Ctrl+D)

Press Ctrl+C while a reply is streaming to stop it.`

// handleCommand runs a slash command. It returns false when the session
// should end.
func (s *chatSession) handleCommand(line string) (bool, error) {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch name {
	case "/quit", "/exit", "/q":
		return false, nil
	case "/help", "/?":
		fmt.Fprintln(s.out, infoStyle.Render(chatHelp))
	case "/eli5":
		s.setPrefix(session.QuickActions[0])
	case "/thorough":
		s.setPrefix(session.QuickActions[1])
	case "/efficient":
		s.setPrefix(session.QuickActions[2])
	case "/tokens":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return true, fmt.Errorf("usage: /tokens N (%d-%d)", config.MinMaxTokens, config.MaxMaxTokens)
		}
		fmt.Fprintf(s.out, "%s %d\n", infoStyle.Render("Max tokens:"), s.params.SetMaxTokens(n))
	case "/temp", "/temperature":
		t, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return true, fmt.Errorf("usage: /temp T (%s-%s)",
				util.FormatTemperature(config.MinTemperature), util.FormatTemperature(config.MaxTemperature))
		}
		fmt.Fprintf(s.out, "%s %s\n", infoStyle.Render("Temperature:"), util.FormatTemperature(s.params.SetTemperature(t)))
	case "/settings":
		s.printSettings()
	default:
		return true, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return true, nil
}

func (s *chatSession) setPrefix(qa session.QuickAction) {
	s.params.SetPrefix(qa.Prefix)
	fmt.Fprintf(s.out, "%s %s\n", warningStyle.Render("Next message:"), qa.Name)
}

func (s *chatSession) printSettings() {
	fmt.Fprintf(s.out, "%s %s\n", infoStyle.Render("Model:      "), s.model.Name())
	fmt.Fprintf(s.out, "%s %d\n", infoStyle.Render("Max tokens: "), s.params.MaxTokens())
	fmt.Fprintf(s.out, "%s %s\n", infoStyle.Render("Temperature:"), util.FormatTemperature(s.params.Temperature()))
	if p := s.params.Prefix(); p != "" {
		fmt.Fprintf(s.out, "%s %s\n", infoStyle.Render("Next prefix:"), session.PrefixLabel(p))
	}
}

// =============================================================================
// REPL
// =============================================================================

// loop reads lines from in until EOF, an abort or a quit command.
func (s *chatSession) loop(ctx context.Context, in lineReader) error {
	for {
		line, err := in.Prompt("winchi> ")
		if err != nil {
			fmt.Fprintln(s.out)
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in.AppendHistory(line)

		if strings.HasPrefix(line, "/") {
			more, err := s.handleCommand(line)
			if err != nil {
				fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !more {
				return nil
			}
			continue
		}

		res := s.send(ctx, line)
		switch {
		case res.Err != nil:
			fmt.Fprintf(s.out, "%s Error generating text: %v\n", errorStyle.Render("[Error]"), res.Err)
		case res.Stopped:
			fmt.Fprintln(s.out, warningStyle.Render("[Stopped]"))
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// RunChat loads the configured model and runs an interactive line-mode chat
// on the terminal. Ctrl+C stops a streaming reply; at the prompt it exits.
func RunChat(ctx context.Context, cfg *config.Config, engine inference.Engine) error {
	model, err := loadModel(ctx, engine, cfg.Inference.ModelPath, "chat")
	if err != nil {
		return err
	}
	defer func() {
		if err := model.Close(); err != nil {
			log.Printf("MODEL_CLOSE_FAILED | name=%s error=%v", model.Name(), err)
		}
	}()

	s := newChatSession(model, session.FromConfig(cfg), cfg.TickInterval(), os.Stdout)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigs)
		close(sigs)
	}()
	go func() {
		for range sigs {
			s.stop()
		}
	}()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println(welcomeStyle.Render("WinChi chat") + " " + infoStyle.Render("model "+model.Name()))
	fmt.Println(infoStyle.Render("Type a message, or ") + commandStyle.Render("/help") + infoStyle.Render(" for commands."))

	return s.loop(ctx, line)
}
