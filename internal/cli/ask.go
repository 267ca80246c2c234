// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/session"
	"github.com/Bankaii7723/WinChi/internal/util"
)

// RunAsk answers a single prompt with a non-streaming generation and writes
// the reply to out.
func RunAsk(ctx context.Context, cfg *config.Config, engine inference.Engine, args Args, out io.Writer) error {
	model, err := loadModel(ctx, engine, cfg.Inference.ModelPath, "ask")
	if err != nil {
		return err
	}
	defer func() {
		if err := model.Close(); err != nil {
			log.Printf("MODEL_CLOSE_FAILED | name=%s error=%v", model.Name(), err)
		}
	}()

	req := session.FromConfig(cfg).BuildRequest(args.Prompt)
	log.Printf("GENERATION_START | id=%s mode=ask max_tokens=%d temperature=%s prompt_len=%d",
		req.ShortID(), req.MaxTokens, util.FormatTemperature(req.Temperature), len(req.Prompt))

	s, err := inference.Run(ctx, model, req.Prompt, inference.GenerateConfig{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		log.Printf("GENERATION_ERROR | id=%s error=%v", req.ShortID(), err)
		return err
	}
	text, err := inference.Collect(s)
	if err != nil {
		log.Printf("GENERATION_ERROR | id=%s error=%v", req.ShortID(), err)
		return err
	}
	log.Printf("GENERATION_DONE | id=%s mode=ask chars=%d", req.ShortID(), len(text))

	markdown := !args.Plain && cfg.UI.RenderMarkdown && IsStdoutTTY()
	fmt.Fprintln(out, renderAnswer(text, markdown, GetTerminalWidth()))
	return nil
}

// renderAnswer formats a reply for the terminal. Rendering failures fall
// back to the raw text.
func renderAnswer(text string, markdown bool, width int) string {
	if !markdown {
		return text
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
