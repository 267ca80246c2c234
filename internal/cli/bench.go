// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/Bankaii7723/WinChi/internal/benchmark"
	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
)

// RunBench benchmarks the configured model, or compares the model files in
// args.Models, and writes the results to out.
func RunBench(ctx context.Context, cfg *config.Config, engine inference.Engine, args Args, out io.Writer) error {
	maxTokens := cfg.Generation.MaxTokens
	temperature := cfg.Generation.Temperature
	tests, err := benchmark.SelectTests(args.Tests, args.Prompt)
	if err != nil {
		return usageErrorf("bench", "%v", err)
	}

	if len(args.Models) > 0 {
		paths := make([]string, len(args.Models))
		for i, p := range args.Models {
			paths[i] = modelfile.ExpandPath(p)
		}
		if !args.JSON {
			fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("Benchmarking %d models...", len(paths))))
		}

		cmp, err := benchmark.RunComparison(ctx, engine, paths, tests, maxTokens, temperature)
		if cmp == nil {
			return err
		}
		if args.JSON {
			if jerr := writeJSON(out, cmp); jerr != nil {
				return jerr
			}
			return err
		}
		for _, name := range cmp.Models {
			if r, ok := cmp.Results[name]; ok {
				printResult(out, r)
			}
		}
		fmt.Fprintln(out, welcomeStyle.Render(cmp.ComparisonSummary()))
		return err
	}

	model, err := loadModel(ctx, engine, cfg.Inference.ModelPath, "bench")
	if err != nil {
		return err
	}
	defer func() {
		if err := model.Close(); err != nil {
			log.Printf("MODEL_CLOSE_FAILED | name=%s error=%v", model.Name(), err)
		}
	}()

	if !args.JSON {
		fmt.Fprintln(out, infoStyle.Render("Benchmarking "+model.Name()+"..."))
	}
	result, err := benchmark.NewRunner(model, maxTokens, temperature).WithTests(tests).Run(ctx)
	if args.JSON {
		if jerr := writeJSON(out, result); jerr != nil {
			return jerr
		}
		return err
	}
	printResult(out, result)
	return err
}

func printResult(w io.Writer, r *benchmark.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary())
	fmt.Fprintln(w, r.Details())
	fmt.Fprintln(w)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
