// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/stream"
)

// =============================================================================
// BENCHMARK RUNNER
// =============================================================================

// Runner executes benchmarks on a loaded model.
// Note: Runner is not thread-safe and should not be used concurrently
// from multiple goroutines.
type Runner struct {
	model  inference.Model
	config inference.GenerateConfig
	tests  []Test
}

// NewRunner creates a runner for model with the standard test suite.
// Generation is always streamed so the first fragment can be timed.
func NewRunner(model inference.Model, maxTokens int, temperature float64) *Runner {
	return &Runner{
		model: model,
		config: inference.GenerateConfig{
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Streaming:   true,
		},
		tests: GetStandardTests(),
	}
}

// WithTests replaces the test suite. An empty tests keeps the current one.
func (r *Runner) WithTests(tests []Test) *Runner {
	if len(tests) > 0 {
		r.tests = tests
	}
	return r
}

// Run executes the full benchmark suite on the model. Failed tests are
// recorded in the result; the returned error is non-nil only when the
// context was cancelled.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		ModelName: r.model.Name(),
		StartTime: time.Now(),
		Tests:     make([]TestResult, 0, len(r.tests)),
	}

	var runErr error
	for _, test := range r.tests {
		testResult, err := r.runTest(ctx, test)
		result.Tests = append(result.Tests, testResult)
		if err != nil && ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.computeAggregates()

	log.Printf("BENCHMARK_DONE | model=%s passed=%d failed=%d avg_ttft_ms=%d avg_fps=%.1f",
		result.ModelName, result.PassedTests, result.FailedTests,
		result.AvgTTFT.Milliseconds(), result.AvgFragmentsPerSec)
	return result, runErr
}

// runTest executes a single benchmark test.
func (r *Runner) runTest(ctx context.Context, test Test) (TestResult, error) {
	testResult := TestResult{
		Name:      test.Name,
		Type:      test.Type,
		Status:    TestStatusRunning,
		StartTime: time.Now(),
	}

	fail := func(err error) (TestResult, error) {
		testResult.Status = TestStatusFailed
		testResult.Error = err.Error()
		testResult.EndTime = time.Now()
		testResult.Duration = testResult.EndTime.Sub(testResult.StartTime)
		return testResult, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if strings.TrimSpace(test.Prompt) == "" {
		return fail(errors.New("test prompt is empty"))
	}

	timed := &timedSource{}
	open := func(ctx context.Context) (stream.Source, error) {
		s, err := inference.Run(ctx, r.model, test.Prompt, r.config)
		if err != nil {
			return nil, err
		}
		timed.src = s
		return timed, nil
	}

	bridge := stream.NewBridge()
	start := time.Now()
	res := stream.RunOpened(ctx, open, bridge)
	end := time.Now()

	switch {
	case res.Err != nil:
		return fail(res.Err)
	case res.Stopped:
		err := ctx.Err()
		if err == nil {
			err = errors.New("generation stopped")
		}
		return fail(err)
	}

	response := strings.Join(bridge.DrainAll(), "")

	testResult.EndTime = end
	testResult.Duration = end.Sub(start)
	if !timed.first.IsZero() {
		testResult.TTFT = timed.first.Sub(start)
	}
	testResult.FragmentCount = res.Fragments
	if res.Fragments > 0 && testResult.Duration > 0 {
		testResult.FragmentsPerSec = float64(res.Fragments) / testResult.Duration.Seconds()
	}
	if test.Evaluator != nil {
		testResult.QualityScore = test.Evaluator(response)
	}
	testResult.Response = response
	testResult.Status = TestStatusPassed

	return testResult, nil
}

// timedSource records when the first non-empty fragment arrives.
type timedSource struct {
	src   inference.Stream
	first time.Time
}

func (t *timedSource) Next() (string, error) {
	frag, err := t.src.Next()
	if err == nil && frag != "" && t.first.IsZero() {
		t.first = time.Now()
	}
	return frag, err
}

func (t *timedSource) Close() error {
	return t.src.Close()
}

// =============================================================================
// MODEL COMPARISON
// =============================================================================

// RunComparison loads each model file in turn, benchmarks it and closes it.
// Each model runs tests, or the standard suite when tests is empty.
// Returns a comparison even if individual models fail. Returns an error only
// if all models fail to run or the context is cancelled.
func RunComparison(ctx context.Context, engine inference.Engine, paths []string, tests []Test, maxTokens int, temperature float64) (*Comparison, error) {
	comparison := &Comparison{
		Models:    make([]string, 0, len(paths)),
		Results:   make(map[string]*Result),
		Errors:    make(map[string]string),
		StartTime: time.Now(),
	}

	successCount := 0
	for _, path := range paths {
		name := inference.DisplayName(path)
		comparison.Models = append(comparison.Models, name)

		model, err := engine.Load(ctx, path)
		if err != nil {
			comparison.Errors[name] = err.Error()
			continue
		}

		result, err := NewRunner(model, maxTokens, temperature).WithTests(tests).Run(ctx)
		if cerr := model.Close(); cerr != nil {
			log.Printf("MODEL_CLOSE_FAILED | name=%s error=%v", name, cerr)
		}
		comparison.Results[name] = result
		if err != nil {
			break
		}
		if result.PassedTests > 0 {
			successCount++
		}
	}

	comparison.EndTime = time.Now()
	comparison.Duration = comparison.EndTime.Sub(comparison.StartTime)

	if err := ctx.Err(); err != nil {
		return comparison, err
	}
	if successCount == 0 {
		return comparison, fmt.Errorf("all models failed to run")
	}
	return comparison, nil
}

// =============================================================================
// RESULT COMPUTATION
// =============================================================================

// computeAggregates calculates aggregate metrics from individual tests.
func (r *Result) computeAggregates() {
	var totalTTFT time.Duration
	var totalFPS float64
	var totalQuality float64
	var ttftCount, fpsCount, qualityCount int

	r.PassedTests, r.FailedTests = 0, 0
	for _, test := range r.Tests {
		switch test.Status {
		case TestStatusPassed:
			r.PassedTests++
		case TestStatusFailed:
			r.FailedTests++
			continue
		default:
			continue
		}

		if test.TTFT > 0 {
			totalTTFT += test.TTFT
			ttftCount++
		}
		if test.FragmentsPerSec > 0 {
			totalFPS += test.FragmentsPerSec
			fpsCount++
		}
		if test.QualityScore > 0 {
			totalQuality += test.QualityScore
			qualityCount++
		}
	}

	if ttftCount > 0 {
		r.AvgTTFT = totalTTFT / time.Duration(ttftCount)
	}
	if fpsCount > 0 {
		r.AvgFragmentsPerSec = totalFPS / float64(fpsCount)
	}
	if qualityCount > 0 {
		r.AvgQualityScore = totalQuality / float64(qualityCount)
	}
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// FormatTTFT formats time to first fragment for display.
func FormatTTFT(d time.Duration) string {
	if d == 0 {
		return "N/A"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// FormatFragmentsPerSec formats generation speed for display.
func FormatFragmentsPerSec(fps float64) string {
	if fps == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f tok/s", fps)
}

// FormatQualityScore formats quality score for display.
func FormatQualityScore(score float64) string {
	if score == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", score)
}

// FormatDuration formats duration for display.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "N/A"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
