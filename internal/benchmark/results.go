// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Result contains the complete benchmark results for a model.
type Result struct {
	ModelName          string        `json:"model_name"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Duration           time.Duration `json:"duration"`
	Tests              []TestResult  `json:"tests"`
	AvgTTFT            time.Duration `json:"avg_ttft"`
	AvgFragmentsPerSec float64       `json:"avg_fragments_per_sec"`
	AvgQualityScore    float64       `json:"avg_quality_score"`
	PassedTests        int           `json:"passed_tests"`
	FailedTests        int           `json:"failed_tests"`
}

// TestResult contains the result of a single test.
type TestResult struct {
	Name            string        `json:"name"`
	Type            TestType      `json:"type"`
	Status          TestStatus    `json:"status"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Duration        time.Duration `json:"duration"`
	TTFT            time.Duration `json:"ttft"`              // Time to first fragment
	FragmentsPerSec float64       `json:"fragments_per_sec"` // Generation speed
	FragmentCount   int           `json:"fragment_count"`
	QualityScore    float64       `json:"quality_score"` // 0-100
	Response        string        `json:"response"`
	Error           string        `json:"error,omitempty"`
}

// TestStatus indicates the outcome of a test.
type TestStatus string

const (
	TestStatusPending TestStatus = "pending"
	TestStatusRunning TestStatus = "running"
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
)

// Comparison holds results from benchmarking several model files.
type Comparison struct {
	Models    []string           `json:"models"`
	Results   map[string]*Result `json:"results"`
	Errors    map[string]string  `json:"errors,omitempty"`
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time"`
	Duration  time.Duration      `json:"duration"`
}

// =============================================================================
// RESULT ANALYSIS
// =============================================================================

// sortedNames returns the result keys in a stable order.
func (c *Comparison) sortedNames() []string {
	names := make([]string, 0, len(c.Results))
	for name := range c.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetBestModel returns the model with the best overall performance.
func (c *Comparison) GetBestModel() (string, *Result) {
	var bestModel string
	var bestResult *Result
	var bestScore float64

	for _, model := range c.sortedNames() {
		result := c.Results[model]

		// Speed: 40%, Quality: 40%, Latency: 20%
		score := 0.0
		if result.AvgFragmentsPerSec > 0 {
			score += result.AvgFragmentsPerSec * 0.4
		}
		if result.AvgQualityScore > 0 {
			score += result.AvgQualityScore * 0.4
		}
		if ms := result.AvgTTFT.Milliseconds(); ms > 0 {
			score += 1000.0 / float64(ms) * 0.2
		}

		if score > bestScore {
			bestScore = score
			bestModel = model
			bestResult = result
		}
	}

	return bestModel, bestResult
}

// GetFastestModel returns the model with the highest generation speed.
func (c *Comparison) GetFastestModel() (string, *Result) {
	var fastest string
	var fastestResult *Result
	var highestSpeed float64

	for _, model := range c.sortedNames() {
		result := c.Results[model]
		if result.AvgFragmentsPerSec > highestSpeed {
			highestSpeed = result.AvgFragmentsPerSec
			fastest = model
			fastestResult = result
		}
	}

	return fastest, fastestResult
}

// GetLowestLatencyModel returns the model with the lowest time to first
// fragment.
func (c *Comparison) GetLowestLatencyModel() (string, *Result) {
	var lowest string
	var lowestResult *Result
	lowestTTFT := 24 * time.Hour

	for _, model := range c.sortedNames() {
		result := c.Results[model]
		if result.AvgTTFT > 0 && result.AvgTTFT < lowestTTFT {
			lowestTTFT = result.AvgTTFT
			lowest = model
			lowestResult = result
		}
	}

	return lowest, lowestResult
}

// =============================================================================
// SUMMARY GENERATION
// =============================================================================

// Summary returns a text summary of the benchmark result.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"Model: %s\n"+
			"Duration: %s\n"+
			"Tests: %d passed, %d failed\n"+
			"Avg TTFT: %s\n"+
			"Avg Speed: %s\n"+
			"Avg Quality: %s",
		r.ModelName,
		FormatDuration(r.Duration),
		r.PassedTests,
		r.FailedTests,
		FormatTTFT(r.AvgTTFT),
		FormatFragmentsPerSec(r.AvgFragmentsPerSec),
		FormatQualityScore(r.AvgQualityScore),
	)
}

// Details returns one line per test.
func (r *Result) Details() string {
	var sb strings.Builder
	for _, t := range r.Tests {
		if t.Status != TestStatusPassed {
			fmt.Fprintf(&sb, "  %-28s FAILED  %s\n", t.Name, t.Error)
			continue
		}
		fmt.Fprintf(&sb, "  %-28s %8s  %12s  %6s\n", t.Name,
			FormatTTFT(t.TTFT), FormatFragmentsPerSec(t.FragmentsPerSec), FormatQualityScore(t.QualityScore))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ComparisonSummary returns a text summary of the model comparison.
func (c *Comparison) ComparisonSummary() string {
	best, bestResult := c.GetBestModel()
	fastest, fastestResult := c.GetFastestModel()
	lowestLatency, lowestLatencyResult := c.GetLowestLatencyModel()

	var sb strings.Builder
	sb.WriteString("Benchmark Comparison Summary\n")
	fmt.Fprintf(&sb, "Models tested: %d\n", len(c.Models))
	fmt.Fprintf(&sb, "Total duration: %s\n\n", FormatDuration(c.Duration))

	if bestResult != nil {
		fmt.Fprintf(&sb, "Best Overall: %s (Speed: %s, Quality: %s)\n",
			best,
			FormatFragmentsPerSec(bestResult.AvgFragmentsPerSec),
			FormatQualityScore(bestResult.AvgQualityScore))
	}
	if fastestResult != nil {
		fmt.Fprintf(&sb, "Fastest: %s (%s)\n", fastest, FormatFragmentsPerSec(fastestResult.AvgFragmentsPerSec))
	}
	if lowestLatencyResult != nil {
		fmt.Fprintf(&sb, "Lowest Latency: %s (%s)\n", lowestLatency, FormatTTFT(lowestLatencyResult.AvgTTFT))
	}

	failed := make([]string, 0, len(c.Errors))
	for name := range c.Errors {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		fmt.Fprintf(&sb, "Failed to load %s: %s\n", name, c.Errors[name])
	}

	return strings.TrimRight(sb.String(), "\n")
}
