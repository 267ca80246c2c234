// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"fmt"
	"strings"

	"github.com/Bankaii7723/WinChi/internal/session"
)

// =============================================================================
// TEST DEFINITIONS
// =============================================================================

// Test represents a single benchmark test.
type Test struct {
	Name        string
	Type        TestType
	Prompt      string
	Evaluator   QualityEvaluator
	Description string
}

// TestType categorizes the type of test.
type TestType string

const (
	TestTypeSpeed       TestType = "speed"
	TestTypeLatency     TestType = "latency"
	TestTypeInstruction TestType = "instruction"
	TestTypeExplanation TestType = "explanation"
)

// QualityEvaluator is a function that scores the quality of a response (0-100).
type QualityEvaluator func(response string) float64

// =============================================================================
// STANDARD TEST SUITE
// =============================================================================

// GetStandardTests returns the standard benchmark test suite.
func GetStandardTests() []Test {
	return []Test{
		// Latency test - measures time to first fragment with a short prompt
		{
			Name:        "Latency Test",
			Type:        TestTypeLatency,
			Prompt:      "Say 'Hello'",
			Description: "Measures time to first fragment with minimal prompt",
			Evaluator: func(response string) float64 {
				if strings.Contains(strings.ToLower(response), "hello") {
					return 100.0
				}
				return 50.0
			},
		},

		// Speed test - measures fragments/sec with a longer generation
		{
			Name:        "Speed Test",
			Type:        TestTypeSpeed,
			Prompt:      "Write a haiku about rain.",
			Description: "Measures generation speed with a creative task",
			Evaluator: func(response string) float64 {
				lines := strings.Split(strings.TrimSpace(response), "\n")
				if len(lines) >= 3 {
					return 100.0
				}
				if len(response) > 10 {
					return 70.0
				}
				return 30.0
			},
		},

		// Explanation test - uses the "explain like I'm 5" quick action
		{
			Name:        "Explanation Test",
			Type:        TestTypeExplanation,
			Prompt:      session.QuickActions[0].Prefix + "Why is the sky blue?",
			Description: "Measures coherence of a simple explanation",
			Evaluator: func(response string) float64 {
				lower := strings.ToLower(response)
				score := 0.0

				for _, kw := range []string{"light", "sun", "blue", "air", "scatter"} {
					if strings.Contains(lower, kw) {
						score += 15
					}
				}
				if strings.Count(response, ".") >= 2 {
					score += 15
				}
				if strings.Contains(lower, "like") || strings.Contains(lower, "imagine") ||
					strings.Contains(lower, "for example") {
					score += 10
				}

				if score > 100 {
					score = 100
				}
				return score
			},
		},

		// Instruction following test
		{
			Name:        "Instruction Following Test",
			Type:        TestTypeInstruction,
			Prompt:      "List exactly 3 fruits. Format: 1. Fruit",
			Description: "Measures ability to follow specific instructions",
			Evaluator: func(response string) float64 {
				score := 0.0
				for _, marker := range []string{"1.", "2.", "3."} {
					if strings.Contains(response, marker) {
						score += 25
					}
				}
				if !strings.Contains(response, "4.") {
					score += 25
				}
				return score
			},
		},
	}
}

// =============================================================================
// CUSTOM TEST BUILDERS
// =============================================================================

// SelectTests returns the standard tests whose type is in types, in suite
// order. An empty types selects the whole suite. A non-empty prompt adds a
// custom speed test at the end.
func SelectTests(types []string, prompt string) ([]Test, error) {
	standard := GetStandardTests()
	selected := standard
	if len(types) > 0 {
		want := make(map[TestType]bool, len(types))
		for _, name := range types {
			tt := TestType(strings.ToLower(strings.TrimSpace(name)))
			if !isStandardType(standard, tt) {
				return nil, fmt.Errorf("unknown test type %q (want speed, latency, instruction or explanation)", name)
			}
			want[tt] = true
		}
		selected = selected[:0:0]
		for _, t := range standard {
			if want[t.Type] {
				selected = append(selected, t)
			}
		}
	}

	if prompt = strings.TrimSpace(prompt); prompt != "" {
		selected = append(selected, NewSpeedTest("Custom Prompt Test", prompt))
	}
	return selected, nil
}

func isStandardType(tests []Test, tt TestType) bool {
	for _, t := range tests {
		if t.Type == tt {
			return true
		}
	}
	return false
}

// NewSpeedTest creates a custom speed test with a given prompt.
func NewSpeedTest(name, prompt string) Test {
	return Test{
		Name:        name,
		Type:        TestTypeSpeed,
		Prompt:      prompt,
		Description: "Custom speed test",
		Evaluator: func(response string) float64 {
			if len(response) > 20 {
				return 100.0
			}
			return float64(len(response)) * 5.0
		},
	}
}
