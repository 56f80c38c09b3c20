// Package extract recovers structured JSON values from unreliable LLM output.
//
// Model responses rarely arrive as clean JSON: the payload may be wrapped in
// prose, fenced in a labeled or unlabeled code block, followed by commentary,
// or carry minor syntax defects such as trailing commas and line comments.
// Extract applies a fixed sequence of recovery strategies and returns the
// first candidate that parses as a complete JSON value, or an explicit
// not-found result. It never returns a partially parsed or repaired-by-guess
// value, makes no I/O calls, and is safe for concurrent use.
package extract

import (
	"encoding/json"
	"io"
	"strings"
)

// Strategy identifies which recovery strategy produced a result.
type Strategy string

const (
	// StrategyDirect parses the whole trimmed input as a JSON value.
	StrategyDirect Strategy = "direct"
	// StrategyLabeledFence parses bodies of ```json fenced blocks.
	StrategyLabeledFence Strategy = "labeled_fence"
	// StrategyGenericFence parses bodies of any fenced block.
	StrategyGenericFence Strategy = "generic_fence"
	// StrategyBalancedScan parses the balanced span from the first
	// opening delimiter found in the text.
	StrategyBalancedScan Strategy = "balanced_scan"
	// StrategyCleanRetry parses the input after heuristic cleanup.
	StrategyCleanRetry Strategy = "clean_retry"
)

// Result is a successfully recovered JSON value.
type Result struct {
	// Value is the decoded value. Objects decode to map[string]any, arrays
	// to []any, and numbers to json.Number so round-trips do not lose
	// precision.
	Value any
	// Raw is the exact text that parsed, after any strategy-specific
	// trimming or cleanup.
	Raw string
	// Strategy is the recovery strategy that succeeded.
	Strategy Strategy
}

// Extract attempts to recover a JSON value from raw model output.
// Strategies are tried strictly in order: direct parse, ```json fences,
// generic fences, balanced delimiter scan, heuristic cleanup. The first
// successful parse wins. The second return value is false when no strategy
// produced a valid value; Extract never fails with an error for any input.
func Extract(text string) (Result, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}, false
	}

	if v, ok := parseValue(trimmed); ok {
		return Result{Value: v, Raw: trimmed, Strategy: StrategyDirect}, true
	}

	for _, body := range labeledFenceBodies(text) {
		if v, ok := parseValue(body); ok {
			return Result{Value: v, Raw: body, Strategy: StrategyLabeledFence}, true
		}
	}

	for _, body := range genericFenceBodies(text) {
		if v, ok := parseValue(body); ok {
			return Result{Value: v, Raw: body, Strategy: StrategyGenericFence}, true
		}
	}

	if span, ok := firstBalancedSpan(text); ok {
		if v, ok := parseValue(span); ok {
			return Result{Value: v, Raw: span, Strategy: StrategyBalancedScan}, true
		}
	}

	if cleaned := clean(text); cleaned != "" {
		if v, ok := parseValue(cleaned); ok {
			return Result{Value: v, Raw: cleaned, Strategy: StrategyCleanRetry}, true
		}
	}

	return Result{}, false
}

// parseValue decodes s as exactly one complete JSON value. Trailing
// non-whitespace content fails the parse, so two concatenated values are
// not accepted as one.
func parseValue(s string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return v, true
}
