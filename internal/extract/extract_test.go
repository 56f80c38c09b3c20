package extract

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestExtract_Strategies(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantStrategy Strategy
		wantJSON     string // expected re-marshaled value
	}{
		{
			name:         "plain object",
			input:        `{"key": "value"}`,
			wantStrategy: StrategyDirect,
			wantJSON:     `{"key":"value"}`,
		},
		{
			name:         "plain array",
			input:        `["a", "b", "c"]`,
			wantStrategy: StrategyDirect,
			wantJSON:     `["a","b","c"]`,
		},
		{
			name:         "object with surrounding whitespace",
			input:        "\n\t {\"a\": 1} \n",
			wantStrategy: StrategyDirect,
			wantJSON:     `{"a":1}`,
		},
		{
			name:         "labeled fence",
			input:        "Sure, here you go:\n```json\n{\"a\": 1}\n```\nLet me know if you need more.",
			wantStrategy: StrategyLabeledFence,
			wantJSON:     `{"a":1}`,
		},
		{
			name:         "labeled fence uppercase label",
			input:        "```JSON\n[1, 2, 3]\n```",
			wantStrategy: StrategyLabeledFence,
			wantJSON:     `[1,2,3]`,
		},
		{
			name:         "second labeled fence parses when first does not",
			input:        "```json\nnot json at all\n```\n```json\n{\"b\": 2}\n```",
			wantStrategy: StrategyLabeledFence,
			wantJSON:     `{"b":2}`,
		},
		{
			name:         "generic fence",
			input:        "The plan:\n```\n{\"steps\": [1, 2]}\n```",
			wantStrategy: StrategyGenericFence,
			wantJSON:     `{"steps":[1,2]}`,
		},
		{
			name:         "generic fence with non-json label",
			input:        "```text\n{\"a\": true}\n```",
			wantStrategy: StrategyGenericFence,
			wantJSON:     `{"a":true}`,
		},
		{
			name:         "object embedded in prose",
			input:        `The result is {"score": 3, "reason": "ok"} as requested.`,
			wantStrategy: StrategyBalancedScan,
			wantJSON:     `{"reason":"ok","score":3}`,
		},
		{
			name:         "array embedded in prose",
			input:        `Candidates: ["x", "y"] were selected.`,
			wantStrategy: StrategyBalancedScan,
			wantJSON:     `["x","y"]`,
		},
		{
			name:         "array start before object start",
			input:        `noise [1, 2] more {"a": 1}`,
			wantStrategy: StrategyBalancedScan,
			wantJSON:     `[1,2]`,
		},
		{
			name:         "escaped quote adjacent to closing brace",
			input:        `prefix {"a": "x\"}y"} suffix`,
			wantStrategy: StrategyBalancedScan,
			wantJSON:     `{"a":"x\"}y"}`,
		},
		{
			name:         "trailing comma recovered by cleanup",
			input:        `{"a": 1,}`,
			wantStrategy: StrategyCleanRetry,
			wantJSON:     `{"a":1}`,
		},
		{
			name:         "line comments recovered by cleanup",
			input:        "{\"a\": 1, // the score\n\"b\": 2}",
			wantStrategy: StrategyCleanRetry,
			wantJSON:     `{"a":1,"b":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Extract(tt.input)
			if !ok {
				t.Fatalf("Extract() found nothing, want strategy %s", tt.wantStrategy)
			}
			if res.Strategy != tt.wantStrategy {
				t.Errorf("Extract() strategy = %s, want %s", res.Strategy, tt.wantStrategy)
			}

			got, err := json.Marshal(res.Value)
			if err != nil {
				t.Fatalf("result value does not re-marshal: %v", err)
			}
			if string(got) != tt.wantJSON {
				t.Errorf("Extract() value = %s, want %s", got, tt.wantJSON)
			}
		})
	}
}

func TestExtract_Absence(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "whitespace only", input: " \n\t "},
		{name: "no structure at all", input: "no data here"},
		{name: "unterminated object", input: `{"a": 1`},
		{name: "unterminated nested object", input: `{"a": {"b": 2}`},
		{name: "unterminated array", input: `Here you go: [1, 2, 3`},
		{name: "lone open brace", input: "some { prose"},
		{name: "fence with no payload", input: "```json\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Extract(tt.input)
			if ok {
				t.Errorf("Extract() = %+v, want absence", res)
			}
		})
	}
}

// Two complete sibling values after prose: only the first balanced span is
// returned, never a concatenation.
func TestExtract_FirstOfSiblingValues(t *testing.T) {
	input := `I found two: {"a": 1} {"b": 2}`

	res, ok := Extract(input)
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	if res.Strategy != StrategyBalancedScan {
		t.Errorf("strategy = %s, want %s", res.Strategy, StrategyBalancedScan)
	}

	want := map[string]any{"a": json.Number("1")}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("value = %#v, want %#v", res.Value, want)
	}
}

func TestExtract_NumbersRoundTrip(t *testing.T) {
	input := `{"big": 9007199254740993, "small": 0.1}`

	res, ok := Extract(input)
	if !ok {
		t.Fatal("Extract() found nothing")
	}

	got, err := json.Marshal(res.Value)
	if err != nil {
		t.Fatalf("re-marshal failed: %v", err)
	}
	want := `{"big":9007199254740993,"small":0.1}`
	if string(got) != want {
		t.Errorf("round-trip = %s, want %s", got, want)
	}
}

func TestExtract_TopLevelScalars(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{name: "string", input: `"hello"`, want: "hello"},
		{name: "number", input: "42", want: json.Number("42")},
		{name: "bool", input: "true", want: true},
		{name: "null", input: "null", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Extract(tt.input)
			if !ok {
				t.Fatalf("Extract() found nothing for %q", tt.input)
			}
			if !reflect.DeepEqual(res.Value, tt.want) {
				t.Errorf("value = %#v, want %#v", res.Value, tt.want)
			}
		})
	}
}

// Concatenated top-level values must not pass a direct parse.
func TestParseValue_RejectsTrailingContent(t *testing.T) {
	if _, ok := parseValue(`{"a": 1} {"b": 2}`); ok {
		t.Error("parseValue() accepted two concatenated values")
	}
	if _, ok := parseValue(`{"a": 1} trailing prose`); ok {
		t.Error("parseValue() accepted trailing prose")
	}
	if _, ok := parseValue("{\"a\": 1}\n\t "); !ok {
		t.Error("parseValue() rejected trailing whitespace")
	}
}
