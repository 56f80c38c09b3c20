package extract

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "narrative prefix stripped",
			input: `Here's the JSON: {"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "prefix match is case-insensitive",
			input: `OUTPUT: {"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "trailing comma before brace",
			input: `{"a": 1,}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "trailing comma before bracket across whitespace",
			input: "[1, 2,\n]",
			want:  `[1, 2]`,
		},
		{
			name:  "line comment stripped",
			input: "{\"a\": 1 // inline note\n}",
			want:  "{\"a\": 1 \n}",
		},
		{
			name:  "prefix in the middle is kept",
			input: `{"msg": "Output: done"}`,
			want:  `{"msg": "Output: done"}`,
		},
		{
			name:  "already clean",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clean(tt.input); got != tt.want {
				t.Errorf("clean() = %q, want %q", got, tt.want)
			}
		})
	}
}
