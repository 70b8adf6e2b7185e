package compress

import "testing"

func TestFirstJSONBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			input: `{"a":1}`,
			want:  `{"a":1}`,
			ok:    true,
		},
		{
			name:  "object wrapped in prose",
			input: "Here is your summary:\n{\"a\":1}\nLet me know if you need more.",
			want:  `{"a":1}`,
			ok:    true,
		},
		{
			name:  "markdown fenced",
			input: "```json\n{\"weekly\":{\"summary\":\"ok\"}}\n```",
			want:  `{"weekly":{"summary":"ok"}}`,
			ok:    true,
		},
		{
			name:  "nested objects balanced",
			input: `{"a":{"b":{"c":1}},"d":2} trailing {"x":1}`,
			want:  `{"a":{"b":{"c":1}},"d":2}`,
			ok:    true,
		},
		{
			name:  "braces inside strings ignored",
			input: `{"summary":"mood went {up} then \"down\"","n":1}`,
			want:  `{"summary":"mood went {up} then \"down\"","n":1}`,
			ok:    true,
		},
		{
			name:  "stray closer before opener",
			input: `} oops {"a":1}`,
			want:  `{"a":1}`,
			ok:    true,
		},
		{
			name:  "no object",
			input: "I could not produce a summary.",
			ok:    false,
		},
		{
			name:  "unbalanced",
			input: `{"a": {"b": 1}`,
			ok:    false,
		},
		{
			name:  "empty input",
			input: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := firstJSONBlock(tt.input)
			if ok != tt.ok {
				t.Fatalf("firstJSONBlock(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("firstJSONBlock(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
