package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain json",
			input: `{"relevance_score": 0.8}`,
			want:  `{"relevance_score": 0.8}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"relevance_score\": 0.8}\n```",
			want:  `{"relevance_score": 0.8}`,
		},
		{
			name:  "bare fence",
			input: "```\n{\"relevance_score\": 0.8}\n```",
			want:  `{"relevance_score": 0.8}`,
		},
		{
			name:  "json fence with preamble",
			input: "Here is the analysis:\n```json\n{\"is_relevant\": true}\n```\nLet me know if you need more.",
			want:  `{"is_relevant": true}`,
		},
		{
			name:  "unclosed fence",
			input: "```json\n{\"is_relevant\": false}",
			want:  `{"is_relevant": false}`,
		},
		{
			name:  "surrounding whitespace",
			input: "  \n{\"a\": 1}\n  ",
			want:  `{"a": 1}`,
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.3))
	assert.Equal(t, 0.0, clamp01(0.0))
	assert.Equal(t, 0.42, clamp01(0.42))
	assert.Equal(t, 1.0, clamp01(1.0))
	assert.Equal(t, 1.0, clamp01(1.7))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 200))
	assert.Equal(t, "ab", truncateRunes("abcdef", 2))
	// Rune-aware: multi-byte characters are never split.
	assert.Equal(t, "abé", truncateRunes("abécd", 3))
	assert.Equal(t, "", truncateRunes("", 10))
}
