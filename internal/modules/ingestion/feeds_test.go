package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Champions League football roundup", true},
		{"FASHION week opens in Milan", true},
		{"Pop concert raises funds for flood victims", true},
		{"Missile strike reported near the border", false},
		{"Grain corridor talks resume", false},
		{"", false},
		// Substring semantics: "transport" trips the "sport" term.
		{"Transport strike paralyses the capital", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isBlocked(tt.text), "text %q", tt.text)
	}
}
