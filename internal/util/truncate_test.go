package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateLog(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"trims whitespace", "  {}\n", 10, "{}"},
		{"no limit", "hello", 0, "hello"},
		{"truncated", "hello world", 5, "hello... [truncated, 11 bytes total]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateLog(tt.input, tt.maxLen))
		})
	}
}

func TestTruncateBytes(t *testing.T) {
	body := []byte(strings.Repeat("x", DefaultLogMaxLen+20))
	got := TruncateBytes(body)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("x", DefaultLogMaxLen)))
	assert.Contains(t, got, "truncated")

	assert.Equal(t, `{"ok":true}`, TruncateBytes([]byte(`{"ok":true}`)))
}
