package logging

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"john.doe@example.com", "j******e@e*****e.c*m"},
		{"x@y.com", "*@*.c*m"},
		{"éric@société.fr", "é**c@s*****é.**"},
		{"  ab@cd.io ", "**@**.**"},
		{"not-an-email", "not-an-email"},
		{"@example.com", "@example.com"},
		{"user@", "user@"},
		{"", ""},
	}
	for _, tt := range tests {
		got := MaskEmail(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.True(t, utf8.ValidString(got), tt.in)
	}
}
