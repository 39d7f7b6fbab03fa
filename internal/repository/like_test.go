package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "plain value", value: "Work", expected: "%work%"},
		{name: "percent escaped", value: "100%", expected: `%100\%%`},
		{name: "underscore escaped", value: "to_do", expected: `%to\_do%`},
		{name: "backslash escaped", value: `a\b`, expected: `%a\\b%`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, containsPattern(tt.value))
		})
	}
}
