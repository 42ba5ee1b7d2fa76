package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "plain digits", input: "0501234567", expected: "0501234567"},
		{name: "international with plus", input: "+972 50-123-4567", expected: "+972501234567"},
		{name: "parentheses and dots", input: "(050) 123.45.67", expected: "0501234567"},
		{name: "surrounding whitespace", input: "  0501234567  ", expected: "0501234567"},
		{name: "too short", input: "12345", wantErr: true},
		{name: "too long", input: "1234567890123456", wantErr: true},
		{name: "letters", input: "050-CALL-GYM", wantErr: true},
		{name: "plus in the middle", input: "050+1234567", wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
