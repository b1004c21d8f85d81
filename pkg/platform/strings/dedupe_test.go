package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "trims, drops empties and keeps first occurrence",
			input:    []string{"  Family Practice ", "Pediatrics", "Family Practice", "", "  "},
			expected: []string{"Family Practice", "Pediatrics"},
		},
		{
			name:     "case sensitive",
			input:    []string{"Pediatrics", "pediatrics"},
			expected: []string{"Pediatrics", "pediatrics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeFold(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{
			name:     "folds case and inner whitespace, keeps first spelling",
			input:    []string{"Jane  Doe", "JANE DOE", " jane doe ", "Mark Lee"},
			expected: []string{"Jane  Doe", "Mark Lee"},
		},
		{
			name:     "distinct names survive",
			input:    []string{"Dr. Jane Doe, MD", "Jane Doe"},
			expected: []string{"Dr. Jane Doe, MD", "Jane Doe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeFold(tt.input))
		})
	}
}
