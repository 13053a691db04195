package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString(t *testing.T) {
	h1 := HashString("leaf rust on wheat")
	h2 := HashString("leaf rust on wheat")
	h3 := HashString("leaf rust on barley")

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapse spaces",
			input:    "powdery   mildew \t symptoms",
			expected: "powdery mildew symptoms",
		},
		{
			name:     "trim edges",
			input:    "  late blight  ",
			expected: "late blight",
		},
		{
			name:     "paragraph break kept as single newline",
			input:    "first paragraph\n\n\nsecond paragraph",
			expected: "first paragraph\nsecond paragraph",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    " \n\t ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeWhitespace(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "", Truncate("anything", 0))

	long := strings.Repeat("x", 100)
	assert.Equal(t, 13, len(Truncate(long, 10)))
}
