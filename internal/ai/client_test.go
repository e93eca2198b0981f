package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "one two three", 5, "one two three"},
		{"exact", "one two three", 3, "one two three"},
		{"trimmed", "one two three four", 2, "one two…"},
		{"empty", "", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateWords(tt.in, tt.n))
		})
	}
}

func TestNew_MockSelection(t *testing.T) {
	assert.IsType(t, &mockClient{}, New(Options{APIKey: ""}, nil))
	assert.IsType(t, &mockClient{}, New(Options{APIKey: "mock"}, nil))
}

func TestMockCommentary_Deterministic(t *testing.T) {
	c := NewMock()

	first, err := c.Commentary(context.Background(), "anything")
	require.NoError(t, err)

	second, err := c.Commentary(context.Background(), "else")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.LessOrEqual(t, len(strings.Fields(first)), 80)
}
