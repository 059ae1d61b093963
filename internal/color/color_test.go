package color

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForUser_StableHex(t *testing.T) {
	c := ForUser("user-abc")

	assert.Regexp(t, regexp.MustCompile(`^#[0-9A-F]{6}$`), c)
	assert.Equal(t, c, ForUser("user-abc"))
	assert.NotEqual(t, c, ForUser("user-xyz"))
}

func TestIsLabelColor(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"red", true},
		{"Blue", true},
		{"#fff", true},
		{"#1a2B3c", true},
		{"#12345", false},
		{"magenta", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsLabelColor(tt.in), tt.in)
	}
}

func TestForLabel(t *testing.T) {
	assert.Equal(t, ForLabel("bug"), ForLabel(" BUG "))
	assert.Contains(t, LabelPalette, ForLabel("anything"))
}
