package color

import (
	"regexp"
	"slices"
	"strings"
)

// LabelPalette is the set of named label colours offered by clients.
var LabelPalette = []string{"green", "yellow", "orange", "red", "purple", "blue", "sky", "lime", "pink", "black"}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsLabelColor reports whether c is a palette name or a #rgb / #rrggbb hex colour.
func IsLabelColor(c string) bool {
	c = strings.TrimSpace(c)
	return slices.Contains(LabelPalette, strings.ToLower(c)) || hexColor.MatchString(c)
}

// ForLabel picks a palette colour for a label text, stable across calls.
func ForLabel(text string) string {
	return LabelPalette[hash(strings.ToLower(strings.TrimSpace(text)))%len(LabelPalette)]
}
