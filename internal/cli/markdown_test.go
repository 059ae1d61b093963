package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", false},
		{"plain text", "Revisar el presupuesto antes del viernes", false},
		{"angle brackets", "Use <stdin> and check 2 > 1", false},
		{"paragraph", "<p>Hola</p>", true},
		{"break", "uno<br/>dos", true},
		{"upper case", "<STRONG>urgente</STRONG>", true},
		{"list", "<ul><li>uno</li></ul>", true},
		{"code", "<pre><code>make test</code></pre>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsHTML(tt.input))
		})
	}
}

func TestDescriptionText(t *testing.T) {
	assert.Equal(t, "", descriptionText(""))
	assert.Equal(t, "Texto plano", descriptionText("Texto plano"))

	got := descriptionText("<p>Hola <strong>mundo</strong></p>")
	assert.Contains(t, got, "**mundo**")
	assert.NotContains(t, got, "<p>")

	got = descriptionText("<ul><li>uno</li><li>dos</li></ul>")
	assert.Contains(t, got, "uno")
	assert.Contains(t, got, "dos")
	assert.NotContains(t, got, "<li>")
}
