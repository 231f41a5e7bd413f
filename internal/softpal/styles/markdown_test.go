package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKeepsText(t *testing.T) {
	out := Render("# Softpal\n\n- **Messages**: 12\n", 60)
	assert.Contains(t, out, "Softpal")
	assert.Contains(t, out, "Messages")
	assert.Contains(t, out, "12")
}

func TestRendererClampsWidth(t *testing.T) {
	r := GetMarkdownRenderer(0)
	require.NotNil(t, r)
	out, err := r.Render(strings.Repeat("word ", 10))
	require.NoError(t, err)
	assert.Contains(t, out, "word")
}
