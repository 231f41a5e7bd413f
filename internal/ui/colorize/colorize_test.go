package colorize

import (
	"testing"

	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestStyleRegistered(t *testing.T) {
	assert.Contains(t, styles.Registry, StyleName)
	assert.Equal(t, StyleName, getStyle("no-such-style").Name)
	assert.Equal(t, "monokai", getStyle("monokai").Name)
}

func TestLinePreservesText(t *testing.T) {
	t.Setenv(NoColorEnv, "")
	h := NewHighlighter("")
	lines := []string{
		"0000000C push [0x00000010]",
		"00000014 syscall 0x20002 0x0",
		"0000001C 0019",
		"not a dump line",
	}
	for _, l := range lines {
		assert.Equal(t, l, ansi.Strip(h.Line(l)))
	}
}

func TestNoColorEnv(t *testing.T) {
	t.Setenv(NoColorEnv, "1")
	h := NewHighlighter("")
	line := "0000000C nop"
	assert.Equal(t, line, h.Line(line))
	assert.Equal(t, line+"\n", h.Dump(line+"\n"))
}

func TestIsHexWord(t *testing.T) {
	assert.True(t, isHexWord("0000000C"))
	assert.True(t, isHexWord("deadBEEF"))
	assert.False(t, isHexWord(""))
	assert.False(t, isHexWord("0x10"))
	assert.False(t, isHexWord("C"))
	assert.False(t, isHexWord("0000000C0"))
	assert.False(t, isHexWord("0000000G"))
}
