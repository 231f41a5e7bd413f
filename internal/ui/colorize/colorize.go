// Package colorize highlights disassembly dumps for terminal output.
package colorize

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// NoColorEnv disables all colouring when set to any value.
const NoColorEnv = "SOFTPAL_NO_COLOR"

// Enabled reports whether colour output is allowed by the environment.
func Enabled() bool {
	return os.Getenv(NoColorEnv) == ""
}

// getDumpLexer returns an assembly lexer with fallbacks
func getDumpLexer() chroma.Lexer {
	for _, name := range []string{"nasm", "gas", "armasm"} {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getStyle returns the named style, then our own, then chroma's fallback.
func getStyle(name string) *chroma.Style {
	for _, candidate := range []string{name, StyleName, "monokai"} {
		if candidate == "" {
			continue
		}
		if style, ok := styles.Registry[candidate]; ok {
			return style
		}
	}
	return styles.Fallback
}

func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Highlighter colours dump lines with a fixed chroma style.
type Highlighter struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
}

// NewHighlighter returns a Highlighter for the given chroma style name. An
// empty or unknown name selects the sv20-dark style.
func NewHighlighter(style string) *Highlighter {
	return &Highlighter{
		lexer:     getDumpLexer(),
		style:     getStyle(style),
		formatter: getTerminalFormatter(),
	}
}

// Line colours one dump line. The leading offset column is printed in gray
// and the rest goes through chroma. Lines that fail to tokenise are returned
// unchanged.
func (h *Highlighter) Line(line string) string {
	if !Enabled() || h.lexer == nil {
		return line
	}

	addr, rest, ok := strings.Cut(line, " ")
	if !ok || !isHexWord(addr) {
		return h.tokens(line)
	}
	return fmt.Sprintf("\033[38;2;79;79;79m%s\033[0m %s", addr, h.tokens(rest))
}

// Dump colours a whole multi-line dump.
func (h *Highlighter) Dump(text string) string {
	if !Enabled() {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = h.Line(l)
		}
	}
	return strings.Join(lines, "\n")
}

func (h *Highlighter) tokens(s string) string {
	iterator, err := h.lexer.Tokenise(nil, s)
	if err != nil {
		return s
	}
	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return s
	}
	// The lexer appends a newline to its input; s never holds one.
	return strings.ReplaceAll(buf.String(), "\n", "")
}

// isHexWord reports whether s is an eight-digit hex offset column.
func isHexWord(s string) bool {
	if len(s) != 8 {
		return false
	}
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}
