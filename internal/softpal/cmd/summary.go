package cmd

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	pathpkg "path/filepath"
	"strings"

	"softpal/internal/analysis"
)

// Summary is the result of scanning one script file.
type Summary struct {
	Path   string
	Size   int64
	Digest string
	Refs   []analysis.TextRef
	Stats  analysis.Stats
	// Err is the decode error that ended the scan early, if any. Refs
	// found before it are kept.
	Err error
}

// Summarize scans path once, hashing the file on the way through.
// Only references kept by filter are collected; Stats counts all of them.
func Summarize(path string, filter analysis.Filter) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	tee := io.TeeReader(f, h)

	s, err := analysis.NewScanner(tee)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pathpkg.Base(path), err)
	}

	if filter == nil {
		filter = analysis.KindFilter(nil)
	}
	sum := &Summary{Path: path}
	keep := analysis.NewFilterChain(filter)
	sum.Err = s.Scan(keep.Apply(func(ref analysis.TextRef) {
		sum.Refs = append(sum.Refs, ref)
	}))
	sum.Stats = s.Stats()

	// Hash whatever the scan left unread.
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return nil, fmt.Errorf("failed to calculate digest: %w", err)
	}
	if st, err := f.Stat(); err == nil {
		sum.Size = st.Size()
	}
	sum.Digest = fmt.Sprintf("%x", h.Sum(nil))

	slog.Debug("Scanned script",
		"file", path,
		"instructions", sum.Stats.Instructions,
		"refs", len(sum.Refs),
		"misses", sum.Stats.Misses,
		"error", sum.Err)
	return sum, nil
}

// Markdown renders the summary the way the no-TUI mode prints it.
func (s *Summary) Markdown() string {
	var sb strings.Builder

	sb.WriteString("# Softpal\n\n```\n")
	relPath := s.Path
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := pathpkg.Rel(cwd, s.Path); err == nil && !strings.HasPrefix(rel, "..") {
			relPath = rel
		}
	}
	fmt.Fprintf(&sb, "; %s (%d bytes)\n", relPath, s.Size)
	if s.Digest != "" {
		fmt.Fprintf(&sb, "; %s\n", s.Digest)
	}
	sb.WriteString("```\n\n## Scan\n\n")

	fmt.Fprintf(&sb, "- **Instructions**: %d\n", s.Stats.Instructions)
	fmt.Fprintf(&sb, "- **Character names**: %d\n", s.Stats.Names)
	fmt.Fprintf(&sb, "- **Messages**: %d\n", s.Stats.Messages)
	fmt.Fprintf(&sb, "- **Misses**: %d\n", s.Stats.Misses)
	fmt.Fprintf(&sb, "- **Stack clears**: %d\n", s.Stats.Clears)

	if s.Err != nil {
		fmt.Fprintf(&sb, "\n> Scan stopped early: %v\n", s.Err)
	}

	if len(s.Refs) > 0 {
		sb.WriteString("\n## References\n\n```\n")
		for _, ref := range s.Refs {
			sb.WriteString(ref.String())
			sb.WriteByte('\n')
		}
		sb.WriteString("```\n")
	}
	return sb.String()
}
