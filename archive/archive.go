// Package archive writes every draft to disk before review, as Markdown
// plus a rendered HTML preview, so nothing generated is ever lost to a
// skipped or failed run.
package archive

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"sawalkaro/review"
)

type Archive struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) (*Archive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{dir: dir, logger: logger}, nil
}

// Dir returns the archive directory, which doubles as the media output dir.
func (a *Archive) Dir() string { return a.dir }

// SaveDraft writes the draft as post_draft_<id>.md and an .html preview
// next to it. Returns the Markdown path.
func (a *Archive) SaveDraft(d review.Draft) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", err
	}

	md := renderMarkdown(d)
	mdPath := filepath.Join(a.dir, fmt.Sprintf("post_draft_%s.md", d.ID))
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", err
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(md), &html); err != nil {
		a.logger.Warn("draft HTML preview failed", "draft_id", d.ID, "error", err)
	} else {
		htmlPath := strings.TrimSuffix(mdPath, ".md") + ".html"
		if err := os.WriteFile(htmlPath, html.Bytes(), 0o644); err != nil {
			a.logger.Warn("writing draft HTML preview failed", "draft_id", d.ID, "error", err)
		}
	}

	a.logger.Info("draft archived", "draft_id", d.ID, "path", mdPath)
	return mdPath, nil
}

func renderMarkdown(d review.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Draft %s\n\n", d.ID)
	fmt.Fprintf(&b, "Status: PENDING APPROVAL\n\n")

	if d.Headline != "" || d.KeyFact != "" || d.SourceURL != "" {
		b.WriteString("## Source news\n\n")
		writeField(&b, "Headline", d.Headline)
		writeField(&b, "Key fact", d.KeyFact)
		writeField(&b, "Source", d.SourceURL)
		b.WriteString("\n")
	}

	b.WriteString("## Post\n\n")
	if len(d.Thread) > 0 {
		for i, part := range d.Thread {
			fmt.Fprintf(&b, "%d. %s\n", i+1, part)
		}
		b.WriteString("\n")
	} else {
		b.WriteString(d.PrimaryText + "\n\n")
	}

	if d.SecondaryText != "" {
		b.WriteString("## Instagram\n\n")
		b.WriteString(d.SecondaryText + "\n\n")
	}
	if d.Media.Kind != review.MediaNone && d.Media.Kind != "" {
		b.WriteString("## Media\n\n")
		fmt.Fprintf(&b, "- %s: %s\n", d.Media.Kind, d.Media.Path)
	}
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(b, "- %s: %s\n", name, value)
	}
}
