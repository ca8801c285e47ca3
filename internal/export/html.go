package export

import (
	"bytes"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"io"
)

// goldmark escapes raw HTML by default, so text from upstream systems cannot
// inject markup.
var htmlRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
	),
)

// HTML writes report as an HTML fragment rendered from its Markdown form.
func HTML(w io.Writer, report *domain.Report) error {
	source, err := renderMarkdown(report)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := htmlRenderer.Convert(source, &buf); err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}
