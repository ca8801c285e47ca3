// Package export renders finished reports for humans: Markdown for chat and
// tickets, HTML for mail and wiki pages.
package export

import (
	"encoding/json"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"io"
)

// Write renders report to w in the given format.
func Write(w io.Writer, report *domain.Report, format Format) error {
	switch format {
	case FormatMarkdown:
		return Markdown(w, report)
	case FormatHTML:
		return HTML(w, report)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
