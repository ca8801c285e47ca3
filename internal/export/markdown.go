package export

import (
	"bytes"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts the format names used by the API and CLI. An empty
// name selects JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", name)
	}
}

// ContentType returns the media type of a rendered document.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

const markdownTemplate = `# Changelog {{ md .ReleaseBranch }}

Changes merged {{ date .From }} to {{ date .To }}, generated {{ stamp .GeneratedAt }}.

| Repository | Stories |
| --- | ---: |
{{- range .Totals }}
| {{ md .Repo }} | {{ .Count }} |
{{- end }}
| **Total** | **{{ .Total }}** |
{{- if .Statuses }}

{{ range $i, $s := .Statuses }}{{ if $i }}, {{ end }}{{ md $s.Status }}: {{ $s.Count }}{{ end }}
{{- end }}
{{ range .Sections }}
## {{ md .Repo }}
{{ range .Stories }}
- **[{{ .Ticket.Key }}]({{ .Ticket.URL }})** {{ md .Ticket.Summary }} ({{ md .Ticket.Status }}{{ with .Ticket.Assignee }}, {{ md . }}{{ end }})
{{- range .Ticket.RelatedEpics }}
  - {{ .Relationship }}: {{ if .URL }}[{{ .Key }}]({{ .URL }}){{ else }}{{ .Key }}{{ end }}{{ with .Summary }} {{ md . }}{{ end }}
{{- end }}
{{- range .Changes }}
  - [#{{ .ID }}]({{ .URL }}) {{ md .Title }}
{{- end }}
{{- end }}
{{ else }}
No stories were found for this release.
{{ end -}}
`

var markdown = template.Must(template.New("changelog").Funcs(template.FuncMap{
	"md":    escapeMarkdown,
	"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 UTC") },
}).Parse(markdownTemplate))

type repoCount struct {
	Repo  string
	Count int
}

type statusCount struct {
	Status string
	Count  int
}

type section struct {
	Repo    string
	Stories []domain.Story
}

type markdownView struct {
	*domain.Report
	Totals   []repoCount
	Total    int
	Statuses []statusCount
	Sections []section
}

// Markdown writes report as a Markdown document with one section per
// repository that produced stories.
func Markdown(w io.Writer, report *domain.Report) error {
	if err := markdown.Execute(w, newMarkdownView(report)); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

func renderMarkdown(report *domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := Markdown(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newMarkdownView(report *domain.Report) markdownView {
	view := markdownView{Report: report, Total: report.Summary.TotalStories}

	for repo, count := range report.Summary.RepoBreakdown {
		view.Totals = append(view.Totals, repoCount{Repo: repo, Count: count})
	}
	sort.Slice(view.Totals, func(i, j int) bool { return view.Totals[i].Repo < view.Totals[j].Repo })

	for status, count := range report.Summary.StatusBreakdown {
		view.Statuses = append(view.Statuses, statusCount{Status: status, Count: count})
	}
	sort.Slice(view.Statuses, func(i, j int) bool {
		if view.Statuses[i].Count != view.Statuses[j].Count {
			return view.Statuses[i].Count > view.Statuses[j].Count
		}
		return view.Statuses[i].Status < view.Statuses[j].Status
	})

	index := make(map[string]int)
	for _, story := range report.Stories {
		repo := story.Repo.String()
		i, ok := index[repo]
		if !ok {
			i = len(view.Sections)
			index[repo] = i
			view.Sections = append(view.Sections, section{Repo: repo})
		}
		view.Sections[i].Stories = append(view.Sections[i].Stories, story)
	}

	return view
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`|`, `\|`,
	`#`, `\#`,
	"\r", " ",
	"\n", " ",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
