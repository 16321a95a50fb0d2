// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes research reports to files in Markdown, JSON,
// plain text, and YAML.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// ToolName is stamped into every exported report.
const ToolName = "Research Assistant"

// DefaultDir is used when Exporter.Dir is empty.
const DefaultDir = "research_outputs"

// maxNameRunes bounds the query-derived part of a file name.
const maxNameRunes = 50

// Report is the content shared by every export format.
type Report struct {
	Query            string          `json:"query" yaml:"query"`
	ExecutiveSummary string          `json:"executive_summary" yaml:"executive_summary"`
	KeyInsights      []string        `json:"key_insights" yaml:"key_insights"`
	Findings         []types.Finding `json:"findings" yaml:"findings"`
}

// ReportFromState builds a Report from a finished research run.
func ReportFromState(st *types.ResearchState) Report {
	return Report{
		Query:            st.Query,
		ExecutiveSummary: st.ExecutiveSummary,
		KeyInsights:      st.KeyInsights,
		Findings:         st.Findings,
	}
}

// Exporter writes reports into Dir, creating it on first use.
type Exporter struct {
	Dir string

	// Now stamps file names and footers. Nil means time.Now.
	Now func() time.Time
}

// New returns an Exporter writing into dir.
func New(dir string) *Exporter {
	return &Exporter{Dir: dir}
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Exporter) dir() string {
	if e.Dir == "" {
		return DefaultDir
	}
	return e.Dir
}

// Filename derives a file name from query and the current time: characters
// other than letters, digits, and spaces become underscores, the result is
// cut to 50 characters, and spaces become underscores.
func Filename(query string, at time.Time, ext string) string {
	var b strings.Builder
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	clean := []rune(b.String())
	if len(clean) > maxNameRunes {
		clean = clean[:maxNameRunes]
	}
	name := strings.ReplaceAll(strings.TrimSpace(string(clean)), " ", "_")
	if name == "" {
		name = "research"
	}
	return fmt.Sprintf("%s_%s.%s", name, at.Format("20060102_150405"), ext)
}

func (e *Exporter) write(r Report, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(e.dir(), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(e.dir(), Filename(r.Query, e.now(), ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"orElse": func(s, fallback string) string {
		if s == "" {
			return fallback
		}
		return s
	},
	"rule": func(n int) string { return strings.Repeat("=", n) },
}

var markdownTmpl = template.Must(template.New("markdown").Funcs(funcs).Parse(`# Research Report

## Query
{{.Report.Query}}

## Executive Summary
{{.Report.ExecutiveSummary}}

## Key Insights
{{range $i, $in := .Report.KeyInsights}}{{inc $i}}. {{$in}}
{{end}}
## Sources
{{range .Report.Findings}}- **{{orElse .Title "Unknown"}}**
  - URL: {{orElse .Source "N/A"}}
  - Relevance: {{orElse .Relevance "N/A"}}

{{end}}
---
*Generated on {{.Generated}}*
*{{.Tool}}*
`))

var textTmpl = template.Must(template.New("text").Funcs(funcs).Parse(`RESEARCH REPORT
{{rule 60}}

QUERY: {{.Report.Query}}

{{rule 60}}
EXECUTIVE SUMMARY
{{rule 60}}

{{.Report.ExecutiveSummary}}

{{rule 60}}
KEY INSIGHTS
{{rule 60}}

{{range $i, $in := .Report.KeyInsights}}  {{inc $i}}. {{$in}}
{{end}}
{{rule 60}}
SOURCES
{{rule 60}}

{{range .Report.Findings}}  * {{orElse .Title "Unknown"}}
    URL: {{orElse .Source "N/A"}}

{{end}}
{{rule 60}}
Generated: {{.Generated}}
Tool: {{.Tool}}
`))

func (e *Exporter) render(tmpl *template.Template, r Report) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Report    Report
		Generated string
		Tool      string
	}{r, e.now().Format(time.DateTime), ToolName}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering %s report: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

// Markdown writes r as a Markdown report and returns its path.
func (e *Exporter) Markdown(r Report) (string, error) {
	data, err := e.render(markdownTmpl, r)
	if err != nil {
		return "", err
	}
	return e.write(r, "md", data)
}

// Text writes r as a plain-text report and returns its path.
func (e *Exporter) Text(r Report) (string, error) {
	data, err := e.render(textTmpl, r)
	if err != nil {
		return "", err
	}
	return e.write(r, "txt", data)
}

// Metadata describes when and by what a structured export was produced.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Tool        string    `json:"tool" yaml:"tool"`
}

type document struct {
	Report   `yaml:",inline"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

func (e *Exporter) document(r Report) document {
	if r.KeyInsights == nil {
		r.KeyInsights = []string{}
	}
	if r.Findings == nil {
		r.Findings = []types.Finding{}
	}
	return document{Report: r, Metadata: Metadata{GeneratedAt: e.now(), Tool: ToolName}}
}

// JSON writes r with metadata as indented JSON and returns its path.
func (e *Exporter) JSON(r Report) (string, error) {
	data, err := json.MarshalIndent(e.document(r), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return e.write(r, "json", data)
}

// YAML writes r with metadata as YAML and returns its path.
func (e *Exporter) YAML(r Report) (string, error) {
	data, err := yaml.Marshal(e.document(r))
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return e.write(r, "yaml", data)
}

// All writes r in every format and returns the path per format.
func (e *Exporter) All(r Report) (map[types.ExportFormat]string, error) {
	paths := make(map[types.ExportFormat]string)
	for _, f := range []types.ExportFormat{types.FormatMarkdown, types.FormatJSON, types.FormatText, types.FormatYAML} {
		p, err := e.Export(f, r)
		if err != nil {
			return paths, err
		}
		paths[f] = p[0]
	}
	return paths, nil
}

// Export writes r in format and returns the written paths. FormatAll
// yields one path per format.
func (e *Exporter) Export(format types.ExportFormat, r Report) ([]string, error) {
	var (
		path string
		err  error
	)
	switch format {
	case types.FormatMarkdown, "markdown":
		path, err = e.Markdown(r)
	case types.FormatJSON:
		path, err = e.JSON(r)
	case types.FormatText, "text":
		path, err = e.Text(r)
	case types.FormatYAML, "yml":
		path, err = e.YAML(r)
	case types.FormatAll:
		all, err := e.All(r)
		if err != nil {
			return nil, err
		}
		return []string{
			all[types.FormatMarkdown], all[types.FormatJSON],
			all[types.FormatText], all[types.FormatYAML],
		}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}
