package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/stakerank/stakerank/internal/report"
	"github.com/stakerank/stakerank/internal/ui"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

const sectionAll = "all"

func validateFormat(format string) error {
	switch format {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// resolveSections expands the --section flag.
func resolveSections(name string) ([]string, error) {
	switch name {
	case sectionAll:
		return []string{report.SectionActive, report.SectionWaiting}, nil
	case report.SectionActive, report.SectionWaiting:
		return []string{name}, nil
	default:
		return nil, fmt.Errorf("unknown section %q (want active, waiting or all)", name)
	}
}

// reportOutput is the machine-readable report: each requested section as
// an object keyed by validator in rank order.
type reportOutput struct {
	Active      *report.Section `json:"active,omitempty"`
	Waiting     *report.Section `json:"waiting,omitempty"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Stats       report.Stats    `json:"stats"`
}

func newReportOutput(rep *report.Report, sections []string, limit int) reportOutput {
	out := reportOutput{GeneratedAt: rep.GeneratedAt, Stats: rep.Stats}
	for _, name := range sections {
		sec, _ := rep.Section(name)
		sec = sec.Limit(limit)
		if sec == nil {
			sec = report.Section{}
		}
		switch name {
		case report.SectionActive:
			out.Active = &sec
		case report.SectionWaiting:
			out.Waiting = &sec
		}
	}
	return out
}

// yamlSection keeps rank order through yaml.v2's MapSlice. Totals are
// written as strings since they can exceed 64 bits.
func yamlSection(sec report.Section) yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(sec))
	for _, e := range sec {
		out = append(out, yaml.MapItem{
			Key: string(e.Validator),
			Value: yaml.MapSlice{
				{Key: "name", Value: e.Name},
				{Key: "nominators", Value: e.Nominators},
				{Key: "totalBondedBalance", Value: e.TotalBondedBalance.String()},
			},
		})
	}
	return out
}

func yamlReport(rep *report.Report, sections []string, limit int) yaml.MapSlice {
	var doc yaml.MapSlice
	for _, name := range sections {
		sec, _ := rep.Section(name)
		doc = append(doc, yaml.MapItem{Key: name, Value: yamlSection(sec.Limit(limit))})
	}
	return append(doc,
		yaml.MapItem{Key: "generatedAt", Value: rep.GeneratedAt.UTC().Format(time.RFC3339)},
		yaml.MapItem{Key: "stats", Value: rep.Stats},
	)
}

// printReport writes rep in format.
func printReport(w io.Writer, rep *report.Report, format string, sections []string, limit int, color bool) error {
	switch format {
	case OutputFormatJSON:
		return printJSON(w, newReportOutput(rep, sections, limit))
	case OutputFormatYAML:
		return yaml.NewEncoder(w).Encode(yamlReport(rep, sections, limit))
	default:
		_, err := io.WriteString(w, ui.RenderReport(ui.NewTheme(color), rep, sections, limit))
		return err
	}
}

// printIdentities writes the validator name listing in format.
func printIdentities(w io.Writer, names []report.NamedValidator, format string, color bool) error {
	switch format {
	case OutputFormatJSON:
		return printJSON(w, names)
	case OutputFormatYAML:
		return yaml.NewEncoder(w).Encode(names)
	default:
		_, err := io.WriteString(w, ui.RenderIdentities(ui.NewTheme(color), names))
		return err
	}
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
