package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stakerank/stakerank/internal/report"
)

// RenderReport renders the named sections of rep, each limited to limit
// rows (0 for all).
func RenderReport(t *Theme, rep *report.Report, sections []string, limit int) string {
	amount := t.Amount
	columns := []Column{
		{Header: "#", AlignRight: true},
		{Header: "VALIDATOR"},
		{Header: "NAME"},
		{Header: "NOMINATORS", AlignRight: true},
		{Header: "TOTAL BONDED", AlignRight: true, Style: &amount},
	}

	var b strings.Builder
	for i, name := range sections {
		sec, ok := rep.Section(name)
		if !ok {
			continue
		}
		if i > 0 {
			b.WriteString("\n")
		}

		shown := sec.Limit(limit)
		b.WriteString(t.Title.Render(strings.ToUpper(name)))
		b.WriteString(t.Muted.Render(fmt.Sprintf(" %d of %d validators", len(shown), len(sec))))
		b.WriteString("\n\n")

		if len(shown) == 0 {
			b.WriteString(t.Muted.Render("no nominated validators"))
			b.WriteString("\n")
			continue
		}

		rows := make([][]string, len(shown))
		for j, e := range shown {
			rows[j] = []string{
				strconv.Itoa(j + 1),
				string(e.Validator),
				e.Name,
				strconv.Itoa(e.Nominators),
				Thousands(e.TotalBondedBalance.String()),
			}
		}
		b.WriteString(Table(t, columns, rows))
	}

	if !rep.GeneratedAt.IsZero() {
		b.WriteString("\n")
		b.WriteString(t.Muted.Render(fmt.Sprintf(
			"generated %s · %d nominators · %d balance misses",
			rep.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"),
			rep.Stats.Nominators,
			rep.Stats.BalanceMisses,
		)))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderIdentities renders the validator to display-name listing.
func RenderIdentities(t *Theme, names []report.NamedValidator) string {
	columns := []Column{
		{Header: "VALIDATOR"},
		{Header: "NAME"},
		{Header: "RESOLVED"},
	}
	rows := make([][]string, len(names))
	for i, n := range names {
		resolved := "no"
		if n.Resolved {
			resolved = "yes"
		}
		rows[i] = []string{string(n.Validator), n.Name, resolved}
	}
	return t.Header.Render("Validator identities") + "\n\n" + Table(t, columns, rows)
}
