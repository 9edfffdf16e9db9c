// Package report renders run results: console lines, the results file and
// the summary.
package report

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"

	"rcheck/internal/pipeline"
	"rcheck/internal/recognition"
)

const (
	StatusWidth  = 3
	ServiceWidth = 40
)

// Legend explains the status codes.
const Legend = "C=Copyrighted F=Free U=Unknown"

// Header returns the column header printed above the results.
func Header() string {
	return fmt.Sprintf("%s | %s | File", runewidth.FillRight("Status", StatusWidth), runewidth.FillRight("Service", ServiceWidth))
}

// Console formats final status lines, optionally in color.
type Console struct {
	info  *color.Color
	files map[recognition.Status]*color.Color
	on    bool
}

// NewConsole creates a formatter. With colorize false lines are plain.
func NewConsole(colorize bool) *Console {
	c := &Console{
		info: color.New(color.FgHiBlue),
		files: map[recognition.Status]*color.Color{
			recognition.Copyrighted: color.New(color.FgRed),
			recognition.Free:        color.New(color.FgGreen),
			recognition.Unknown:     color.New(color.FgYellow),
		},
		on: colorize,
	}
	if colorize {
		c.info.EnableColor()
		for _, fc := range c.files {
			fc.EnableColor()
		}
	}
	return c
}

// Line renders "<status> | <service> | <file>" padded to the column widths.
func (c *Console) Line(o pipeline.Outcome) string {
	status := runewidth.FillRight(o.Result.Status.Code(), StatusWidth)
	service := runewidth.FillRight(o.Result.Service, ServiceWidth)
	file := o.File
	if c.on {
		status = c.info.Sprint(status)
		service = c.info.Sprint(service)
		file = c.files[o.Result.Status].Sprint(file)
	}
	return status + " | " + service + " | " + file
}

// FormatLine renders the unpadded results-file line.
func FormatLine(o pipeline.Outcome) string {
	return fmt.Sprintf("%s | %s | %s", o.Result.Status.Code(), o.Result.Service, o.File)
}

// WriteFile writes one line per outcome to path, in the given order. The
// file is locked while it is rewritten.
func WriteFile(path string, outcomes []pipeline.Outcome) error {
	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock results file %s: %w", path, err)
	}
	defer lock.Unlock()

	var b strings.Builder
	for _, o := range outcomes {
		b.WriteString(FormatLine(o))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// SummaryTable renders per-provider counts with a totals footer.
func SummaryTable(outcomes []pipeline.Outcome) string {
	type counts struct{ c, f, u int }
	var order []recognition.Kind
	byKind := make(map[recognition.Kind]*counts)
	for _, o := range outcomes {
		n, ok := byKind[o.Provider]
		if !ok {
			n = &counts{}
			byKind[o.Provider] = n
			order = append(order, o.Provider)
		}
		switch o.Result.Status {
		case recognition.Copyrighted:
			n.c++
		case recognition.Free:
			n.f++
		default:
			n.u++
		}
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Provider", "Copyrighted", "Free", "Unknown", "Total"})
	for _, k := range order {
		n := byKind[k]
		tw.AppendRow(table.Row{string(k), n.c, n.f, n.u, n.c + n.f + n.u})
	}
	sum := pipeline.Summarize(outcomes)
	tw.AppendFooter(table.Row{"all", strconv.Itoa(sum.Copyrighted), strconv.Itoa(sum.Free), strconv.Itoa(sum.Unknown), strconv.Itoa(sum.Total)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}
