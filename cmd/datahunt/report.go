package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"datahunt/internal/agent"
	"datahunt/pkg/types"
)

func renderReport(w io.Writer, report agent.Report) {
	if report.RunID == "" {
		return
	}
	fmt.Fprintf(w, "run %s: %q\n", report.RunID, report.Query)
	for _, attempt := range report.Attempts {
		fmt.Fprintf(w, "\nstart %s -> %s", attempt.StartURL, attempt.Outcome.Kind)
		if attempt.Cause != "" {
			fmt.Fprintf(w, " (%s)", attempt.Cause)
		}
		fmt.Fprintln(w)
		renderTrail(w, attempt.Outcome.Trail)
	}
	if report.Download != nil {
		fmt.Fprintf(w, "\ndownloaded %s to %s (%d bytes)\n", report.Download.URL, report.Download.Path, report.Download.Bytes)
		return
	}
	fmt.Fprintln(w, "\nno data file downloaded")
}

func renderTrail(w io.Writer, trail []types.Hop) {
	if len(trail) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Depth", "Kind", "URL", "Note"})
	for i, hop := range trail {
		note := hop.Error
		if note == "" && hop.Extension != "" {
			note = "." + hop.Extension
		}
		t.AppendRow(table.Row{i + 1, hop.Depth, hop.Kind, hop.URL, note})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 80},
		{Number: 5, WidthMax: 40},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
