package cmd

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	return t
}

func renderResolutions(w io.Writer, rows []resolution) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Notation", "Module", "Repository", "Changing", "Checksum", "Path"})
	for _, r := range rows {
		sum := string(r.Artifact.Checksum)
		if sum == "" {
			sum = "-"
		}
		t.AppendRow(table.Row{r.Notation, r.Module.ID.String(), r.Repository, strconv.FormatBool(r.Module.Changing), sum, r.Artifact.Path})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
	})
	t.Render()
}

func renderVersions(w io.Writer, rows []listedVersion) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Repository", "Version"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Repository, r.Version})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	t.Render()
}
