package main

import (
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
)

type ProbsCmd struct {
}

func (c *ProbsCmd) Run(cfg *commandContext) error {
	probs := prob.ListProbs()

	kinds := make([]prob.Kind, 0, len(probs))
	for kind := range probs {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Kind", "Version", "Report Type", "Produces"})
	for _, kind := range kinds {
		info := probs[kind]
		t.AppendRow(table.Row{
			kind,
			info.Version,
			info.ContentType,
			strings.Join(info.Produce, ", "),
		})
	}
	t.Render()

	return nil
}
