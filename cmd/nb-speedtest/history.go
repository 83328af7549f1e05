package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/netzbremse/nb-speedtest/pkg/history"
)

type HistoryCmd struct {
	HistoryDB string `help:"Path of the history database to read" env:"NB_SPEEDTEST_HISTORY_DB" required:""`
	Limit     int    `help:"Max number of records to show, newest first" default:"24"`
}

func mbps(bitsPerSecond float64) string {
	if bitsPerSecond == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f", bitsPerSecond/1e6)
}

func millis(value float64) string {
	if value == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f", value)
}

func (c *HistoryCmd) Run(cfg *commandContext) error {
	store, err := history.Open(c.HistoryDB)
	if err != nil {
		return err
	}

	records, err := store.Recent(cfg.Context, c.Limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"When", "Status", "Down Mbps", "Up Mbps", "Latency ms", "Jitter ms", "Took"})
	for _, record := range records {
		t.AppendRow(table.Row{
			record.StartedAt.Local().Format(time.DateTime),
			record.Status,
			mbps(record.Download),
			mbps(record.Upload),
			millis(record.Latency),
			millis(record.Jitter),
			(time.Duration(record.DurationMs) * time.Millisecond).Round(time.Second),
		})
	}
	t.Render()

	return nil
}
