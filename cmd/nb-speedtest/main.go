package main

import (
	"context"
	"log"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/netzbremse/nb-speedtest/pkg/grace"

	_ "github.com/netzbremse/nb-speedtest/pkg/probers/browser"
	_ "github.com/netzbremse/nb-speedtest/pkg/probers/netcheck"
	_ "github.com/netzbremse/nb-speedtest/pkg/probers/webtiming"
)

type commandContext struct {
	OutputFormatter formatter
	Context         context.Context
}

type outputFormat string

func (f outputFormat) AfterApply(cfg *commandContext) (err error) {
	cfg.OutputFormatter, err = getFormatter(f)
	return err
}

var appCli struct {
	Format outputFormat `enum:"yaml,yml,json" help:"Data output format" default:"yml"`

	Agent   AgentCmd   `cmd:"" default:"withargs" help:"Run the measurement loop unattended"`
	Run     RunCmd     `cmd:"" help:"Run a single measurement and print the report"`
	History HistoryCmd `cmd:"" help:"Show recorded measurements from the local history"`
	Probs   ProbsCmd   `cmd:"" help:"List compiled-in prober kinds"`
}

func main() {
	log.SetFlags(0)

	// Unattended installs keep their settings in an env file next to the binary
	_ = godotenv.Load()

	mainContext := grace.SetupSignalHandler()
	cfg := &commandContext{
		Context:         mainContext,
		OutputFormatter: yamlFormatter,
	}

	appCtx := kong.Parse(&appCli,
		kong.Name("nb-speedtest"),
		kong.Description("Netzbremse agent: periodically measures the link through a browser-rendered speed test and reports the results"),
		kong.Bind(cfg),
	)

	appCtx.FatalIfErrorf(appCtx.Run(cfg))
}
