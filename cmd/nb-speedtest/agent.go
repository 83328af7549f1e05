package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netzbremse/nb-speedtest/pkg/agent"
	"github.com/netzbremse/nb-speedtest/pkg/history"
	"github.com/netzbremse/nb-speedtest/pkg/sink"
)

// ErrRetryBudgetExhausted is the terminal outcome of repeated transient
// failures; it turns into a non-zero process exit.
var ErrRetryBudgetExhausted = fmt.Errorf("too many consecutive failed measurements, giving up")

const sinkSubmitTimeout = time.Minute

type AgentCmd struct {
	agent.Config `embed:""`
}

func (c *AgentCmd) Run(cfg *commandContext) error {
	if err := c.Config.Validate(); err != nil {
		return err
	}

	labels := agent.DetectRuntimeLabels()
	log.Print("starting measurement agent, runtime: ", labels)
	log.Printf("target: %v, prober: %v, interval: %v", c.TargetURL, c.Prob, c.Interval())

	runner, err := agent.NewProbRunner(c.Config)
	if err != nil {
		return err
	}

	sinks, err := buildSinks(c.Config, labels)
	if err != nil {
		return err
	}
	dispatcher := sink.NewDispatcher(sinkSubmitTimeout, sinks...)

	agent.StartMonitoring(c.ListenAddress)

	scheduler := agent.NewScheduler(c.Config, runner, dispatcher, agent.NewMetrics(prometheus.DefaultRegisterer))
	code := scheduler.Run(cfg.Context)

	// Let in-flight submissions drain before the process goes away
	dispatcher.Wait()

	if code != agent.ExitOk {
		return ErrRetryBudgetExhausted
	}

	return nil
}

func buildSinks(cfg agent.Config, labels agent.Labels) ([]sink.Sink, error) {
	sinks := make([]sink.Sink, 0, 3)

	if cfg.JsonOutDir != "" {
		sinks = append(sinks, sink.NewJSONDir(cfg.JsonOutDir, cfg.KeepArtifacts))
	}

	if cfg.CollectorURL != "" {
		collector, err := sink.NewCollector(cfg.CollectorURL, agentName(cfg), cfg.CollectorSecret, labels)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, collector)
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, store)
	}

	if len(sinks) == 0 {
		log.Print("no output configured, measurements will only be logged")
	}

	return sinks, nil
}

func agentName(cfg agent.Config) string {
	if cfg.AgentName != "" {
		return cfg.AgentName
	}

	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}

	return "nb-speedtest"
}
