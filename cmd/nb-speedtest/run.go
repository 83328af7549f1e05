package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netzbremse/nb-speedtest/pkg/agent"
	"github.com/netzbremse/nb-speedtest/pkg/prob"
)

type RunCmd struct {
	agent.Config `embed:""`

	File    string `name:"file" help:"A manifest file with the measurement spec to run" short:"f" optional:"" type:"existingfile"`
	SaveHAR bool   `help:"If true, save the HAR recording of the run if one was captured"`
}

func (c *RunCmd) Run(cfg *commandContext) error {
	if err := c.Config.Validate(); err != nil {
		return err
	}

	manifest := prob.Manifest{Kind: prob.Kind(c.Prob)}
	if c.File != "" {
		content, err := os.ReadFile(c.File)
		if err != nil {
			return fmt.Errorf("failed to read manifest file: %w", err)
		}

		if err := yaml.Unmarshal(content, &manifest); err != nil {
			return fmt.Errorf("failed to parse manifest file: %w", err)
		}
	}

	runner, err := agent.NewManifestRunner(c.Config, manifest)
	if err != nil {
		return err
	}

	report := runner.Attempt(cfg.Context)
	log.Printf("measurement finished: %q in %v", report.Status, report.Duration.Round(time.Millisecond))

	if c.SaveHAR {
		for _, artifact := range report.Artifacts {
			if artifact.Rel != "har" {
				continue
			}

			filename := fmt.Sprintf("run-%v.har", report.Started.UTC().Format("2006-01-02T15-04-05"))
			if err := os.WriteFile(filename, artifact.Content, 0644); err != nil {
				return fmt.Errorf("failed to write HAR artifact: %w", err)
			}
			log.Print("HAR recording saved as ", filename)
		}
	}

	if err := cfg.OutputFormatter(report.Report); err != nil {
		return err
	}

	if report.Status != prob.RunFinishedSuccess {
		return fmt.Errorf("measurement %v", report.Status)
	}

	return nil
}
