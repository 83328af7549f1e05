package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

const (
	Kind           = prob.Kind("browser")
	ScriptMimeType = "text/javascript"

	// ReportFileName is where the measurement script leaves its results,
	// relative to the run's working directory.
	ReportFileName = "measurement.json"
)

type Spec struct {
	// Script overrides the bundled measurement script
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

func init() {
	moduleVersion := "devel"
	if bi, ok := debug.ReadBuildInfo(); ok {
		moduleVersion = strings.Trim(bi.Main.Version, "()")
	}

	// Ignore double registration error
	_ = prob.RegisterProbKind(
		Kind,
		&Spec{},
		prob.ProbRegistration{
			RunFunc:     RunScript,
			ContentType: ScriptMimeType,
			Version:     moduleVersion,
			Produce:     []string{"report", "har", "log"},
		})
}

func setupNodeDir(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "npm", "init", "-y")
	cmd.Dir = dir

	return cmd.Run()
}

func installPuppeteer(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "npm", "install", "puppeteer", "puppeteer-har")
	cmd.Dir = dir

	return cmd.Run()
}

// SetupRunEnv prepares the node environment shared by all runs. Installing
// puppeteer downloads a chromium build, so this is done once per working
// directory, not per attempt. Setup runs under the attempt context: a stuck
// npm counts against the same deadline as the measurement itself.
func SetupRunEnv(ctx context.Context, workDir string, logger *prob.RunLog) error {
	if _, err := os.Stat(path.Join(workDir, "package.json")); err == nil {
		return nil
	}

	logger.Logf("Creating node working directory at %q", workDir)
	if err := setupNodeDir(ctx, workDir); err != nil {
		return err
	}

	logger.Logf("installing puppeteer and dependencies into %q", workDir)
	if err := installPuppeteer(ctx, workDir); err != nil {
		return err
	}

	return nil
}

func RunScript(ctx context.Context, probSpec any, options prob.RunOptions, registry *prometheus.Registry, _ log.Logger) (prob.RunStatus, []prob.Artifact, error) {
	spec, ok := probSpec.(*Spec)
	if !ok {
		return prob.RunFinishedError, nil, fmt.Errorf("%w: got %q, expected %q", prob.ErrUnexpectedSpecType, reflect.TypeOf(probSpec), reflect.TypeOf(&Spec{}))
	}

	if options.Target == "" {
		return prob.RunFinishedError, nil, prob.ErrNoTarget
	}

	logger := &prob.RunLog{}
	logger.Log("Running browser measurement against ", options.Target)

	script := spec.Script
	if script == "" {
		script = DefaultScript
	}

	if err := SetupRunEnv(ctx, options.Browser.WorkingDirectory, logger); err != nil {
		logger.Log(fmt.Errorf("failed to initialize work directory: %w", err))
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return prob.RunFinishedTimeout, logger.Package(), nil
		case ctx.Err() != nil:
			return prob.RunFinishedCanceled, logger.Package(), nil
		}

		return prob.RunFinishedError, logger.Package(), nil
	}

	workDir, err := os.MkdirTemp(options.Browser.WorkingDirectory, options.Browser.TempDirPrefix)
	if err != nil {
		logger.Log(fmt.Errorf("failed to create work directory: %w", err))
		return prob.RunFinishedError, logger.Package(), nil
	}

	defer func(dir string, keep bool) {
		if !keep {
			os.RemoveAll(dir)
		}
	}(workDir, options.Browser.KeepTempDir)
	logger.Logf("working directory: %q (will be kept?: %t)", workDir, options.Browser.KeepTempDir)

	// CommandContext kills node (and with it the browser) the moment the
	// attempt deadline fires or the agent is told to shut down.
	cmd := exec.CommandContext(ctx, "node", "-")
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), fmt.Sprintf("NB_SPEEDTEST_URL=%v", options.Target))
	cmd.Env = append(cmd.Env, fmt.Sprintf("NB_SPEEDTEST_HEADLESS=%t", options.Browser.Headless))
	if options.Browser.PageWaitSeconds != 0 {
		cmd.Env = append(cmd.Env, fmt.Sprintf("NB_SPEEDTEST_PAGE_WAIT=%d", options.Browser.PageWaitSeconds))
	}

	inPipe, err := cmd.StdinPipe()
	if err != nil {
		logger.Log(fmt.Errorf("failed to open input pipe: %w", err))
		return prob.RunFinishedError, logger.Package(), nil
	}

	go func() {
		defer inPipe.Close()
		n, err := inPipe.Write([]byte(script))
		if err != nil {
			logger.Log("failed to write script into the nodejs input pipe: ", err)
		}
		logger.Logf("script loaded: %d bytes", n)
	}()

	cmd.Stderr = logger
	cmd.Stdout = logger

	runErr := cmd.Run()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Log("measurement timed out, node subprocess torn down")
		return prob.RunFinishedTimeout, logger.Package(), nil
	case ctx.Err() != nil:
		return prob.RunFinishedCanceled, logger.Package(), nil
	case runErr != nil:
		logger.Log("failed to execute measurement script: ", runErr)
		return prob.RunFinishedError, logger.Package(), nil
	}

	return collectResults(workDir, logger, registry)
}

// collectResults picks up everything the measurement script left in the work
// directory: the report document plus any recordings (HAR and the like).
func collectResults(workDir string, logger *prob.RunLog, registry *prometheus.Registry) (prob.RunStatus, []prob.Artifact, error) {
	artifacts := make([]prob.Artifact, 0)
	runResult := prob.RunFinishedSuccess

	reportData, err := os.ReadFile(filepath.Join(workDir, ReportFileName))
	if err != nil {
		logger.Log("measurement script produced no report: ", err)
		return prob.RunFinishedError, logger.Package(), nil
	}

	var report speedtest.Report
	if err := json.Unmarshal(reportData, &report); err != nil {
		logger.Log("failed to parse measurement report: ", err)
		return prob.RunFinishedError, logger.Package(), nil
	}

	if !report.Success || report.Result == nil {
		logger.Logf("measurement finished unsuccessfully: %v", report.Error)
		runResult = prob.RunFinishedFailed
	} else {
		speedtest.ObserveMetrics(registry, report.Result)
	}

	artifacts = append(artifacts, prob.Artifact{
		Rel:      "report",
		MimeType: "application/json",
		Content:  reportData,
	})

	workDirEntries, err := os.ReadDir(workDir)
	if err != nil {
		logger.Log("Failed to open working directory. No recordings will be captured: ", err)
		return runResult, append(artifacts, logger.ToArtifact()), nil
	}

	for _, entry := range workDirEntries {
		if entry.IsDir() || entry.Name() == ReportFileName || entry.Name() == "package.json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(workDir, entry.Name()))
		if err != nil {
			logger.Log("failed to capture artifact ", entry.Name(), ": ", err)
			continue
		}

		rel := strings.TrimPrefix(filepath.Ext(entry.Name()), ".")
		if rel == "har" {
			if summary, err := SummarizeHAR(data); err != nil {
				logger.Log("captured HAR is not parsable: ", err)
			} else {
				logger.Logf("HAR recording: %v", summary)
			}
		}

		artifacts = append(artifacts, prob.Artifact{
			Rel:      rel,
			MimeType: http.DetectContentType(data),
			Content:  data,
		})
	}

	return runResult, append(artifacts, logger.ToArtifact()), nil
}
