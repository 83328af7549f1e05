package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
	"github.com/netzbremse/nb-speedtest/pkg/probers/netcheck"
	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

// TestRunner performs one complete measurement attempt: environment setup,
// execution, result collection and teardown. Opaque to the scheduler, which
// only looks at the outcome.
type TestRunner interface {
	Attempt(ctx context.Context) speedtest.RunReport
}

// ProbRunner executes attempts through a registered prober kind.
type ProbRunner struct {
	runFn   prob.RunFn
	spec    any
	options prob.RunOptions

	timeout      time.Duration
	precheck     bool
	registryOpts prob.RegistryOptions

	logger kitlog.Logger
}

func NewProbRunner(cfg Config) (*ProbRunner, error) {
	return NewManifestRunner(cfg, prob.Manifest{Kind: prob.Kind(cfg.Prob)})
}

// NewManifestRunner builds a runner for an explicit measurement manifest.
// A manifest timeout only ever tightens the agent-wide one.
func NewManifestRunner(cfg Config, manifest prob.Manifest) (*ProbRunner, error) {
	runFn, ok := prob.FindRunFunc(manifest.Kind)
	if !ok {
		return nil, fmt.Errorf("unsupported prober kind: %q", manifest.Kind)
	}

	spec := manifest.Spec
	if spec == nil {
		instance, err := prob.InstanceOf(manifest.Kind)
		if err != nil {
			return nil, err
		}
		spec = instance
	}

	timeout := cfg.Timeout()
	if manifest.Timeout != 0 && manifest.Timeout < timeout {
		timeout = manifest.Timeout
	}

	return &ProbRunner{
		runFn: runFn,
		spec:  spec,
		options: prob.RunOptions{
			Target: cfg.TargetURL,
			Browser: prob.BrowserOptions{
				Headless:         cfg.Headless,
				PageWaitSeconds:  cfg.PageWaitSeconds,
				WorkingDirectory: cfg.WorkingDirectory,
				KeepTempDir:      cfg.KeepTempDir,
				TempDirPrefix:    "run-",
			},
		},
		timeout:  timeout,
		precheck: !cfg.SkipPrecheck && manifest.Kind == prob.Kind("browser"),
		registryOpts: prob.RegistryOptions{
			EnableOpenMetrics: cfg.OpenMetrics,
			Compression:       prob.Compression(cfg.MetricsCompression),
		},
		logger: kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr)),
	}, nil
}

// Attempt runs one measurement under the configured deadline. The deadline,
// completion and an external shutdown all resolve through the one attempt
// context, so exactly one outcome is recorded per attempt.
func (r *ProbRunner) Attempt(ctx context.Context) speedtest.RunReport {
	report := speedtest.RunReport{
		Started: time.Now(),
		Status:  prob.RunFinishedError,
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	registry := prometheus.NewRegistry()

	if r.precheck {
		if status, err := netcheck.Check(attemptCtx, r.options.Target, registry, r.logger); status != prob.RunFinishedSuccess {
			report.Status = classify(attemptCtx, status, nil)
			report.Duration = time.Since(report.Started)
			report.Report = speedtest.Report{
				Endpoint: r.options.Target,
				Error:    fmt.Sprintf("target unreachable (%v)", err),
			}

			return report
		}
	}

	status, artifacts, err := r.runFn(attemptCtx, r.spec, r.options, registry, r.logger)

	report.Status = classify(attemptCtx, status, err)
	report.Duration = time.Since(report.Started)
	report.Artifacts = artifacts
	report.Report = extractReport(artifacts, r.options.Target, report.Status, err)

	// Probe metrics ride along as one more artifact
	if metricsArtifact, merr := prob.MetricsArtifact(registry, r.registryOpts); merr == nil && len(metricsArtifact.Content) > 0 {
		report.Artifacts = append(report.Artifacts, metricsArtifact)
	}

	return report
}

// classify settles the race between prober completion, the attempt deadline
// and an external shutdown into a single final status.
func classify(ctx context.Context, status prob.RunStatus, err error) prob.RunStatus {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) && status != prob.RunFinishedSuccess:
		return prob.RunFinishedTimeout
	case ctx.Err() != nil && status != prob.RunFinishedSuccess:
		return prob.RunFinishedCanceled
	case status == prob.RunNotFinished || err != nil && status != prob.RunFinishedSuccess:
		return prob.RunFinishedError
	}

	return status
}

// extractReport recovers the measurement document a prober left among its
// artifacts, or builds a minimal failure report when there is none.
func extractReport(artifacts []prob.Artifact, endpoint string, status prob.RunStatus, err error) speedtest.Report {
	for _, artifact := range artifacts {
		if artifact.Rel != "report" {
			continue
		}

		var report speedtest.Report
		if jsonErr := json.Unmarshal(artifact.Content, &report); jsonErr == nil {
			return report
		}
	}

	report := speedtest.Report{
		Success:  status == prob.RunFinishedSuccess,
		Endpoint: endpoint,
	}
	if err != nil {
		report.Error = err.Error()
	} else if status != prob.RunFinishedSuccess {
		report.Error = fmt.Sprintf("measurement %v", status)
	}

	return report
}
