package agent_test

import (
	"context"
	"testing"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/netzbremse/nb-speedtest/pkg/agent"
	"github.com/netzbremse/nb-speedtest/pkg/prob"
)

type fakeSpec struct {
	Outcome string `json:"outcome"`
}

// fakeRunFn plays the outcome its spec asks for; "hang" blocks until the
// attempt context is closed, the way a stuck measurement would.
func fakeRunFn(ctx context.Context, probSpec any, _ prob.RunOptions, _ *prometheus.Registry, _ kitlog.Logger) (prob.RunStatus, []prob.Artifact, error) {
	spec := probSpec.(*fakeSpec)

	switch spec.Outcome {
	case "hang":
		<-ctx.Done()
		return prob.RunNotFinished, nil, nil
	case "failed":
		return prob.RunFinishedFailed, nil, nil
	}

	report := []byte(`{"success":true,"sessionID":"s-1","endpoint":"https://example.com","result":{"download":1000000,"upload":500000,"latency":10,"jitter":1}}`)
	return prob.RunFinishedSuccess, []prob.Artifact{
		{Rel: "report", MimeType: "application/json", Content: report},
	}, nil
}

func registerFakeKind(t *testing.T) prob.Kind {
	t.Helper()

	kind := prob.Kind("fake")
	require.NoError(t, prob.RegisterProbKind(kind, &fakeSpec{}, prob.ProbRegistration{
		RunFunc: fakeRunFn,
		Version: "test",
	}))
	t.Cleanup(func() { prob.UnregisterProbKind(kind) })

	return kind
}

func runnerConfig() agent.Config {
	cfg := validConfig()
	cfg.Prob = "fake"
	cfg.SkipPrecheck = true

	return cfg
}

func TestNewManifestRunner_UnknownKind(t *testing.T) {
	_, err := agent.NewManifestRunner(runnerConfig(), prob.Manifest{Kind: prob.Kind("no-such-prober")})
	require.Error(t, err)
}

func TestProbRunner_Attempt(t *testing.T) {
	kind := registerFakeKind(t)

	testCases := map[string]struct {
		manifest     prob.Manifest
		expectStatus prob.RunStatus
	}{
		"success": {
			manifest:     prob.Manifest{Kind: kind},
			expectStatus: prob.RunFinishedSuccess,
		},
		"failed": {
			manifest:     prob.Manifest{Kind: kind, Spec: &fakeSpec{Outcome: "failed"}},
			expectStatus: prob.RunFinishedFailed,
		},
		"deadline-tears-down-a-stuck-run": {
			manifest:     prob.Manifest{Kind: kind, Timeout: 50 * time.Millisecond, Spec: &fakeSpec{Outcome: "hang"}},
			expectStatus: prob.RunFinishedTimeout,
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			runner, err := agent.NewManifestRunner(runnerConfig(), test.manifest)
			require.NoError(t, err)

			report := runner.Attempt(context.Background())
			require.Equal(t, test.expectStatus, report.Status)
			require.False(t, report.Started.IsZero())
		})
	}
}

func TestProbRunner_ReportExtraction(t *testing.T) {
	kind := registerFakeKind(t)

	runner, err := agent.NewManifestRunner(runnerConfig(), prob.Manifest{Kind: kind})
	require.NoError(t, err)

	report := runner.Attempt(context.Background())
	require.Equal(t, prob.RunFinishedSuccess, report.Status)
	require.True(t, report.Report.Success)
	require.Equal(t, "s-1", report.Report.SessionID)
	require.NotNil(t, report.Report.Result)
	require.Equal(t, 1_000_000.0, report.Report.Result.Download)
}

func TestProbRunner_ShutdownClassifiedAsCanceled(t *testing.T) {
	kind := registerFakeKind(t)

	runner, err := agent.NewManifestRunner(runnerConfig(), prob.Manifest{Kind: kind, Spec: &fakeSpec{Outcome: "hang"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	report := runner.Attempt(ctx)
	require.Equal(t, prob.RunFinishedCanceled, report.Status)
	require.False(t, report.Report.Success)
}
