package browser_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
	"github.com/netzbremse/nb-speedtest/pkg/probers/browser"
)

// stubTool places a fake executable on PATH that blocks until killed, the
// way npm behaves on a host with no network.
func stubTool(t *testing.T, name string) {
	t.Helper()

	binDir := t.TempDir()
	script := "#!/bin/sh\nexec sleep 30\n"
	require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte(script), 0755))

	// Shadows the real tool while keeping sh and sleep resolvable
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRunScript_EnvSetupHonorsDeadline(t *testing.T) {
	stubTool(t, "npm")

	workDir := t.TempDir() // no package.json, so the run starts with npm setup

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	started := time.Now()
	status, artifacts, err := browser.RunScript(ctx, &browser.Spec{}, prob.RunOptions{
		Target: "https://speed.cloudflare.com",
		Browser: prob.BrowserOptions{
			WorkingDirectory: workDir,
			TempDirPrefix:    "run-",
		},
	}, prometheus.NewRegistry(), log.NewNopLogger())

	// The deadline must tear npm down, not wait out its 30 seconds
	require.Less(t, time.Since(started), 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, prob.RunFinishedTimeout, status)
	require.NotEmpty(t, artifacts, "expected the run log artifact")
}

func TestRunScript_EnvSetupHonorsShutdown(t *testing.T) {
	stubTool(t, "npm")

	workDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	status, _, err := browser.RunScript(ctx, &browser.Spec{}, prob.RunOptions{
		Target: "https://speed.cloudflare.com",
		Browser: prob.BrowserOptions{
			WorkingDirectory: workDir,
			TempDirPrefix:    "run-",
		},
	}, prometheus.NewRegistry(), log.NewNopLogger())

	require.Less(t, time.Since(started), 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, prob.RunFinishedCanceled, status)
}
