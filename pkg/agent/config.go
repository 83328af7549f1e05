package agent

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/netzbremse/nb-speedtest/pkg/grace"
)

const DefaultTargetURL = "https://speed.cloudflare.com"

var ErrPolicyNotAccepted = grace.RaiseError(
	"NB_SPEEDTEST_ACCEPT_POLICY=true",
	"measurement policy not accepted",
	"read the measurement target's terms of use and set NB_SPEEDTEST_ACCEPT_POLICY=true to accept them",
)

// Config is the complete runtime configuration of the agent, loaded once at
// startup. Interval values are plain seconds to keep env files trivial.
type Config struct {
	AcceptPolicy bool `help:"Affirm that the measurement target's terms of use are accepted. Required." env:"NB_SPEEDTEST_ACCEPT_POLICY"`

	IntervalSeconds      int    `help:"Seconds between successful measurements; 0 runs exactly once" env:"NB_SPEEDTEST_INTERVAL" default:"3600"`
	TimeoutSeconds       int    `help:"Maximum seconds per attempt before it is torn down" env:"NB_SPEEDTEST_TIMEOUT" default:"3600"`
	RetryIntervalSeconds int    `help:"Seconds to wait after a failed attempt" env:"NB_SPEEDTEST_RETRY_INTERVAL" default:"900"`
	RetryCount           int    `help:"Consecutive failures tolerated before the agent gives up" env:"NB_SPEEDTEST_RETRY_COUNT" default:"3"`
	CronSchedule         string `help:"Cron expression replacing the fixed interval between successful measurements" env:"NB_SPEEDTEST_CRON"`

	TargetURL string `help:"Speed-test endpoint to measure" env:"NB_SPEEDTEST_URL" default:"https://speed.cloudflare.com"`
	Prob      string `help:"Prober kind that performs the measurement" env:"NB_SPEEDTEST_PROB" default:"browser"`

	JsonOutDir      string `help:"Directory measurement reports are written into; empty disables local reports" env:"NB_SPEEDTEST_JSON_OUT_DIR"`
	KeepArtifacts   bool   `help:"Also write captured recordings (HAR, logs) next to local reports" env:"NB_SPEEDTEST_KEEP_ARTIFACTS"`
	CollectorURL    string `help:"Remote collector to submit reports to; empty disables submission" env:"NB_SPEEDTEST_COLLECTOR_URL"`
	CollectorSecret string `help:"Shared secret for authenticated collector submissions" env:"NB_SPEEDTEST_COLLECTOR_SECRET"`
	HistoryDB       string `help:"Path of the local run-history database; empty disables history" env:"NB_SPEEDTEST_HISTORY_DB"`
	ListenAddress   string `help:"Address to serve /healthz and /metrics on; empty disables the endpoint" env:"NB_SPEEDTEST_LISTEN"`

	MetricsCompression string `help:"Compression of the metrics artifact stored with each report" env:"NB_SPEEDTEST_METRICS_COMPRESSION" enum:"identity,zstd" default:"identity"`
	OpenMetrics        bool   `help:"Serialize the metrics artifact in OpenMetrics format" env:"NB_SPEEDTEST_OPENMETRICS"`

	WorkingDirectory string `help:"Worker directory where measurements are executed" env:"NB_SPEEDTEST_WORK_DIR" default:"./worker"`
	KeepTempDir      bool   `help:"Keep per-run temporary directories for debugging" env:"NB_SPEEDTEST_KEEP_TEMP"`
	Headless         bool   `help:"Run the browser in headless mode" env:"NB_SPEEDTEST_HEADLESS" default:"true" negatable:""`
	PageWaitSeconds  int    `help:"Extra seconds to let the measurement page settle" env:"NB_SPEEDTEST_PAGE_WAIT"`
	SkipPrecheck     bool   `help:"Skip the reachability precheck before browser measurements" env:"NB_SPEEDTEST_SKIP_PRECHECK"`

	AgentName string `help:"Name this agent reports to the collector" env:"NB_SPEEDTEST_AGENT_NAME"`
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalSeconds) * time.Second
}

// Validate checks the configuration before the first attempt. Policy
// acceptance is a hard precondition: without it no measurement is ever
// started.
func (c Config) Validate() error {
	if !c.AcceptPolicy {
		return ErrPolicyNotAccepted
	}

	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("attempt timeout must be positive, got %d", c.TimeoutSeconds)
	}

	if c.RetryCount < 1 {
		return fmt.Errorf("retry count must be at least 1, got %d", c.RetryCount)
	}

	if c.IntervalSeconds < 0 || c.RetryIntervalSeconds < 0 {
		return fmt.Errorf("intervals must not be negative")
	}

	if c.TargetURL == "" {
		return fmt.Errorf("no measurement target configured")
	}

	if c.CronSchedule != "" && !gronx.New().IsValid(c.CronSchedule) {
		return fmt.Errorf("unparsable cron schedule: %q", c.CronSchedule)
	}

	return nil
}
