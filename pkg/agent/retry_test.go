package agent_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netzbremse/nb-speedtest/pkg/agent"
	"github.com/netzbremse/nb-speedtest/pkg/prob"
)

func TestNextDelay(t *testing.T) {
	cfg := agent.Config{
		IntervalSeconds:      3600,
		RetryIntervalSeconds: 900,
	}

	testCases := map[string]struct {
		given  prob.RunStatus
		expect time.Duration
	}{
		"success-full-interval": {given: prob.RunFinishedSuccess, expect: time.Hour},
		"failed-retry-interval": {given: prob.RunFinishedFailed, expect: 15 * time.Minute},
		"errored":               {given: prob.RunFinishedError, expect: 15 * time.Minute},
		"timeout":               {given: prob.RunFinishedTimeout, expect: 15 * time.Minute},
		"canceled":              {given: prob.RunFinishedCanceled, expect: 15 * time.Minute},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.expect, agent.NextDelay(test.given, cfg))

			// Same inputs, same answer: no hidden state or jitter
			require.Equal(t, test.expect, agent.NextDelay(test.given, cfg))
		})
	}
}

func TestShouldTerminate(t *testing.T) {
	testCases := map[string]struct {
		failures int
		budget   int
		expect   bool
	}{
		"fresh":            {failures: 0, budget: 3, expect: false},
		"under-budget":     {failures: 2, budget: 3, expect: false},
		"budget-spent":     {failures: 3, budget: 3, expect: true},
		"over-budget":      {failures: 4, budget: 3, expect: true},
		"single-retry":     {failures: 1, budget: 1, expect: true},
		"single-retry-new": {failures: 0, budget: 1, expect: false},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			cfg := agent.Config{RetryCount: test.budget}
			require.Equal(t, test.expect, agent.ShouldTerminate(test.failures, cfg))
		})
	}
}

func TestNextCronDelay(t *testing.T) {
	now := time.Date(2024, time.March, 10, 11, 30, 0, 0, time.UTC)

	testCases := map[string]struct {
		schedule    string
		expect      time.Duration
		expectError bool
	}{
		"hourly":       {schedule: "0 * * * *", expect: 30 * time.Minute},
		"daily":        {schedule: "0 0 * * *", expect: 12*time.Hour + 30*time.Minute},
		"not-a-cron":   {schedule: "once in a blue moon", expectError: true},
		"empty-string": {schedule: "", expectError: true},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			got, err := agent.NextCronDelay(test.schedule, now)
			if test.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, test.expect, got)
			}
		})
	}
}
