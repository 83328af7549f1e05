package agent

import (
	"context"
	"log"
	"time"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
	"github.com/netzbremse/nb-speedtest/pkg/sink"
)

// Process exit codes. Failure covers both a spent retry budget and startup
// configuration errors; a shutdown by signal is a clean exit.
const (
	ExitOk      = 0
	ExitFailure = 1
)

// Scheduler owns the measure/wait cycle for the process lifetime: when to
// run, how long to let an attempt live and when to give up. The only state
// it carries across attempts is the consecutive-failure count.
type Scheduler struct {
	cfg     Config
	runner  TestRunner
	results *sink.Dispatcher
	metrics *Metrics

	consecutiveFailures int
}

func NewScheduler(cfg Config, runner TestRunner, results *sink.Dispatcher, metrics *Metrics) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		runner:  runner,
		results: results,
		metrics: metrics,
	}
}

// Run drives attempts until oneshot success, budget exhaustion or shutdown
// and returns the process exit code. Attempts never overlap: the loop is the
// single thread of control and waits for each outcome before deciding.
func (s *Scheduler) Run(ctx context.Context) int {
	for {
		report := s.runner.Attempt(ctx)
		s.metrics.ObserveAttempt(report)

		if ctx.Err() != nil {
			log.Print("shutdown requested, stopping")
			return ExitOk
		}

		switch {
		case report.Status == prob.RunFinishedSuccess:
			s.consecutiveFailures = 0
			s.metrics.SetConsecutiveFailures(0)
			log.Printf("measurement complete in %v", report.Duration.Round(time.Millisecond))

			s.results.Dispatch(report)

			if s.cfg.IntervalSeconds == 0 {
				log.Print("oneshot measurement done")
				return ExitOk
			}

		case report.Status.Recoverable():
			s.consecutiveFailures++
			s.metrics.SetConsecutiveFailures(s.consecutiveFailures)
			log.Printf("measurement failed (%v), consecutive failures: %d of %d tolerated",
				report.Status, s.consecutiveFailures, s.cfg.RetryCount)

			// Failed attempts are reported too; consumers filter on success
			s.results.Dispatch(report)

			if ShouldTerminate(s.consecutiveFailures, s.cfg) {
				log.Print("retry budget exhausted, giving up")
				return ExitFailure
			}

		default:
			// Canceled: the prober saw the shutdown before the loop did
			log.Print("measurement interrupted, stopping")
			return ExitOk
		}

		delay := s.nextDelay(report.Status)
		log.Printf("next measurement in %v", delay)

		if !s.wait(ctx, delay) {
			log.Print("shutdown requested during wait, stopping")
			return ExitOk
		}
	}
}

func (s *Scheduler) nextDelay(status prob.RunStatus) time.Duration {
	delay := NextDelay(status, s.cfg)

	if status == prob.RunFinishedSuccess && s.cfg.CronSchedule != "" {
		cronDelay, err := NextCronDelay(s.cfg.CronSchedule, time.Now())
		if err != nil {
			// Validated at startup; keep the fixed interval if it turned sour
			log.Printf("unusable cron schedule %q: %v", s.cfg.CronSchedule, err)
		} else {
			delay = cronDelay
		}
	}

	return delay
}

// wait sleeps for the given delay, abandoning the sleep the moment the
// process is told to shut down. Returns false when interrupted.
func (s *Scheduler) wait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
