package netcheck

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/go-kit/log"
	bxconfig "github.com/prometheus/blackbox_exporter/config"
	"github.com/prometheus/blackbox_exporter/prober"
	promconfig "github.com/prometheus/common/config"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
)

const (
	Kind           = prob.Kind("netcheck")
	ScriptMimeType = "application/yaml"
)

// Spec is a plain reachability probe of the measurement target. The agent
// runs it before a browser attempt so an offline link fails fast instead of
// paying the cost of launching chromium into a timeout.
type Spec struct {
	Target string             `json:"target,omitempty" yaml:"target,omitempty"`
	HTTP   bxconfig.HTTPProbe `json:"http" yaml:"http"`
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
		})
}

// Check probes the target with sane defaults, for callers that have no
// manifest of their own.
func Check(ctx context.Context, target string, registry *prometheus.Registry, logger log.Logger) (prob.RunStatus, error) {
	status, _, err := RunScript(ctx,
		&Spec{
			HTTP: bxconfig.HTTPProbe{
				IPProtocolFallback: true,
				HTTPClientConfig: promconfig.HTTPClientConfig{
					FollowRedirects: true,
				},
			},
		},
		prob.RunOptions{Target: target},
		registry,
		logger,
	)

	return status, err
}

func RunScript(ctx context.Context, probSpec any, options prob.RunOptions, registry *prometheus.Registry, logger log.Logger) (prob.RunStatus, []prob.Artifact, error) {
	spec, ok := probSpec.(*Spec)
	if !ok {
		return prob.RunFinishedError, nil, fmt.Errorf("%w: got %q, expected %q", prob.ErrUnexpectedSpecType, reflect.TypeOf(probSpec), reflect.TypeOf(&Spec{}))
	}

	target := spec.Target
	if target == "" {
		target = options.Target
	}
	if target == "" {
		return prob.RunFinishedError, nil, prob.ErrNoTarget
	}

	if success := prober.ProbeHTTP(ctx, target, bxconfig.Module{HTTP: spec.HTTP}, registry, logger); !success {
		return prob.RunFinishedFailed, nil, nil
	}

	return prob.RunFinishedSuccess, nil, nil
}
