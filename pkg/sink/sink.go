package sink

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

// Sink consumes a finished measurement. Sinks are best-effort: a sink error
// is logged and swallowed, it never fails the attempt that produced the data.
type Sink interface {
	Name() string
	Submit(ctx context.Context, report speedtest.RunReport) error
}

// Dispatcher fans a report out to every configured sink on detached
// goroutines, so sink latency never reaches the scheduling loop.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
	}
}

func (d *Dispatcher) Dispatch(report speedtest.RunReport) {
	for _, s := range d.sinks {
		s := s
		d.wg.Add(1)

		go func() {
			defer d.wg.Done()

			// Detached from the loop context: a shutdown should not cut off
			// a submission that is already in flight.
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := s.Submit(ctx, report); err != nil {
				log.Printf("failed to submit results to %q: %v", s.Name(), err)
			}
		}()
	}
}

// Wait blocks until all in-flight submissions are done. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
