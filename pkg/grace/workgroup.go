package grace

import "sync"

// Workgroup runs tasks on at most `limit` goroutines, remembering the first
// error encountered. Unlike errgroup it never cancels in-flight tasks: work
// dispatched here is best-effort and each task is expected to fail on its own.
type Workgroup struct {
	sem chan struct{}
	wg  sync.WaitGroup

	once sync.Once
	err  error
}

func NewWorkgroup(limit int) *Workgroup {
	if limit < 1 {
		limit = 1
	}

	return &Workgroup{
		sem: make(chan struct{}, limit),
	}
}

func (g *Workgroup) Go(task func() error) {
	g.wg.Add(1)
	g.sem <- struct{}{}

	go func() {
		defer g.wg.Done()
		defer func() { <-g.sem }()

		if err := task(); err != nil {
			g.once.Do(func() { g.err = err })
		}
	}()
}

// Wait blocks until all dispatched tasks finished and returns the first error.
func (g *Workgroup) Wait() error {
	g.wg.Wait()
	return g.err
}
