package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/trebsim/internal/config"
)

// Ensemble runs independent simulations concurrently, each owned by its own
// goroutine.
type Ensemble struct {
	configs []*config.SimulationConfig
	workers int
	opts    []Option
}

// NewEnsemble runs one simulation per config from its at-rest state. At most
// workers run at once; workers < 1 means one per config.
func NewEnsemble(configs []*config.SimulationConfig, workers int, opts ...Option) *Ensemble {
	return &Ensemble{configs: configs, workers: workers, opts: opts}
}

// Run returns results in config order. A failed run leaves a nil result and
// its error; the first error is also returned.
func (e *Ensemble) Run(ctx context.Context, rc RunConfig) ([]*Result, []error, error) {
	if err := rc.validate(); err != nil {
		return nil, nil, err
	}

	n := len(e.configs)
	results := make([]*Result, n)
	errs := make([]error, n)

	workers := e.workers
	if workers < 1 || workers > n {
		workers = n
	}
	sem := make(chan struct{}, max(workers, 1))

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			defer func() {
				if r := recover(); r != nil {
					errs[idx] = &PanicError{Index: idx, Value: r}
				}
			}()

			s := New(nil, e.configs[idx], e.opts...)
			results[idx], errs[idx] = s.Run(ctx, rc)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, errs, err
		}
	}
	return results, errs, nil
}

// PanicError reports a run that panicked.
type PanicError struct {
	Index int
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("run %d panicked: %v", p.Index, p.Value)
}
