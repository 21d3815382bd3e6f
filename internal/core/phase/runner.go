package phase

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Runner executes steps in phase order. Steps of the same phase keep their
// registration order.
type Runner struct {
	steps  []Step
	sorted bool
}

func NewRunner() *Runner {
	return &Runner{
		steps: make([]Step, 0, 8),
	}
}

func (r *Runner) Register(s Step) {
	r.steps = append(r.steps, s)
	r.sorted = false
}

// Run executes every step even when an earlier one fails; the failures are
// returned joined.
func (r *Runner) Run(ctx context.Context) error {
	r.ensureSorted()
	var errs []error
	for _, s := range r.steps {
		if err := s.Run(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", s.Phase(), s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// RunPhase executes only the steps of one phase.
func (r *Runner) RunPhase(ctx context.Context, p Phase) error {
	r.ensureSorted()
	var errs []error
	for _, s := range r.steps {
		if s.Phase() != p {
			continue
		}
		if err := s.Run(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", s.Phase(), s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.steps, func(i, j int) bool {
			return r.steps[i].Phase() < r.steps[j].Phase()
		})
		r.sorted = true
	}
}
