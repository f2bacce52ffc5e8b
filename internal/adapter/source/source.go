// Package source defines the per-archive forecast pipelines and selects them by id.
package source

import (
	"context"
	"fmt"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

// Pipeline turns one day of a forecast archive into a ForecastTable:
// locate, fetch, decode and reduce.
type Pipeline interface {
	// Name returns the source id, e.g. domain.SourceHRRR.
	Name() string
	// Build returns the table of the configured cycle run on date.
	Build(ctx context.Context, date time.Time) (*domain.ForecastTable, error)
}

// Registry holds pipelines keyed by source id.
type Registry struct {
	pipelines map[string]Pipeline
	order     []string
}

// NewRegistry registers pipelines in order. A later pipeline with the same
// name replaces an earlier one.
func NewRegistry(pipelines ...Pipeline) *Registry {
	r := &Registry{pipelines: make(map[string]Pipeline, len(pipelines))}
	for _, p := range pipelines {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a pipeline.
func (r *Registry) Register(p Pipeline) {
	if _, ok := r.pipelines[p.Name()]; !ok {
		r.order = append(r.order, p.Name())
	}
	r.pipelines[p.Name()] = p
}

// Get returns the pipeline for id, or ErrUnknownSource.
func (r *Registry) Get(id string) (Pipeline, error) {
	p, ok := r.pipelines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", domain.ErrUnknownSource, id, r.order)
	}
	return p, nil
}

// Select returns the pipelines for ids, in the order given.
func (r *Registry) Select(ids []string) ([]Pipeline, error) {
	out := make([]Pipeline, 0, len(ids))
	for _, id := range ids {
		p, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Names returns the registered ids in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Hours returns the consecutive hours first..last.
func Hours(first, last int) []int {
	if last < first {
		return nil
	}
	out := make([]int, 0, last-first+1)
	for h := first; h <= last; h++ {
		out = append(out, h)
	}
	return out
}
