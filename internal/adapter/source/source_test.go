package source

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

type namedPipeline struct {
	name string
}

func (p namedPipeline) Name() string { return p.name }

func (p namedPipeline) Build(context.Context, time.Time) (*domain.ForecastTable, error) {
	return &domain.ForecastTable{Source: p.name}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(namedPipeline{"hrrr"}, namedPipeline{"naqfc"})

	if got := r.Names(); !reflect.DeepEqual(got, []string{"hrrr", "naqfc"}) {
		t.Errorf("unexpected names %v", got)
	}

	p, err := r.Get("naqfc")
	if err != nil || p.Name() != "naqfc" {
		t.Fatalf("Get(naqfc) = %v, %v", p, err)
	}

	if _, err := r.Get("cams"); !errors.Is(err, domain.ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}

	selected, err := r.Select([]string{"naqfc", "hrrr"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if selected[0].Name() != "naqfc" || selected[1].Name() != "hrrr" {
		t.Errorf("Select must keep the requested order")
	}
	if _, err := r.Select([]string{"hrrr", "bogus"}); !errors.Is(err, domain.ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}

	r.Register(namedPipeline{"hrrr"})
	if len(r.Names()) != 2 {
		t.Errorf("re-registering must not duplicate names: %v", r.Names())
	}
}

func TestHours(t *testing.T) {
	if got := Hours(1, 24); len(got) != 24 || got[0] != 1 || got[23] != 24 {
		t.Errorf("unexpected Hours(1, 24): %v", got)
	}
	if got := Hours(5, 4); got != nil {
		t.Errorf("expected nil for empty range, got %v", got)
	}
}
