package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.ngs.io/pm25-assess/internal/adapter/source"
	"go.ngs.io/pm25-assess/internal/domain"
	"go.ngs.io/pm25-assess/internal/metric"
)

// CoordinateResolver resolves a location name into its reference coordinate.
type CoordinateResolver interface {
	Lookup(location string) (domain.Coordinate, error)
}

// GroundTruthLoader loads the hourly observations of a location. ok is false
// when none were recorded for the day.
type GroundTruthLoader interface {
	Load(location string, date time.Time) (obs []domain.Observation, ok bool, err error)
}

// SourceData is one forecast source's contribution to a day. Neighbors is nil
// and Err set when the source could not be built.
type SourceData struct {
	Source    string
	Neighbors *domain.NeighborSet
	Err       error
}

// Present reports whether the source produced a neighbor set.
func (s SourceData) Present() bool {
	return s.Err == nil && s.Neighbors != nil
}

// DailyData gathers everything known about one location on one day.
type DailyData struct {
	Location       string
	Coordinate     domain.Coordinate
	Date           time.Time
	Forecasts      map[string]SourceData
	GroundTruth    []domain.Observation
	HasGroundTruth bool
}

// MetricDay converts d into metric input. Absent sources map to nil.
func (d *DailyData) MetricDay() metric.Day {
	day := metric.Day{
		Location:  d.Location,
		Date:      d.Date,
		Forecasts: make(map[string]*domain.NeighborSet, len(d.Forecasts)),
	}
	for name, s := range d.Forecasts {
		if s.Present() {
			day.Forecasts[name] = s.Neighbors
		} else {
			day.Forecasts[name] = nil
		}
	}
	if d.HasGroundTruth {
		day.Observations = d.GroundTruth
	}
	return day
}

// AbsentSources returns the sources that failed, with their errors.
func (d *DailyData) AbsentSources() map[string]error {
	out := make(map[string]error)
	for name, s := range d.Forecasts {
		if !s.Present() {
			out[name] = s.Err
		}
	}
	return out
}

// DailyBuilder assembles DailyData from the configured forecast pipelines,
// the gazetteer and the ground-truth store.
type DailyBuilder struct {
	resolver      CoordinateResolver
	truth         GroundTruthLoader
	pipelines     []source.Pipeline
	radiusKm      float64
	earthRadiusKm float64
}

// NewDailyBuilder creates a builder. Neighbors are cells within radiusKm of the
// location on a sphere of domain.EarthRadiusKm.
func NewDailyBuilder(resolver CoordinateResolver, truth GroundTruthLoader, pipelines []source.Pipeline, radiusKm float64) *DailyBuilder {
	return &DailyBuilder{
		resolver:      resolver,
		truth:         truth,
		pipelines:     pipelines,
		radiusKm:      radiusKm,
		earthRadiusKm: domain.EarthRadiusKm,
	}
}

// Build returns the data of location on date. A source that fails is recorded
// as absent and the day continues; only an unknown location, unreadable ground
// truth or a cancelled context fail the build.
func (b *DailyBuilder) Build(ctx context.Context, date time.Time, location string) (*DailyData, error) {
	target, err := b.resolver.Lookup(location)
	if err != nil {
		return nil, err
	}

	day := &DailyData{
		Location:   location,
		Coordinate: target,
		Date:       date,
		Forecasts:  make(map[string]SourceData, len(b.pipelines)),
	}

	obs, ok, err := b.truth.Load(location, date)
	if err != nil {
		return nil, fmt.Errorf("ground truth: %w", err)
	}
	day.GroundTruth, day.HasGroundTruth = obs, ok
	if !ok {
		log.Printf("daily: no ground truth for %s on %s", location, date.Format(domain.DateLayout))
	}

	for _, p := range b.pipelines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table, err := p.Build(ctx, date)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Printf("daily: Warning: %s forecast unavailable for %s: %v", p.Name(), date.Format(domain.DateLayout), err)
			day.Forecasts[p.Name()] = SourceData{Source: p.Name(), Err: err}
			continue
		}

		neighbors := domain.Neighbors(table, target, b.radiusKm, b.earthRadiusKm)
		log.Printf("daily: %s %s: %d of %d cells within %.1f km of %s",
			p.Name(), date.Format(domain.DateLayout), neighbors.Len(), table.Len(), b.radiusKm, location)
		day.Forecasts[p.Name()] = SourceData{Source: p.Name(), Neighbors: neighbors}
	}
	return day, nil
}
