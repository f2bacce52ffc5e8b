// Package metric scores a day of neighbor forecasts against ground truth.
package metric

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"go.ngs.io/pm25-assess/internal/domain"
)

// SmokeDayThreshold is the daily mean PM2.5 (µg/m³) from which a day counts as smoky.
const SmokeDayThreshold = 35.5

// Day is the input of a metric evaluation. A nil forecast marks a source
// that could not be built; nil Observations mean no ground truth for the day.
type Day struct {
	Location     string
	Date         time.Time
	Forecasts    map[string]*domain.NeighborSet
	Observations []domain.Observation
}

// Metric evaluates one day. The result must be JSON-compatible.
// Absent or NaN inputs fail with domain.ErrMissingValue.
type Metric interface {
	Name() string
	Evaluate(day Day) (any, error)
}

// Default returns the metrics of a standard assessment run.
func Default() []Metric {
	return []Metric{RMSE{}, MeanExcessExposure{}, IsSmokeDay{}}
}

// RMSE is the root mean squared error of the hourly mean neighbor forecast
// against the observation of the same hour, per source.
type RMSE struct{}

// Name implements Metric.
func (RMSE) Name() string { return "rmse" }

// Evaluate implements Metric.
func (RMSE) Evaluate(day Day) (any, error) {
	return perSource(day, func(forecast, observed []float64) float64 {
		return floats.Distance(forecast, observed, 2) / math.Sqrt(float64(len(forecast)))
	})
}

// MeanExcessExposure is the mean amount by which the forecast exceeded the
// observation, counting under-forecast hours as zero, per source.
type MeanExcessExposure struct{}

// Name implements Metric.
func (MeanExcessExposure) Name() string { return "mean_excess_exposure" }

// Evaluate implements Metric.
func (MeanExcessExposure) Evaluate(day Day) (any, error) {
	return perSource(day, func(forecast, observed []float64) float64 {
		excess := make([]float64, len(forecast))
		floats.SubTo(excess, forecast, observed)
		for i, e := range excess {
			excess[i] = math.Max(0, e)
		}
		return stat.Mean(excess, nil)
	})
}

// IsSmokeDay reports whether the observed daily mean reached SmokeDayThreshold.
type IsSmokeDay struct{}

// Name implements Metric.
func (IsSmokeDay) Name() string { return "is_smoke_day" }

// Evaluate implements Metric.
func (IsSmokeDay) Evaluate(day Day) (any, error) {
	values := make([]float64, 0, len(day.Observations))
	for _, o := range day.Observations {
		if !math.IsNaN(o.PM25) && !math.IsInf(o.PM25, 0) {
			values = append(values, o.PM25)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no observations for %s", domain.ErrMissingValue, day.Date.Format(domain.DateLayout))
	}
	return stat.Mean(values, nil) >= SmokeDayThreshold, nil
}

// perSource pairs each source's hourly means with observations and applies score.
func perSource(day Day, score func(forecast, observed []float64) float64) (map[string]float64, error) {
	if len(day.Forecasts) == 0 {
		return nil, fmt.Errorf("%w: no forecasts", domain.ErrMissingValue)
	}
	observed := validObservations(day.Observations)
	if len(observed) == 0 {
		return nil, fmt.Errorf("%w: no observations for %s", domain.ErrMissingValue, day.Date.Format(domain.DateLayout))
	}

	names := make([]string, 0, len(day.Forecasts))
	for name := range day.Forecasts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]float64, len(names))
	for _, name := range names {
		set := day.Forecasts[name]
		if set.Empty() {
			return nil, fmt.Errorf("%w: no %s forecast near %s", domain.ErrMissingValue, name, day.Location)
		}
		forecast, obs := Match(set.HourlyMeans(), observed)
		if len(forecast) == 0 {
			return nil, fmt.Errorf("%w: no %s forecast hour matches an observation", domain.ErrMissingValue, name)
		}
		v := score(forecast, obs)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s score is %v", domain.ErrMissingValue, name, v)
		}
		out[name] = v
	}
	return out, nil
}

// Match pairs hourly forecast means with observations of the same ValidTime,
// in forecast order.
func Match(hourly []domain.HourlyValue, observed map[int]float64) (forecast, obs []float64) {
	for _, h := range hourly {
		o, ok := observed[h.ValidTime]
		if !ok {
			continue
		}
		forecast = append(forecast, h.PM25)
		obs = append(obs, o)
	}
	return forecast, obs
}

// validObservations indexes the non-NaN observations by ValidTime.
func validObservations(observations []domain.Observation) map[int]float64 {
	out := make(map[int]float64, len(observations))
	for _, o := range observations {
		if math.IsNaN(o.PM25) || math.IsInf(o.PM25, 0) {
			continue
		}
		out[o.ValidTime] = o.PM25
	}
	return out
}
