package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"go.ngs.io/pm25-assess/internal/adapter/store/results"
	"go.ngs.io/pm25-assess/internal/domain"
	"go.ngs.io/pm25-assess/internal/metric"
)

// DayBuilder builds the data of one location on one day.
type DayBuilder interface {
	Build(ctx context.Context, date time.Time, location string) (*DailyData, error)
}

// ResultSaver persists the metric results of one day.
type ResultSaver interface {
	Save(location string, date time.Time, doc results.Document) error
}

// Status is the outcome of one experiment day.
type Status string

// Day statuses.
const (
	StatusPersisted Status = "persisted"
	StatusSkipped   Status = "skipped" // A metric or the result had missing values.
	StatusFailed    Status = "failed"
)

// DayOutcome reports what happened to one day of an experiment.
type DayOutcome struct {
	Date         time.Time
	Status       Status
	Results      results.Document
	MetricErrors map[string]error
	Err          error
}

// Experiment evaluates metrics for one location over an inclusive date range.
type Experiment struct {
	Location string
	Start    time.Time
	End      time.Time
	Metrics  []metric.Metric
	Days     []*DailyData

	builder DayBuilder
	store   ResultSaver
}

// NewExperiment creates an experiment. End must not precede Start.
func NewExperiment(location string, start, end time.Time, metrics []metric.Metric, builder DayBuilder, store ResultSaver) (*Experiment, error) {
	if location == "" {
		return nil, errors.New("location must not be empty")
	}
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", end.Format(domain.DateLayout), start.Format(domain.DateLayout))
	}
	if len(metrics) == 0 {
		return nil, errors.New("at least one metric is required")
	}
	return &Experiment{
		Location: location,
		Start:    start,
		End:      end,
		Metrics:  metrics,
		builder:  builder,
		store:    store,
	}, nil
}

// Dates returns Start, Start+1 day, ..., End.
func (e *Experiment) Dates() []time.Time {
	days := int(e.End.Sub(e.Start).Hours()/24) + 1
	out := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, e.Start.AddDate(0, 0, i))
	}
	return out
}

// Run builds, scores and persists every day. A day that fails or has missing
// values does not stop the others. The returned error is non-nil only when
// ctx is cancelled; the outcomes of the days finished before are returned with it.
func (e *Experiment) Run(ctx context.Context) ([]DayOutcome, error) {
	dates := e.Dates()
	outcomes := make([]DayOutcome, 0, len(dates))
	log.Printf("experiment: %s from %s to %s (%d days)",
		e.Location, e.Start.Format(domain.DateLayout), e.End.Format(domain.DateLayout), len(dates))

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome := e.runDay(ctx, date)
		if outcome.Status == StatusFailed && ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (e *Experiment) runDay(ctx context.Context, date time.Time) DayOutcome {
	key := date.Format(domain.DateLayout)
	outcome := DayOutcome{Date: date}

	day, err := e.builder.Build(ctx, date, e.Location)
	if err != nil {
		log.Printf("experiment: %s %s failed: %v", e.Location, key, err)
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	e.Days = append(e.Days, day)

	input := day.MetricDay()
	doc := make(results.Document, len(e.Metrics))
	for _, m := range e.Metrics {
		value, err := m.Evaluate(input)
		if err != nil {
			if outcome.MetricErrors == nil {
				outcome.MetricErrors = make(map[string]error)
			}
			outcome.MetricErrors[m.Name()] = err
			continue
		}
		doc[m.Name()] = value
	}
	outcome.Results = doc

	if len(outcome.MetricErrors) > 0 {
		outcome.Err = joinMetricErrors(outcome.MetricErrors)
		if errors.Is(outcome.Err, domain.ErrMissingValue) {
			log.Printf("experiment: Warning: Missing values for %s. Skipping this date. (%v)", key, outcome.Err)
			outcome.Status = StatusSkipped
		} else {
			log.Printf("experiment: %s %s failed: %v", e.Location, key, outcome.Err)
			outcome.Status = StatusFailed
		}
		return outcome
	}

	if err := e.store.Save(e.Location, date, doc); err != nil {
		outcome.Err = err
		if errors.Is(err, domain.ErrMissingValue) {
			log.Printf("experiment: Warning: Missing values for %s. Skipping this date. (%v)", key, err)
			outcome.Status = StatusSkipped
		} else {
			log.Printf("experiment: failed to persist %s %s: %v", e.Location, key, err)
			outcome.Status = StatusFailed
		}
		return outcome
	}

	outcome.Status = StatusPersisted
	return outcome
}

// joinMetricErrors combines per-metric errors in name order.
func joinMetricErrors(errs map[string]error) error {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	joined := make([]error, 0, len(names))
	for _, name := range names {
		joined = append(joined, fmt.Errorf("%s: %w", name, errs[name]))
	}
	return errors.Join(joined...)
}

// Summarize counts outcomes per status.
func Summarize(outcomes []DayOutcome) map[Status]int {
	counts := make(map[Status]int, 3)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
