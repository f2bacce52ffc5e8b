// Package locator builds archive URLs for forecast requests.
package locator

import (
	"fmt"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

// Epoch is a date range during which an archive uses one layout.
// An epoch runs from Start until the Start of the next epoch in its table.
type Epoch struct {
	Name         string    // Path component, e.g. "AQMv6".
	Start        time.Time // First UTC day covered (inclusive).
	MaxLeadHours int       // Longest forecast published during the epoch.
}

// EpochTable lists epochs in ascending Start order.
type EpochTable []Epoch

// DefaultNAQFCEpochs returns the NAQFC air-quality model versions.
// AQMv5 forecasts ran for 48 hours; from AQMv6 onwards they run for 72.
func DefaultNAQFCEpochs() EpochTable {
	return EpochTable{
		{Name: "AQMv5", Start: day(2020, time.January, 1), MaxLeadHours: 48},
		{Name: "AQMv6", Start: day(2021, time.July, 20), MaxLeadHours: 72},
		{Name: "AQMv7", Start: day(2024, time.May, 14), MaxLeadHours: 72},
	}
}

// DefaultHRRREpochs returns the HRRR archive layout. The open archive starts on
// 2014-07-30 and keeps one path layout for every model version since.
func DefaultHRRREpochs() EpochTable {
	return EpochTable{
		{Name: "hrrr", Start: day(2014, time.July, 30), MaxLeadHours: 48},
	}
}

// Select returns the epoch covering date. Boundaries are inclusive of the
// later epoch: a date equal to an epoch's Start belongs to that epoch.
func (t EpochTable) Select(date time.Time) (Epoch, error) {
	if len(t) == 0 {
		return Epoch{}, fmt.Errorf("%w: no epochs configured", domain.ErrUnsupportedPeriod)
	}
	d := truncateDay(date)
	if d.Before(t[0].Start) {
		return Epoch{}, fmt.Errorf("%w: %s precedes first epoch %s (%s)",
			domain.ErrUnsupportedPeriod, d.Format(domain.DateLayout), t[0].Name, t[0].Start.Format(domain.DateLayout))
	}

	selected := t[0]
	for _, e := range t[1:] {
		if d.Before(e.Start) {
			break
		}
		selected = e
	}
	return selected, nil
}

// Validate checks that epochs are in strictly ascending order.
func (t EpochTable) Validate() error {
	for i := 1; i < len(t); i++ {
		if !t[i].Start.After(t[i-1].Start) {
			return fmt.Errorf("epoch %s must start after %s", t[i].Name, t[i-1].Name)
		}
	}
	return nil
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
