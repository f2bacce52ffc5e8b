package domain

import (
	"fmt"
	"math"
	"sort"
)

// ForecastTable is the ordered concatenation of the frames of one forecast cycle.
// Rows are ordered by ascending ValidTime.
type ForecastTable struct {
	Source string `json:"source"`
	Rows   []Row  `json:"rows"`
}

// NeighborSet is a subset of a ForecastTable's rows near a target coordinate.
type NeighborSet = ForecastTable

// NewTable flattens frames into rows and concatenates them in ValidTime order.
// Rows with a NaN or infinite value are dropped. A frame whose parallel slices
// differ in length fails with ErrGridShapeMismatch.
func NewTable(source string, frames ...GridFrame) (*ForecastTable, error) {
	ordered := make([]GridFrame, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ValidTime < ordered[j].ValidTime
	})

	total := 0
	for i, f := range ordered {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("frame %d (valid time %d): %w", i, f.ValidTime, err)
		}
		total += f.Len()
	}

	table := &ForecastTable{
		Source: source,
		Rows:   make([]Row, 0, total),
	}
	for _, f := range ordered {
		table.appendFrame(f)
	}
	return table, nil
}

func (t *ForecastTable) appendFrame(f GridFrame) {
	for i, v := range f.Value {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		t.Rows = append(t.Rows, Row{
			Latitude:  f.Latitude[i],
			Longitude: f.Longitude[i],
			ValidTime: f.ValidTime,
			PM25:      v,
		})
	}
}

// Len returns the number of rows.
func (t *ForecastTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *ForecastTable) Empty() bool {
	return t.Len() == 0
}

// HourlyValue is the mean forecast value for one valid hour.
type HourlyValue struct {
	ValidTime int     `json:"valid_time"`
	PM25      float64 `json:"pm25"`
	Count     int     `json:"count"`
}

// HourlyMeans averages PM25 per ValidTime. The result is ordered by ValidTime.
func (t *ForecastTable) HourlyMeans() []HourlyValue {
	if t.Empty() {
		return nil
	}
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range t.Rows {
		sums[r.ValidTime] += r.PM25
		counts[r.ValidTime]++
	}

	hours := make([]int, 0, len(sums))
	for h := range sums {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	out := make([]HourlyValue, len(hours))
	for i, h := range hours {
		out[i] = HourlyValue{
			ValidTime: h,
			PM25:      sums[h] / float64(counts[h]),
			Count:     counts[h],
		}
	}
	return out
}
