package domain

import (
	"fmt"
	"math"
	"time"
)

// Source identifiers.
const (
	SourceHRRR  = "hrrr"
	SourceNAQFC = "naqfc"
)

// DateLayout is the calendar-day layout used in file names, URLs and result keys.
const DateLayout = "2006-01-02"

// Coordinate is a geographic position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate lies on the globe.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 360 {
		return fmt.Errorf("longitude must be between -180 and 360, got %f", c.Longitude)
	}
	return nil
}

// ForecastRequest identifies one fetchable unit of a forecast archive.
// LeadTime is ignored by sources that publish all steps in one object.
type ForecastRequest struct {
	Source   string
	Date     time.Time // UTC calendar day of the model run.
	Cycle    int       // Initialization hour (UTC).
	LeadTime int       // Hours after initialization.
}

// String renders the request for logs.
func (r ForecastRequest) String() string {
	return fmt.Sprintf("%s %s t%02dz f%02d", r.Source, r.Date.Format(DateLayout), r.Cycle, r.LeadTime)
}

// GridFrame holds one flattened forecast plane. The three slices are parallel.
type GridFrame struct {
	Latitude  []float64
	Longitude []float64
	Value     []float64
	ValidTime int // Hour the values are valid for, counted from 00Z of the run day.
}

// Validate checks that the parallel slices have equal length.
func (f GridFrame) Validate() error {
	if len(f.Latitude) != len(f.Longitude) || len(f.Latitude) != len(f.Value) {
		return fmt.Errorf("%w: latitude=%d longitude=%d value=%d",
			ErrGridShapeMismatch, len(f.Latitude), len(f.Longitude), len(f.Value))
	}
	return nil
}

// Len returns the number of cells in the frame.
func (f GridFrame) Len() int {
	return len(f.Value)
}

// Row is one forecast cell of a ForecastTable.
type Row struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	ValidTime int     `json:"valid_time"`
	PM25      float64 `json:"pm25"`
}

// Round rounds val to the given number of decimal places, half away from zero.
// NaN and infinities are returned unchanged.
func Round(val float64, precision int) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	multiplier := math.Pow(10, float64(precision))
	return math.Round(val*multiplier) / multiplier
}
