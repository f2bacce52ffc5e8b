// Package csv loads the delimited-text inputs of an assessment run: hourly
// ground truth, the Census urban-area gazetteer and location files.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

// GroundTruthStore reads hourly observations from
// {dataDir}/airnow/{location-slug}/{YYYY-MM-DD}.csv.
type GroundTruthStore struct {
	dataDir string
}

// NewGroundTruthStore creates a ground-truth store rooted at dataDir.
func NewGroundTruthStore(dataDir string) *GroundTruthStore {
	return &GroundTruthStore{
		dataDir: dataDir,
	}
}

// Path returns the file holding the observations of location on date.
func (s *GroundTruthStore) Path(location string, date time.Time) string {
	return filepath.Join(s.dataDir, "airnow", domain.Slug(location), date.Format(domain.DateLayout)+".csv")
}

// Load returns the observations of location on date, ordered as in the file.
// ok is false when no file exists for that day.
func (s *GroundTruthStore) Load(location string, date time.Time) (obs []domain.Observation, ok bool, err error) {
	filename := s.Path(location, date)

	//nolint:gosec // G304: File path constructed from dataDir (config) and a slugged location.
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to open ground truth for %s: %w", location, err)
	}
	defer func() { _ = file.Close() }()

	obs, err = ParseObservations(file)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", filename, err)
	}
	return obs, true, nil
}

// ParseObservations reads a ValidTime,PM25 CSV. Empty PM25 cells are NaN.
func ParseObservations(r io.Reader) ([]domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	expectedHeaders := []string{"ValidTime", "PM25"}
	if len(header) != len(expectedHeaders) {
		return nil, fmt.Errorf("invalid CSV header: expected %v, got %v", expectedHeaders, header)
	}
	for i, h := range header {
		if strings.TrimSpace(h) != expectedHeaders[i] {
			return nil, fmt.Errorf("invalid CSV header: expected column %d to be %s, got %s", i, expectedHeaders[i], h)
		}
	}

	observations := make([]domain.Observation, 0, 24)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		hour, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid ValidTime %q: %w", record[0], err)
		}

		value := math.NaN()
		if s := strings.TrimSpace(record[1]); s != "" {
			value, err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid PM25 for hour %d: %w", hour, err)
			}
		}

		observations = append(observations, domain.Observation{ValidTime: hour, PM25: value})
	}
	return observations, nil
}
