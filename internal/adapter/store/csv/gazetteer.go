package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.ngs.io/pm25-assess/internal/domain"
)

// DefaultGazetteerFile is the Census urban-area gazetteer expected in the data directory.
const DefaultGazetteerFile = "2020_Gaz_ua_national.txt"

// ErrUnknownLocation is returned for names missing from the gazetteer.
var ErrUnknownLocation = errors.New("location not in gazetteer")

// Gazetteer maps urban-area names to their internal point.
type Gazetteer struct {
	points map[string]domain.Coordinate
}

// LoadGazetteer reads a tab-separated Census gazetteer with NAME, INTPTLAT and
// INTPTLONG columns. Other columns are ignored.
func LoadGazetteer(path string) (*Gazetteer, error) {
	//nolint:gosec // G304: Path comes from configuration.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gazetteer: %w", err)
	}
	defer func() { _ = file.Close() }()

	g, err := ParseGazetteer(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// ParseGazetteer reads gazetteer rows from r.
func ParseGazetteer(r io.Reader) (*Gazetteer, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read gazetteer header: %w", err)
	}
	columns := map[string]int{}
	for i, h := range header {
		columns[strings.TrimSpace(h)] = i
	}
	nameCol, okName := columns["NAME"]
	latCol, okLat := columns["INTPTLAT"]
	lonCol, okLon := columns["INTPTLONG"]
	if !okName || !okLat || !okLon {
		return nil, fmt.Errorf("gazetteer header must contain NAME, INTPTLAT and INTPTLONG, got %v", header)
	}
	width := max(nameCol, latCol, lonCol) + 1

	g := &Gazetteer{points: make(map[string]domain.Coordinate)}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read gazetteer line %d: %w", line, err)
		}
		if len(record) < width {
			return nil, fmt.Errorf("gazetteer line %d: expected at least %d columns, got %d", line, width, len(record))
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(record[latCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("gazetteer line %d: invalid INTPTLAT: %w", line, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(record[lonCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("gazetteer line %d: invalid INTPTLONG: %w", line, err)
		}
		g.points[strings.TrimSpace(record[nameCol])] = domain.Coordinate{Latitude: lat, Longitude: lon}
	}
	return g, nil
}

// Lookup returns the internal point of the urban area named location.
func (g *Gazetteer) Lookup(location string) (domain.Coordinate, error) {
	c, ok := g.points[strings.TrimSpace(location)]
	if !ok {
		return domain.Coordinate{}, fmt.Errorf("%w: %q", ErrUnknownLocation, location)
	}
	return c, nil
}

// Len returns the number of named areas.
func (g *Gazetteer) Len() int {
	return len(g.points)
}
