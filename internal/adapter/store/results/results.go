// Package results persists per-day metric results as JSON documents under
// {resultsDir}/{location-slug}/{YYYY-MM-DD}.json.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

// ErrNotFound is returned when no document exists for a location and date.
var ErrNotFound = errors.New("result not found")

// Document maps metric names to their JSON-compatible payloads.
type Document map[string]any

// Store reads and writes result documents.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the document path of location on date.
func (s *Store) Path(location string, date time.Time) string {
	return filepath.Join(s.dir, domain.Slug(location), date.Format(domain.DateLayout)+".json")
}

// Save writes doc for location on date. Payloads are normalised first; a NaN or
// infinite value anywhere fails with domain.ErrMissingValue and nothing is written.
func (s *Store) Save(location string, date time.Time, doc Document) error {
	normalized, err := Normalize(doc)
	if err != nil {
		return fmt.Errorf("%s %s: %w", location, date.Format(domain.DateLayout), err)
	}

	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	path := s.Path(location, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".results-*.json")
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close results file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to move results into place: %w", err)
	}
	return nil
}

// Load reads the document of location on date.
func (s *Store) Load(location string, date time.Time) (Document, error) {
	path := s.Path(location, date)

	//nolint:gosec // G304: Path built from the results dir and a slugged location.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, location, date.Format(domain.DateLayout))
		}
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return doc, nil
}

// ListDates returns the dates with a stored document for location, ascending.
// An unknown location has no dates.
func (s *Store) ListDates(location string) ([]time.Time, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, domain.Slug(location)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []time.Time{}, nil
		}
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	dates := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		date, err := time.Parse(domain.DateLayout, strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// ListLocations returns the location directories that hold results.
func (s *Store) ListLocations() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}
	locations := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			locations = append(locations, entry.Name())
		}
	}
	return locations, nil
}

// Normalize converts a payload into plain JSON types: numbers become float64,
// numeric slices []float64, other slices []any, maps map[string]any.
// NaN and infinities fail with domain.ErrMissingValue.
func Normalize(v any) (any, error) {
	return normalize(v, "")
}

//nolint:gocyclo // One case per supported kind.
func normalize(v any, path string) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch x := v.(type) {
	case float64:
		return checkFloat(x, path)
	case float32:
		return checkFloat(float64(x), path)
	case bool, string:
		return x, nil
	case []float64:
		out := make([]float64, len(x))
		for i, f := range x {
			if _, err := checkFloat(f, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return checkFloat(rv.Float(), path)
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface(), path)
	case reflect.Slice, reflect.Array:
		return normalizeSlice(rv, path)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s at %q", rv.Type().Key(), path)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			val, err := normalize(iter.Value().Interface(), joinPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported result type %T at %q", v, path)
	}
}

func normalizeSlice(rv reflect.Value, path string) (any, error) {
	n := rv.Len()
	items := make([]any, n)
	numeric := true
	for i := 0; i < n; i++ {
		val, err := normalize(rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		if _, ok := val.(float64); !ok {
			numeric = false
		}
		items[i] = val
	}
	if !numeric || n == 0 {
		return items, nil
	}
	floats := make([]float64, n)
	for i, val := range items {
		floats[i] = val.(float64)
	}
	return floats, nil
}

func checkFloat(f float64, path string) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite value %v at %q", domain.ErrMissingValue, f, path)
	}
	return f, nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
