package results

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2023, 7, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_SaveLoad(t *testing.T) {
	s := NewStore(t.TempDir())
	doc := Document{
		"rmse":          map[string]float64{"hrrr": 4.5, "naqfc": 7.25},
		"is_smoke_day":  true,
		"hours":         []int{1, 2, 3},
		"count":         int64(24),
		"forecast_mean": float32(1.5),
	}

	if err := s.Save("Boise City, ID", day(4), doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, "boise-city-id", "2023-07-04.json")); err != nil {
		t.Fatalf("expected document on disk: %v", err)
	}

	got, err := s.Load("Boise City, ID", day(4))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Document{
		"rmse":          map[string]any{"hrrr": 4.5, "naqfc": 7.25},
		"is_smoke_day":  true,
		"hours":         []any{1.0, 2.0, 3.0},
		"count":         24.0,
		"forecast_mean": 1.5,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, want)
	}
}

func TestStore_SaveRejectsNaN(t *testing.T) {
	s := NewStore(t.TempDir())
	doc := Document{"rmse": map[string]float64{"hrrr": math.NaN()}}

	err := s.Save("Boise City, ID", day(4), doc)
	if !errors.Is(err, domain.ErrMissingValue) {
		t.Fatalf("expected ErrMissingValue, got %v", err)
	}
	if _, err := os.Stat(s.Path("Boise City, ID", day(4))); !os.IsNotExist(err) {
		t.Errorf("nothing must be written for a rejected document, stat err = %v", err)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Load("Boise City, ID", day(4)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListDates(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, d := range []int{5, 3, 4} {
		if err := s.Save("Boise City, ID", day(d), Document{"is_smoke_day": false}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(s.dir, "boise-city-id", "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dates, err := s.ListDates("Boise City, ID")
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	if len(dates) != 3 || !dates[0].Equal(day(3)) || !dates[2].Equal(day(5)) {
		t.Errorf("unexpected dates %v", dates)
	}

	none, err := s.ListDates("Nowhere")
	if err != nil || len(none) != 0 {
		t.Errorf("expected no dates for unknown location, got %v, %v", none, err)
	}

	locations, err := s.ListLocations()
	if err != nil || !reflect.DeepEqual(locations, []string{"boise-city-id"}) {
		t.Errorf("unexpected locations %v, %v", locations, err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    any
		wantErr error
	}{
		{"int", 3, 3.0, nil},
		{"uint8", uint8(7), 7.0, nil},
		{"float slice", []float32{1, 2}, []float64{1, 2}, nil},
		{"mixed slice", []any{1, "a"}, []any{1.0, "a"}, nil},
		{"nested map", map[string]any{"a": map[string]int{"b": 1}}, map[string]any{"a": map[string]any{"b": 1.0}}, nil},
		{"pointer", func() *float64 { f := 2.5; return &f }(), 2.5, nil},
		{"nil", nil, nil, nil},
		{"inf", math.Inf(1), nil, domain.ErrMissingValue},
		{"nan in slice", []float64{1, math.NaN()}, nil, domain.ErrMissingValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_UnsupportedType(t *testing.T) {
	if _, err := Normalize(map[int]float64{1: 2}); err == nil {
		t.Error("expected error for non-string map keys")
	}
	if _, err := Normalize(make(chan int)); err == nil {
		t.Error("expected error for channel")
	}
}
