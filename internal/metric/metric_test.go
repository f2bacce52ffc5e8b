package metric

import (
	"errors"
	"math"
	"testing"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

// set builds a neighbor set with one row per (validTime, value) pair.
func set(source string, pairs ...float64) *domain.NeighborSet {
	s := &domain.NeighborSet{Source: source}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Rows = append(s.Rows, domain.Row{ValidTime: int(pairs[i]), PM25: pairs[i+1]})
	}
	return s
}

func obs(pairs ...float64) []domain.Observation {
	out := make([]domain.Observation, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Observation{ValidTime: int(pairs[i]), PM25: pairs[i+1]})
	}
	return out
}

func sampleDay() Day {
	return Day{
		Location: "Boise City, ID",
		Date:     time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC),
		Forecasts: map[string]*domain.NeighborSet{
			// Hour 1 averages two cells to 10; hour 3 has no observation.
			"hrrr":  set("hrrr", 1, 8, 1, 12, 2, 20, 3, 99),
			"naqfc": set("naqfc", 1, 10, 2, 10),
		},
		Observations: obs(0, 5, 1, 7, 2, 24),
	}
}

func TestRMSE(t *testing.T) {
	got, err := RMSE{}.Evaluate(sampleDay())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	scores := got.(map[string]float64)

	// hrrr errors: 3, -4 -> sqrt((9+16)/2).
	if want := math.Sqrt(12.5); math.Abs(scores["hrrr"]-want) > 1e-12 {
		t.Errorf("hrrr RMSE = %v, want %v", scores["hrrr"], want)
	}
	// naqfc errors: 3, -14 -> sqrt((9+196)/2).
	if want := math.Sqrt(102.5); math.Abs(scores["naqfc"]-want) > 1e-12 {
		t.Errorf("naqfc RMSE = %v, want %v", scores["naqfc"], want)
	}
}

func TestMeanExcessExposure(t *testing.T) {
	got, err := MeanExcessExposure{}.Evaluate(sampleDay())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	scores := got.(map[string]float64)
	if scores["hrrr"] != 1.5 {
		t.Errorf("hrrr excess = %v, want 1.5", scores["hrrr"])
	}
	if scores["naqfc"] != 1.5 {
		t.Errorf("naqfc excess = %v, want 1.5", scores["naqfc"])
	}
}

func TestIsSmokeDay(t *testing.T) {
	tests := []struct {
		name string
		obs  []domain.Observation
		want bool
	}{
		{"clean", obs(0, 5, 1, 10), false},
		{"at threshold", obs(0, 35, 1, 36), true},
		{"smoky with gap", obs(0, 80, 1, math.NaN(), 2, 40), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsSmokeDay{}.Evaluate(Day{Observations: tt.obs})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsSmokeDay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingValue(t *testing.T) {
	noObs := sampleDay()
	noObs.Observations = nil

	nanObs := sampleDay()
	nanObs.Observations = obs(1, math.NaN(), 2, math.NaN())

	absentSource := sampleDay()
	absentSource.Forecasts["naqfc"] = nil

	emptySource := sampleDay()
	emptySource.Forecasts["hrrr"] = &domain.NeighborSet{Source: "hrrr"}

	noOverlap := sampleDay()
	noOverlap.Observations = obs(20, 5)

	noForecasts := sampleDay()
	noForecasts.Forecasts = nil

	tests := []struct {
		name   string
		metric Metric
		day    Day
	}{
		{"rmse without observations", RMSE{}, noObs},
		{"rmse with NaN observations", RMSE{}, nanObs},
		{"rmse with absent source", RMSE{}, absentSource},
		{"excess with empty neighbor set", MeanExcessExposure{}, emptySource},
		{"excess without matching hours", MeanExcessExposure{}, noOverlap},
		{"rmse without forecasts", RMSE{}, noForecasts},
		{"smoke day without observations", IsSmokeDay{}, noObs},
		{"smoke day with NaN observations", IsSmokeDay{}, nanObs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.metric.Evaluate(tt.day); !errors.Is(err, domain.ErrMissingValue) {
				t.Errorf("expected ErrMissingValue, got %v", err)
			}
		})
	}
}

func TestDefaultNames(t *testing.T) {
	want := []string{"rmse", "mean_excess_exposure", "is_smoke_day"}
	for i, m := range Default() {
		if m.Name() != want[i] {
			t.Errorf("metric %d name = %q, want %q", i, m.Name(), want[i])
		}
	}
}
