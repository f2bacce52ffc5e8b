package locator

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

func TestEpochTable_Select(t *testing.T) {
	epochs := DefaultNAQFCEpochs()

	tests := []struct {
		date     time.Time
		expected string
	}{
		{day(2020, time.January, 1), "AQMv5"},
		{day(2020, time.June, 1), "AQMv5"},
		{day(2021, time.July, 19), "AQMv5"},
		{day(2021, time.July, 20), "AQMv6"},
		{time.Date(2021, time.July, 20, 23, 59, 0, 0, time.UTC), "AQMv6"},
		{day(2024, time.May, 13), "AQMv6"},
		{day(2024, time.May, 14), "AQMv7"},
		{day(2025, time.October, 1), "AQMv7"},
	}

	for _, tt := range tests {
		got, err := epochs.Select(tt.date)
		if err != nil {
			t.Fatalf("Select(%s): unexpected error: %v", tt.date.Format(domain.DateLayout), err)
		}
		if got.Name != tt.expected {
			t.Errorf("Select(%s): expected %s, got %s", tt.date.Format(domain.DateLayout), tt.expected, got.Name)
		}
	}
}

func TestEpochTable_SelectBeforeFirstEpoch(t *testing.T) {
	_, err := DefaultNAQFCEpochs().Select(day(2019, time.December, 31))
	if !errors.Is(err, domain.ErrUnsupportedPeriod) {
		t.Fatalf("expected ErrUnsupportedPeriod, got %v", err)
	}

	_, err = EpochTable{}.Select(day(2022, time.January, 1))
	if !errors.Is(err, domain.ErrUnsupportedPeriod) {
		t.Fatalf("expected ErrUnsupportedPeriod for empty table, got %v", err)
	}
}

func TestEpochTable_Validate(t *testing.T) {
	if err := DefaultNAQFCEpochs().Validate(); err != nil {
		t.Fatalf("default epochs invalid: %v", err)
	}
	bad := EpochTable{
		{Name: "b", Start: day(2022, time.January, 1)},
		{Name: "a", Start: day(2021, time.January, 1)},
	}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for unordered epochs")
	}
}

func TestNAQFC_Locate(t *testing.T) {
	l := NewNAQFC("", DefaultNAQFCEpochs())

	tests := []struct {
		date     time.Time
		cycle    int
		expected string
	}{
		{
			day(2020, time.June, 1), 12,
			"https://noaa-nws-naqfc-pds.s3.amazonaws.com/AQMv5/CS/20200601/12/aqm.t12z.ave_1hr_pm25_bc.20200601.227.grib2",
		},
		{
			day(2021, time.July, 20), 6,
			"https://noaa-nws-naqfc-pds.s3.amazonaws.com/AQMv6/CS/20210720/06/aqm.t06z.ave_1hr_pm25_bc.20210720.227.grib2",
		},
		{
			day(2024, time.May, 14), 12,
			"https://noaa-nws-naqfc-pds.s3.amazonaws.com/AQMv7/CS/20240514/12/aqm.t12z.ave_1hr_pm25_bc.20240514.227.grib2",
		},
	}

	for _, tt := range tests {
		got, err := l.Locate(domain.ForecastRequest{Source: domain.SourceNAQFC, Date: tt.date, Cycle: tt.cycle})
		if err != nil {
			t.Fatalf("Locate: unexpected error: %v", err)
		}
		if got != tt.expected {
			t.Errorf("Locate(%s, %d):\n  expected %s\n  got      %s", tt.date.Format(domain.DateLayout), tt.cycle, tt.expected, got)
		}
	}
}

func TestNAQFC_LocateInvalidCycle(t *testing.T) {
	l := NewNAQFC("", DefaultNAQFCEpochs())
	for _, cycle := range []int{0, 9, 18} {
		_, err := l.Locate(domain.ForecastRequest{Date: day(2023, time.January, 1), Cycle: cycle})
		if !errors.Is(err, domain.ErrInvalidCycle) {
			t.Errorf("cycle %d: expected ErrInvalidCycle, got %v", cycle, err)
		}
	}
}

func TestNAQFC_LocateUnsupportedPeriod(t *testing.T) {
	l := NewNAQFC("", DefaultNAQFCEpochs())
	_, err := l.Locate(domain.ForecastRequest{Date: day(2019, time.July, 1), Cycle: 12})
	if !errors.Is(err, domain.ErrUnsupportedPeriod) {
		t.Fatalf("expected ErrUnsupportedPeriod, got %v", err)
	}
}

func TestHRRR_Locate(t *testing.T) {
	l := NewHRRR("", DefaultHRRREpochs())
	got, err := l.Locate(domain.ForecastRequest{
		Source:   domain.SourceHRRR,
		Date:     day(2023, time.January, 2),
		Cycle:    0,
		LeadTime: 7,
	})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	expected := "https://noaa-hrrr-bdp-pds.s3.amazonaws.com/hrrr.20230102/conus/hrrr.t00z.wrfsfcf07.grib2"
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
	if m := l.ManifestURL(got); m != expected+".idx" {
		t.Errorf("unexpected manifest URL %s", m)
	}
}

func TestHRRR_LocateValidation(t *testing.T) {
	l := NewHRRR("", DefaultHRRREpochs())
	base := domain.ForecastRequest{Date: day(2023, time.January, 2)}

	req := base
	req.Cycle = 24
	if _, err := l.Locate(req); !errors.Is(err, domain.ErrInvalidCycle) {
		t.Errorf("expected ErrInvalidCycle, got %v", err)
	}

	req = base
	req.LeadTime = 49
	if _, err := l.Locate(req); !errors.Is(err, domain.ErrInvalidLeadTime) {
		t.Errorf("expected ErrInvalidLeadTime, got %v", err)
	}

	req = base
	req.Date = day(2014, time.July, 29)
	if _, err := l.Locate(req); !errors.Is(err, domain.ErrUnsupportedPeriod) {
		t.Errorf("expected ErrUnsupportedPeriod, got %v", err)
	}
}

func TestLocate_CustomBaseURL(t *testing.T) {
	tests := []struct {
		base   string
		prefix string
	}{
		{"gs://high-resolution-rapid-refresh", "gs://high-resolution-rapid-refresh/hrrr.20230102/conus/"},
		{"http://mirror.local/archive/", "http://mirror.local/archive/hrrr.20230102/conus/"},
	}
	for _, tt := range tests {
		l := NewHRRR(tt.base, DefaultHRRREpochs())
		got, err := l.Locate(domain.ForecastRequest{Date: day(2023, time.January, 2), LeadTime: 1})
		if err != nil {
			t.Fatalf("Locate(%s): %v", tt.base, err)
		}
		if !strings.HasPrefix(got, tt.prefix) {
			t.Errorf("expected prefix %s, got %s", tt.prefix, got)
		}
	}
}
