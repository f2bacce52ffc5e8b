package grid

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.ngs.io/pm25-assess/internal/domain"
)

const twoMessages = `Latitude Longitude Value
   21.138   237.280 1.0e-09
   21.145   237.307 MISSING
   21.152   237.334 2.5e-09
Latitude Longitude Value
   21.138   237.280 3.0
   21.145   237.307 4.0
   21.152   237.334 5.0
`

func TestParseGribText(t *testing.T) {
	g, err := ParseGribText(strings.NewReader(twoMessages))
	if err != nil {
		t.Fatalf("ParseGribText: %v", err)
	}
	if g.NumPlanes() != 2 {
		t.Fatalf("expected 2 planes, got %d", g.NumPlanes())
	}
	if len(g.Latitude) != 3 || len(g.Longitude) != 3 {
		t.Fatalf("expected 3 coordinates, got %d/%d", len(g.Latitude), len(g.Longitude))
	}
	if g.Latitude[2] != 21.152 || g.Longitude[1] != 237.307 {
		t.Errorf("unexpected coordinates %v %v", g.Latitude, g.Longitude)
	}
	if !math.IsNaN(g.Planes[0][1]) {
		t.Errorf("expected missing value to decode as NaN, got %v", g.Planes[0][1])
	}
	if !reflect.DeepEqual(g.Planes[1], []float64{3, 4, 5}) {
		t.Errorf("unexpected second plane %v", g.Planes[1])
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseGribText_CommaSeparatedHeader(t *testing.T) {
	in := "Latitude, Longitude, Value\n10.0 20.0 1.5\n"
	g, err := ParseGribText(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseGribText: %v", err)
	}
	if g.NumPlanes() != 1 || g.Planes[0][0] != 1.5 {
		t.Errorf("unexpected grid %+v", g)
	}
}

func TestParseGribText_Errors(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantShape bool
	}{
		{"data before header", "10 20 1\n", false},
		{"short line", "Latitude Longitude Value\n10 20\n", false},
		{"bad value", "Latitude Longitude Value\n10 20 abc\n", false},
		{"fewer points", "Latitude Longitude Value\n1 1 1\n2 2 2\nLatitude Longitude Value\n1 1 1\n", true},
		{"more points", "Latitude Longitude Value\n1 1 1\nLatitude Longitude Value\n1 1 1\n2 2 2\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGribText(strings.NewReader(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantShape && !errors.Is(err, domain.ErrGridShapeMismatch) {
				t.Errorf("expected ErrGridShapeMismatch, got %v", err)
			}
		})
	}
}

func TestGribReader_Args(t *testing.T) {
	r := NewGribReader("")
	if got := r.Args("f.grib2", ""); !reflect.DeepEqual(got, []string{"-m", MissingToken, "f.grib2"}) {
		t.Errorf("unexpected args %v", got)
	}
	want := []string{"-m", MissingToken, "-w", "shortName=pmtf", "f.grib2"}
	if got := r.Args("f.grib2", "pmtf"); !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected args %v", got)
	}
}

func TestGribReader_MissingBinary(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f.grib2")
	if err := os.WriteFile(p, []byte("GRIB"), 0o644); err != nil {
		t.Fatal(err)
	}
	d := NewFileDecoder(filepath.Join(t.TempDir(), "no-such-grib-tool"))
	if _, err := d.Decode(context.Background(), p, ""); err == nil {
		t.Fatal("expected error when the GRIB tool is unavailable")
	}
}
