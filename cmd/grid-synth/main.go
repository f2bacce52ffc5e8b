// Command grid-synth writes a synthetic smoke episode for offline runs: NAQFC
// style multi-step PM2.5 grids laid out like the public archive, matching
// hourly ground truth and a one-line gazetteer.
//
// Point NAQFC_BASE_URL at file://<out> and DATA_DIR at <data> to assess it.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/pm25-assess/internal/adapter/locator"
	"go.ngs.io/pm25-assess/internal/adapter/store/csv"
	"go.ngs.io/pm25-assess/internal/domain"
)

// Plume describes the synthetic smoke field around a reference point.
type Plume struct {
	Center     domain.Coordinate
	PeakUgM3   float64 // Peak concentration at the center.
	Background float64
	SigmaKm    float64
}

// Value returns the concentration at c for forecast step (hours after the base time).
func (p Plume) Value(c domain.Coordinate, step int) float64 {
	d := domain.HaversineKm(p.Center, c, domain.EarthRadiusKm)
	spatial := math.Exp(-(d * d) / (2 * p.SigmaKm * p.SigmaKm))
	// Smoke builds up through the afternoon and thins overnight.
	diurnal := 0.6 + 0.4*math.Sin(float64(step)*math.Pi/24.0)
	return p.Background + p.PeakUgM3*spatial*diurnal
}

// RegionalGrid defines the geographic bounds and resolution
type RegionalGrid struct {
	LatMin     float64
	LatMax     float64
	LonMin     float64
	LonMax     float64
	Resolution float64 // degrees
}

func main() {
	outDir := flag.String("out", "./data/archive", "Root of the synthetic NAQFC archive")
	dataDir := flag.String("data", "./data", "Data directory for ground truth and gazetteer")
	location := flag.String("location", "Boise City, ID", "Gazetteer name of the reference location")
	lat := flag.Float64("lat", 43.600832, "Reference latitude")
	lon := flag.Float64("lon", -116.233468, "Reference longitude")
	startStr := flag.String("start", "2024-08-01", "First day (YYYY-MM-DD)")
	endStr := flag.String("end", "2024-08-03", "Last day (YYYY-MM-DD)")
	cycle := flag.Int("cycle", 6, "NAQFC cycle (6 or 12)")
	halfWidth := flag.Float64("half-width", 1.0, "Grid half-width around the reference point (degrees)")
	resolution := flag.Float64("resolution", 0.05, "Grid resolution in degrees")
	peak := flag.Float64("peak", 80, "Peak PM2.5 (µg/m³) on the first day")
	bias := flag.Float64("bias", 0.85, "Ratio of observed to forecast concentration")

	flag.Parse()

	start, err := time.Parse(domain.DateLayout, *startStr)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	end, err := time.Parse(domain.DateLayout, *endStr)
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}
	if end.Before(start) {
		log.Fatalf("End date %s is before start date %s", *endStr, *startStr)
	}

	absOut, err := filepath.Abs(*outDir)
	if err != nil {
		log.Fatalf("Failed to resolve output directory: %v", err)
	}
	loc := locator.NewNAQFC((&url.URL{Scheme: "file", Path: filepath.ToSlash(absOut)}).String(), locator.DefaultNAQFCEpochs())

	grid := RegionalGrid{
		LatMin:     *lat - *halfWidth,
		LatMax:     *lat + *halfWidth,
		LonMin:     *lon - *halfWidth,
		LonMax:     *lon + *halfWidth,
		Resolution: *resolution,
	}
	log.Printf("Grid: %.2f°-%.2f°N, %.2f°-%.2f°E, resolution: %.3f°",
		grid.LatMin, grid.LatMax, grid.LonMin, grid.LonMax, grid.Resolution)

	if err := writeGazetteer(filepath.Join(*dataDir, csv.DefaultGazetteerFile), *location, *lat, *lon); err != nil {
		log.Fatalf("Failed to write gazetteer: %v", err)
	}

	truth := csv.NewGroundTruthStore(*dataDir)
	center := domain.Coordinate{Latitude: *lat, Longitude: *lon}
	for d, day := 0, start; !day.After(end); d, day = d+1, day.AddDate(0, 0, 1) {
		// Each following day the episode weakens by a third.
		plume := Plume{Center: center, PeakUgM3: *peak * math.Pow(2.0/3.0, float64(d)), Background: 4, SigmaKm: 30}

		objectURL, err := loc.Locate(domain.ForecastRequest{Source: domain.SourceNAQFC, Date: day, Cycle: *cycle})
		if err != nil {
			log.Fatalf("Failed to locate %s: %v", day.Format(domain.DateLayout), err)
		}
		u, err := url.Parse(objectURL)
		if err != nil {
			log.Fatalf("Invalid object URL %s: %v", objectURL, err)
		}
		gridPath := filepath.FromSlash(u.Path)

		if err := writeSteps(gridPath, grid, plume, 25); err != nil {
			log.Printf("Warning: Failed to generate grid for %s: %v", day.Format(domain.DateLayout), err)
			continue
		}
		if err := writeGroundTruth(truth.Path(*location, day), plume, *bias); err != nil {
			log.Printf("Warning: Failed to write ground truth for %s: %v", day.Format(domain.DateLayout), err)
			continue
		}
		log.Printf("✓ Generated %s", gridPath)
	}

	log.Printf("=== Generation Complete ===")
	log.Printf("NAQFC_BASE_URL=file://%s", filepath.ToSlash(absOut))
	log.Printf("DATA_DIR=%s FORECASTS=naqfc NAQFC_CYCLE=%d", *dataDir, *cycle)
}

// writeSteps writes a [step, latitude, longitude] pmtf variable. The file is
// netCDF even though the archive name ends in .grib2; the decoder sniffs content.
func writeSteps(path string, grid RegionalGrid, plume Plume, steps int) error {
	nLat := int(math.Round((grid.LatMax-grid.LatMin)/grid.Resolution)) + 1
	nLon := int(math.Round((grid.LonMax-grid.LonMin)/grid.Resolution)) + 1

	lat := make([]float64, nLat)
	for i := range lat {
		lat[i] = grid.LatMin + float64(i)*grid.Resolution
	}
	lon := make([]float64, nLon)
	for j := range lon {
		// Archive grids use 0-360 longitudes.
		lon[j] = math.Mod(grid.LonMin+float64(j)*grid.Resolution+360, 360)
	}

	data := make([]float32, 0, steps*nLat*nLon)
	for s := 0; s < steps; s++ {
		for i := 0; i < nLat; i++ {
			for j := 0; j < nLon; j++ {
				c := domain.Coordinate{Latitude: lat[i], Longitude: grid.LonMin + float64(j)*grid.Resolution}
				data = append(data, float32(plume.Value(c, s)))
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer ds.Close()

	stepDim, err := ds.AddDim("step", uint64(steps))
	if err != nil {
		return err
	}
	latDim, err := ds.AddDim("latitude", uint64(nLat))
	if err != nil {
		return err
	}
	lonDim, err := ds.AddDim("longitude", uint64(nLon))
	if err != nil {
		return err
	}

	latVar, err := ds.AddVar("latitude", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return err
	}
	lonVar, err := ds.AddVar("longitude", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return err
	}
	dataVar, err := ds.AddVar("pmtf", netcdf.FLOAT, []netcdf.Dim{stepDim, latDim, lonDim})
	if err != nil {
		return err
	}
	if err := dataVar.Attr("units").WriteBytes([]byte("ug/m3")); err != nil {
		return err
	}

	if err := latVar.WriteFloat64s(lat); err != nil {
		return err
	}
	if err := lonVar.WriteFloat64s(lon); err != nil {
		return err
	}
	return dataVar.WriteFloat32s(data)
}

// writeGroundTruth writes hourly observations at the plume center. Hour h of
// the day matches forecast step h-12.
func writeGroundTruth(path string, plume Plume, bias float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "ValidTime,PM25"); err != nil {
		return err
	}
	for h := 0; h < 24; h++ {
		step := h - 12
		if step < 0 {
			step += 24
		}
		v := domain.Round(plume.Value(plume.Center, step)*bias, 1)
		if _, err := fmt.Fprintf(f, "%d,%.1f\n", h, v); err != nil {
			return err
		}
	}
	return nil
}

// writeGazetteer writes a gazetteer holding only the reference location,
// unless one already exists.
func writeGazetteer(path, name string, lat, lon float64) error {
	if _, err := os.Stat(path); err == nil {
		log.Printf("Keeping existing gazetteer %s", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content := fmt.Sprintf("GEOID\tNAME\tINTPTLAT\tINTPTLONG\n00000\t%s\t%.6f\t%.6f\n", name, lat, lon)
	return os.WriteFile(path, []byte(content), 0o644)
}
