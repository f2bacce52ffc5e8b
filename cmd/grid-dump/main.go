// Command grid-dump decodes one forecast grid file and prints its shape, value
// range and first cells. The input may be a local path or an http(s), gs or
// file URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"

	"go.ngs.io/pm25-assess/internal/adapter/fetch"
	"go.ngs.io/pm25-assess/internal/adapter/grid"
)

func main() {
	variable := flag.String("var", "", "Variable (GRIB shortName or netCDF name); empty picks the first PM2.5 field")
	scale := flag.Float64("scale", 1, "Scale applied to values (1e9 for HRRR MASSDEN)")
	rows := flag.Int("rows", 5, "Number of cells to print per plane")
	gribGetData := flag.String("grib_get_data", grid.DefaultGribGetData, "Path to the ecCodes grib_get_data binary")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: grid-dump [flags] <path-or-url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	target := flag.Arg(0)
	ctx := context.Background()

	path := target
	if strings.Contains(target, "://") {
		client := fetch.NewClient()
		defer client.Close()
		tmp, err := client.FetchObject(ctx, target)
		if err != nil {
			log.Fatalf("Failed to fetch %s: %v", target, err)
		}
		defer tmp.Release()
		path = tmp.Path
	}

	format, err := grid.Sniff(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	fmt.Printf("File: %s\nFormat: %s\n", target, format)

	g, err := grid.NewFileDecoder(*gribGetData).Decode(ctx, path, *variable)
	if err != nil {
		log.Fatalf("Failed to decode: %v", err)
	}
	fmt.Printf("Cells: %d  Planes: %d\n", len(g.Latitude), g.NumPlanes())

	for i := 0; i < g.NumPlanes(); i++ {
		frame, err := g.Frame(i, *scale, i)
		if err != nil {
			log.Fatalf("Plane %d: %v", i, err)
		}
		valid := finite(frame.Value)
		if len(valid) == 0 {
			fmt.Printf("Plane %d: all values missing\n", i)
			continue
		}
		fmt.Printf("Plane %d: min=%.2f max=%.2f missing=%d\n",
			i, floats.Min(valid), floats.Max(valid), frame.Len()-len(valid))
		for j := 0; j < *rows && j < frame.Len(); j++ {
			fmt.Printf("  %9.4f %10.4f %10.2f\n", frame.Latitude[j], frame.Longitude[j], frame.Value[j])
		}
	}
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
