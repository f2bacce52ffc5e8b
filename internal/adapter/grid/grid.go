// Package grid decodes downloaded forecast files into flat latitude/longitude/value planes.
package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"go.ngs.io/pm25-assess/internal/domain"
)

// Format is the container format of a grid file.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatGRIB
	FormatNetCDF
)

func (f Format) String() string {
	switch f {
	case FormatGRIB:
		return "grib"
	case FormatNetCDF:
		return "netcdf"
	default:
		return "unknown"
	}
}

// ValuePrecision is the number of decimals decoded values are rounded to.
const ValuePrecision = 2

// Grid is a decoded file: one set of coordinates shared by one or more value
// planes (GRIB messages or netCDF steps), all flattened in the same order.
type Grid struct {
	Latitude  []float64
	Longitude []float64
	Planes    [][]float64
}

// NumPlanes returns the number of value planes.
func (g *Grid) NumPlanes() int {
	if g == nil {
		return 0
	}
	return len(g.Planes)
}

// Validate checks that every plane has one value per coordinate.
func (g *Grid) Validate() error {
	if len(g.Latitude) != len(g.Longitude) {
		return fmt.Errorf("%w: latitude=%d longitude=%d", domain.ErrGridShapeMismatch, len(g.Latitude), len(g.Longitude))
	}
	for i, p := range g.Planes {
		if len(p) != len(g.Latitude) {
			return fmt.Errorf("%w: plane %d has %d values for %d coordinates",
				domain.ErrGridShapeMismatch, i, len(p), len(g.Latitude))
		}
	}
	return nil
}

// Frame converts plane i into a GridFrame: values are multiplied by scale and
// rounded to ValuePrecision, longitudes are normalised to [-180, 180).
func (g *Grid) Frame(i int, scale float64, validTime int) (domain.GridFrame, error) {
	if i < 0 || i >= len(g.Planes) {
		return domain.GridFrame{}, fmt.Errorf("plane %d out of range (file has %d)", i, len(g.Planes))
	}
	if err := g.Validate(); err != nil {
		return domain.GridFrame{}, err
	}

	n := len(g.Latitude)
	frame := domain.GridFrame{
		Latitude:  make([]float64, n),
		Longitude: make([]float64, n),
		Value:     make([]float64, n),
		ValidTime: validTime,
	}
	copy(frame.Latitude, g.Latitude)
	for j, lon := range g.Longitude {
		frame.Longitude[j] = NormalizeLon(lon)
	}
	for j, v := range g.Planes[i] {
		frame.Value[j] = domain.Round(v*scale, ValuePrecision)
	}
	return frame, nil
}

// NormalizeLon maps a longitude in degrees into [-180, 180).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180.0, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon - 180.0
}

// Sniff reports the format of the file at path from its magic bytes.
func Sniff(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open grid file: %w", err)
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return FormatUnknown, nil
		}
		return FormatUnknown, fmt.Errorf("failed to read grid header: %w", err)
	}
	return sniffMagic(magic), nil
}

func sniffMagic(magic []byte) Format {
	switch {
	case string(magic) == "GRIB":
		return FormatGRIB
	case string(magic[:3]) == "CDF" && (magic[3] == 1 || magic[3] == 2 || magic[3] == 5):
		return FormatNetCDF
	case string(magic) == "\x89HDF":
		return FormatNetCDF
	default:
		return FormatUnknown
	}
}

// Decoder turns a grid file into a Grid. variable names the field to read;
// an empty variable reads every field the file holds (GRIB) or the first
// gridded one (netCDF).
type Decoder interface {
	Decode(ctx context.Context, path, variable string) (*Grid, error)
}

// FileDecoder dispatches on the sniffed file format.
type FileDecoder struct {
	grib *GribReader
}

// NewFileDecoder creates a decoder that runs gribGetData for GRIB files.
// An empty name uses DefaultGribGetData.
func NewFileDecoder(gribGetData string) *FileDecoder {
	return &FileDecoder{grib: NewGribReader(gribGetData)}
}

// Decode implements Decoder.
func (d *FileDecoder) Decode(ctx context.Context, path, variable string) (*Grid, error) {
	format, err := Sniff(path)
	if err != nil {
		return nil, err
	}

	var g *Grid
	switch format {
	case FormatGRIB:
		g, err = d.grib.Read(ctx, path, variable)
	case FormatNetCDF:
		g, err = ReadNetCDF(path, variable)
	default:
		return nil, fmt.Errorf("unrecognised grid file format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s file: %w", format, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if g.NumPlanes() == 0 {
		return nil, fmt.Errorf("no value planes decoded from %s", path)
	}
	return g, nil
}
