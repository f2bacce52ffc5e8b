package grid

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/pm25-assess/internal/domain"
)

var (
	latNames = []string{"latitude", "lat", "gridlat_0", "y"}
	lonNames = []string{"longitude", "lon", "gridlon_0", "x"}

	// Tried in order when no variable is requested.
	valueNames = []string{"pmtf", "PMTF", "pm25", "PM25", "MASSDEN", "mdens", "unknown", "data", "z"}
)

// ReadNetCDF decodes a netCDF grid. Coordinates may be 1-D axes, which are
// meshed, or 2-D arrays matching the value plane. The value variable is
// either 2-D [y, x] (one plane) or 3-D [step, y, x].
//
//nolint:gocyclo // Several coordinate layouts are accepted.
func ReadNetCDF(path, variable string) (*Grid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	lat, latShape, err := readFirst(nc, latNames)
	if err != nil {
		return nil, fmt.Errorf("latitude variable not found (tried: %v): %w", latNames, err)
	}
	lon, lonShape, err := readFirst(nc, lonNames)
	if err != nil {
		return nil, fmt.Errorf("longitude variable not found (tried: %v): %w", lonNames, err)
	}

	names := valueNames
	if variable != "" {
		names = []string{variable}
	}
	var (
		dataVar   netcdf.Var
		dataFound bool
	)
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			dataVar = v
			dataFound = true
			break
		}
	}
	if !dataFound {
		return nil, fmt.Errorf("data variable not found (tried: %v)", names)
	}

	values, shape, err := readVar(dataVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	nPlanes := 1
	switch len(shape) {
	case 2:
	case 3:
		nPlanes = shape[0]
		shape = shape[1:]
	default:
		return nil, fmt.Errorf("expected 2D or 3D data, got %dD", len(shape))
	}
	rows, cols := shape[0], shape[1]

	var latFlat, lonFlat []float64
	switch {
	case len(latShape) == 2 && len(lonShape) == 2:
		if latShape[0] != rows || latShape[1] != cols || lonShape[0] != rows || lonShape[1] != cols {
			return nil, fmt.Errorf("%w: coordinates are %v and %v, data plane is [%d, %d]",
				domain.ErrGridShapeMismatch, latShape, lonShape, rows, cols)
		}
		latFlat, lonFlat = lat, lon
	case len(latShape) == 1 && len(lonShape) == 1:
		nLat, nLon := len(lat), len(lon)
		switch {
		case rows == nLat && cols == nLon:
			// Data is [lat, lon].
			latFlat, lonFlat = mesh(lat, lon)
		case rows == nLon && cols == nLat:
			// Data is [lon, lat].
			lonFlat, latFlat = mesh(lon, lat)
		default:
			return nil, fmt.Errorf("%w: data plane is [%d, %d], expected [%d, %d] or [%d, %d]",
				domain.ErrGridShapeMismatch, rows, cols, nLat, nLon, nLon, nLat)
		}
	default:
		return nil, fmt.Errorf("%w: latitude is %dD, longitude is %dD",
			domain.ErrGridShapeMismatch, len(latShape), len(lonShape))
	}

	if fv, ok := getFillValue(dataVar); ok {
		for i, v := range values {
			if v == fv {
				values[i] = math.NaN()
			}
		}
	}

	size := rows * cols
	g := &Grid{
		Latitude:  latFlat,
		Longitude: lonFlat,
		Planes:    make([][]float64, nPlanes),
	}
	for p := 0; p < nPlanes; p++ {
		g.Planes[p] = values[p*size : (p+1)*size]
	}
	return g, nil
}

// mesh expands two axes into row-major flattened coordinate pairs.
func mesh(outer, inner []float64) ([]float64, []float64) {
	a := make([]float64, 0, len(outer)*len(inner))
	b := make([]float64, 0, len(outer)*len(inner))
	for _, o := range outer {
		for _, in := range inner {
			a = append(a, o)
			b = append(b, in)
		}
	}
	return a, b
}

func readFirst(nc netcdf.Dataset, names []string) ([]float64, []int, error) {
	var lastErr error = fmt.Errorf("no candidate present")
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		data, shape, err := readVar(v)
		if err != nil {
			lastErr = err
			continue
		}
		if len(shape) == 1 || len(shape) == 2 {
			return data, shape, nil
		}
		lastErr = fmt.Errorf("%s is %dD", name, len(shape))
	}
	return nil, nil, lastErr
}

// getFillValue returns the _FillValue or missing_value attribute if present as float64.
func getFillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		if a == (netcdf.Attr{}) {
			continue
		}
		if n, err := a.Len(); err == nil && n > 0 {
			buf64 := make([]float64, 1)
			if err := a.ReadFloat64s(buf64); err == nil {
				return buf64[0], true
			}
			buf32 := make([]float32, 1)
			if err := a.ReadFloat32s(buf32); err == nil {
				return float64(buf32[0]), true
			}
			bufi := make([]int32, 1)
			if err := a.ReadInt32s(bufi); err == nil {
				return float64(bufi[0]), true
			}
		}
	}
	return 0, false
}

// readVar reads a variable of any rank as a flat float64 slice plus its shape.
func readVar(v netcdf.Var) ([]float64, []int, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	shape := make([]int, len(dims))
	total := 1
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		shape[i] = int(n)
		total *= int(n)
	}

	t, err := v.Type()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get var type: %w", err)
	}

	var flat []float64
	switch t {
	case netcdf.DOUBLE:
		flat = make([]float64, total)
		if err := v.ReadFloat64s(flat); err != nil {
			return nil, nil, err
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, nil, err
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, nil, err
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, nil, err
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported var type: %v", t)
	}
	return flat, shape, nil
}
