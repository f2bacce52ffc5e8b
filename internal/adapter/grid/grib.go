package grid

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"go.ngs.io/pm25-assess/internal/domain"
)

// DefaultGribGetData is the ecCodes tool used to dump GRIB messages as text.
const DefaultGribGetData = "grib_get_data"

// MissingToken is printed by grib_get_data in place of missing values.
const MissingToken = "MISSING"

// GribReader decodes GRIB files by running the ecCodes grib_get_data tool.
type GribReader struct {
	binary string
}

// NewGribReader returns a reader that runs binary (DefaultGribGetData when empty).
func NewGribReader(binary string) *GribReader {
	if binary == "" {
		binary = DefaultGribGetData
	}
	return &GribReader{binary: binary}
}

// Args returns the command-line arguments used for path. A non-empty variable
// restricts output to messages with that shortName.
func (r *GribReader) Args(path, variable string) []string {
	args := []string{"-m", MissingToken}
	if variable != "" {
		args = append(args, "-w", "shortName="+variable)
	}
	return append(args, path)
}

// Read decodes every message of the file into one plane each.
func (r *GribReader) Read(ctx context.Context, path, variable string) (*Grid, error) {
	cmd := exec.CommandContext(ctx, r.binary, r.Args(path, variable)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to attach to %s: %w", r.binary, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", r.binary, err)
	}

	g, parseErr := ParseGribText(stdout)
	if parseErr != nil {
		// Drain so the tool is not blocked writing to a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		log.Printf("grid: %s error output: %s", r.binary, strings.TrimSpace(stderr.String()))
		return nil, fmt.Errorf("%s failed on %s: %w", r.binary, path, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return g, nil
}

// ParseGribText parses grib_get_data output. Each message starts with a
// header line ("Latitude Longitude Value") followed by one line per grid
// point. All messages must share the coordinates of the first one.
func ParseGribText(r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	g := &Grid{}
	var (
		plane   []float64
		message = -1
		point   int
		lineNum int
	)

	flush := func() error {
		if message < 0 {
			return nil
		}
		if message > 0 && point != len(g.Latitude) {
			return fmt.Errorf("message %d has %d points, first message has %d: %w",
				message+1, point, len(g.Latitude), domain.ErrGridShapeMismatch)
		}
		g.Planes = append(g.Planes, plane)
		return nil
	}

	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(strings.ReplaceAll(scanner.Text(), ",", " "))
		if len(fields) == 0 {
			continue
		}

		lat, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			// Header line: a new message begins.
			if err := flush(); err != nil {
				return nil, err
			}
			message++
			point = 0
			plane = make([]float64, 0, len(g.Latitude))
			continue
		}
		if message < 0 {
			return nil, fmt.Errorf("line %d: data before header", lineNum)
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", lineNum, len(fields))
		}

		lon, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid longitude %q: %w", lineNum, fields[1], err)
		}
		val := math.NaN()
		if fields[2] != MissingToken {
			val, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q: %w", lineNum, fields[2], err)
			}
		}

		if message == 0 {
			g.Latitude = append(g.Latitude, lat)
			g.Longitude = append(g.Longitude, lon)
		} else if point >= len(g.Latitude) {
			return nil, fmt.Errorf("line %d: message %d has more points than the first: %w", lineNum, message+1, domain.ErrGridShapeMismatch)
		}
		plane = append(plane, val)
		point++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read grib_get_data output: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return g, nil
}
