// Package fetch downloads forecast grid objects, whole or by byte range.
package fetch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.ngs.io/pm25-assess/internal/domain"
)

// ErrEntryNotFound is returned when a manifest has no line for the requested variable.
// It wraps domain.ErrDownloadFailure.
var ErrEntryNotFound = fmt.Errorf("%w: manifest entry not found", domain.ErrDownloadFailure)

// ManifestEntry is one line of a GRIB index (.idx) file, e.g.
//
//	71:43563123:d=2023010200:MASSDEN:8 m above ground:7 hour fcst:
type ManifestEntry struct {
	Index    int
	Offset   int64
	Date     string
	Variable string
	Level    string
	Forecast string
}

// ParseManifest reads index lines from r. Blank lines are skipped.
func ParseManifest(r io.Reader) ([]ManifestEntry, error) {
	scanner := bufio.NewScanner(r)
	entries := make([]ManifestEntry, 0, 128)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 2 {
			return nil, fmt.Errorf("manifest line %d: expected at least 2 fields, got %d", lineNum, len(fields))
		}

		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: invalid index %q: %w", lineNum, fields[0], err)
		}
		offset, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: invalid offset %q: %w", lineNum, fields[1], err)
		}

		entry := ManifestEntry{Index: index, Offset: offset}
		if len(fields) > 2 {
			entry.Date = fields[2]
		}
		if len(fields) > 3 {
			entry.Variable = fields[3]
		}
		if len(fields) > 4 {
			entry.Level = fields[4]
		}
		if len(fields) > 5 {
			entry.Forecast = fields[5]
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan manifest: %w", err)
	}
	return entries, nil
}

// ByteRange is a slice of a remote object. A bounded range covers
// [Start, End); an unbounded range runs from Start to the end of the object.
type ByteRange struct {
	Start   int64
	End     int64
	Bounded bool
}

// Length returns the number of bytes in a bounded range, or -1 when unbounded.
func (r ByteRange) Length() int64 {
	if !r.Bounded {
		return -1
	}
	return r.End - r.Start
}

// Header renders the range as an HTTP Range header value. HTTP ranges are
// inclusive, so a bounded range ends at End-1.
func (r ByteRange) Header() string {
	if !r.Bounded {
		return fmt.Sprintf("bytes=%d-", r.Start)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1)
}

func (r ByteRange) String() string {
	if !r.Bounded {
		return fmt.Sprintf("[%d, EOF)", r.Start)
	}
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// FindRange returns the byte range of the first entry whose variable equals
// variable. The range ends at the next listed offset; the last entry of the
// manifest yields an unbounded range.
func FindRange(entries []ManifestEntry, variable string) (ByteRange, error) {
	for i, e := range entries {
		if e.Variable != variable {
			continue
		}
		if i+1 == len(entries) {
			return ByteRange{Start: e.Offset}, nil
		}
		next := entries[i+1].Offset
		if next <= e.Offset {
			return ByteRange{}, fmt.Errorf("%w: manifest offsets not increasing at entry %d (%d -> %d)",
				domain.ErrDownloadFailure, e.Index, e.Offset, next)
		}
		return ByteRange{Start: e.Offset, End: next, Bounded: true}, nil
	}
	return ByteRange{}, fmt.Errorf("%w: variable %s", ErrEntryNotFound, variable)
}

// IsEntryNotFound reports whether err is a missing manifest entry.
func IsEntryNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}
