package csv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

// LocationPeriod is one line of a location file: a gazetteer name and an
// inclusive date range.
type LocationPeriod struct {
	Location string
	Start    time.Time
	End      time.Time
}

// LoadLocationFile reads "<location>;<YYYY-MM-DD>;<YYYY-MM-DD>" lines.
func LoadLocationFile(path string) ([]LocationPeriod, error) {
	//nolint:gosec // G304: Path is given on the command line.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open location file: %w", err)
	}
	defer func() { _ = file.Close() }()

	periods, err := ParseLocations(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return periods, nil
}

// ParseLocations parses location file lines from r. Blank lines are skipped.
// Location names may contain commas, so fields are split on ';' only.
func ParseLocations(r io.Reader) ([]LocationPeriod, error) {
	scanner := bufio.NewScanner(r)
	periods := make([]LocationPeriod, 0)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 ';'-separated fields, got %d", lineNum, len(fields))
		}

		start, err := time.Parse(domain.DateLayout, strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid start date: %w", lineNum, err)
		}
		end, err := time.Parse(domain.DateLayout, strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid end date: %w", lineNum, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("line %d: end date %s is before start date %s",
				lineNum, end.Format(domain.DateLayout), start.Format(domain.DateLayout))
		}

		periods = append(periods, LocationPeriod{
			Location: strings.TrimSpace(fields[0]),
			Start:    start,
			End:      end,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read location file: %w", err)
	}
	return periods, nil
}
