package locator

import (
	"fmt"
	"net/url"
	"path"
	"slices"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

const (
	// DefaultHRRRBaseURL is the public HRRR archive on AWS.
	DefaultHRRRBaseURL = "https://noaa-hrrr-bdp-pds.s3.amazonaws.com"
	// DefaultNAQFCBaseURL is the public NAQFC archive on AWS.
	DefaultNAQFCBaseURL = "https://noaa-nws-naqfc-pds.s3.amazonaws.com"

	manifestSuffix = ".idx"
)

// Locator resolves a forecast request into a fetchable URL.
type Locator interface {
	Locate(req domain.ForecastRequest) (string, error)
}

// HRRR locates hourly surface files (wrfsfc) of the HRRR CONUS archive.
type HRRR struct {
	baseURL string
	sector  string
	epochs  EpochTable
}

// NewHRRR creates an HRRR locator. An empty baseURL selects the AWS archive.
func NewHRRR(baseURL string, epochs EpochTable) *HRRR {
	if baseURL == "" {
		baseURL = DefaultHRRRBaseURL
	}
	return &HRRR{baseURL: baseURL, sector: "conus", epochs: epochs}
}

// Locate returns the URL of the wrfsfcf file for req.Cycle and req.LeadTime.
func (l *HRRR) Locate(req domain.ForecastRequest) (string, error) {
	if req.Cycle < 0 || req.Cycle > 23 {
		return "", fmt.Errorf("%w: hrrr cycle must be in [0, 23], got %d", domain.ErrInvalidCycle, req.Cycle)
	}
	epoch, err := l.epochs.Select(req.Date)
	if err != nil {
		return "", err
	}
	if req.LeadTime < 0 || req.LeadTime > epoch.MaxLeadHours {
		return "", fmt.Errorf("%w: hrrr leadtime must be in [0, %d], got %d",
			domain.ErrInvalidLeadTime, epoch.MaxLeadHours, req.LeadTime)
	}

	fileName := fmt.Sprintf("hrrr.t%02dz.wrfsfcf%02d.grib2", req.Cycle, req.LeadTime)
	return joinURL(l.baseURL, "hrrr."+req.Date.UTC().Format("20060102"), l.sector, fileName)
}

// ManifestURL returns the byte-offset index published next to a grid object.
func (l *HRRR) ManifestURL(objectURL string) string {
	return objectURL + manifestSuffix
}

// NAQFC locates the bias-corrected hourly PM2.5 files of the NAQFC archive.
// Each file holds every forecast step of one cycle.
type NAQFC struct {
	baseURL string
	product string
	cycles  []int
	epochs  EpochTable
}

// NewNAQFC creates an NAQFC locator. An empty baseURL selects the AWS archive.
func NewNAQFC(baseURL string, epochs EpochTable) *NAQFC {
	if baseURL == "" {
		baseURL = DefaultNAQFCBaseURL
	}
	return &NAQFC{
		baseURL: baseURL,
		product: "ave_1hr_pm25_bc",
		cycles:  []int{6, 12},
		epochs:  epochs,
	}
}

// Locate returns the URL of the cycle file for req.Date. LeadTime is ignored.
func (l *NAQFC) Locate(req domain.ForecastRequest) (string, error) {
	if !slices.Contains(l.cycles, req.Cycle) {
		return "", fmt.Errorf("%w: naqfc cycle must be one of %v, got %d", domain.ErrInvalidCycle, l.cycles, req.Cycle)
	}
	epoch, err := l.epochs.Select(req.Date)
	if err != nil {
		return "", err
	}

	date := req.Date.UTC().Format("20060102")
	cycle := fmt.Sprintf("%02d", req.Cycle)
	fileName := fmt.Sprintf("aqm.t%sz.%s.%s.227.grib2", cycle, l.product, date)
	return joinURL(l.baseURL, epoch.Name, "CS", date, cycle, fileName)
}

// Epoch returns the archive epoch covering date.
func (l *NAQFC) Epoch(date time.Time) (Epoch, error) {
	return l.epochs.Select(date)
}

// joinURL appends path elements to base, which may be an http(s) or gs URL.
func joinURL(base string, elems ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	u.Path = path.Join(append([]string{"/", u.Path}, elems...)...)
	return u.String(), nil
}
