// Package hrrr builds forecast tables from the HRRR smoke (MASSDEN) field.
package hrrr

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.ngs.io/pm25-assess/internal/adapter/fetch"
	"go.ngs.io/pm25-assess/internal/adapter/grid"
	"go.ngs.io/pm25-assess/internal/adapter/locator"
	"go.ngs.io/pm25-assess/internal/adapter/source"
	"go.ngs.io/pm25-assess/internal/domain"
)

const (
	// Variable is the manifest name of near-surface smoke mass density.
	Variable = "MASSDEN"
	// Scale converts kg m-3 to µg m-3.
	Scale = 1e9
)

// Config configures the HRRR pipeline.
type Config struct {
	BaseURL   string
	Cycle     int
	LeadTimes []int
	Epochs    locator.EpochTable
}

// DefaultConfig returns the 00Z cycle with leadtimes 1 through 24.
func DefaultConfig() Config {
	return Config{
		BaseURL:   locator.DefaultHRRRBaseURL,
		Cycle:     0,
		LeadTimes: source.Hours(1, 24),
		Epochs:    locator.DefaultHRRREpochs(),
	}
}

// Pipeline fetches one MASSDEN message per leadtime through the file's
// byte-range manifest.
type Pipeline struct {
	cfg     Config
	locator *locator.HRRR
	fetcher fetch.Fetcher
	decoder grid.Decoder
}

// New creates an HRRR pipeline.
func New(cfg Config, f fetch.Fetcher, d grid.Decoder) (*Pipeline, error) {
	if err := cfg.Epochs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hrrr epochs: %w", err)
	}
	if len(cfg.LeadTimes) == 0 {
		return nil, fmt.Errorf("%w: no hrrr leadtimes configured", domain.ErrInvalidLeadTime)
	}
	return &Pipeline{
		cfg:     cfg,
		locator: locator.NewHRRR(cfg.BaseURL, cfg.Epochs),
		fetcher: f,
		decoder: d,
	}, nil
}

// Name implements source.Pipeline.
func (p *Pipeline) Name() string {
	return domain.SourceHRRR
}

// Build implements source.Pipeline. ValidTime of each frame is cycle + leadtime.
// Any failing leadtime fails the whole table.
func (p *Pipeline) Build(ctx context.Context, date time.Time) (*domain.ForecastTable, error) {
	frames := make([]domain.GridFrame, 0, len(p.cfg.LeadTimes))
	for _, lead := range p.cfg.LeadTimes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req := domain.ForecastRequest{Source: domain.SourceHRRR, Date: date, Cycle: p.cfg.Cycle, LeadTime: lead}
		frame, err := p.frame(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req, err)
		}
		frames = append(frames, frame)
	}
	return domain.NewTable(domain.SourceHRRR, frames...)
}

func (p *Pipeline) frame(ctx context.Context, req domain.ForecastRequest) (domain.GridFrame, error) {
	objectURL, err := p.locator.Locate(req)
	if err != nil {
		return domain.GridFrame{}, err
	}

	tmp, err := fetch.FetchVariable(ctx, p.fetcher, objectURL, p.locator.ManifestURL(objectURL), Variable)
	if err != nil {
		return domain.GridFrame{}, err
	}
	defer func() {
		if err := tmp.Release(); err != nil {
			log.Printf("hrrr: %v", err)
		}
	}()

	// The fetched range holds a single message, so no variable filter is needed.
	g, err := p.decoder.Decode(ctx, tmp.Path, "")
	if err != nil {
		return domain.GridFrame{}, err
	}
	if g.NumPlanes() != 1 {
		log.Printf("hrrr: Warning: %s decoded %d messages, using the first", req, g.NumPlanes())
	}
	return g.Frame(0, Scale, req.Cycle+req.LeadTime)
}
