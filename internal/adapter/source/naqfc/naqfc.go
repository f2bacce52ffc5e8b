// Package naqfc builds forecast tables from the NAQFC bias-corrected PM2.5 product.
package naqfc

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
	// Variable is the PM2.5 field of the multi-step file.
	Variable = "pmtf"
	// DefaultValidTimeBase is added to the step index to form ValidTime.
	DefaultValidTimeBase = 12
)

// Config configures the NAQFC pipeline.
type Config struct {
	BaseURL       string
	Cycle         int   // 6 or 12.
	Steps         []int // Step indices of the multi-step file.
	ValidTimeBase int
	Epochs        locator.EpochTable
}

// DefaultConfig returns the 06Z cycle with steps 1 through 24.
func DefaultConfig() Config {
	return Config{
		BaseURL:       locator.DefaultNAQFCBaseURL,
		Cycle:         6,
		Steps:         source.Hours(1, 24),
		ValidTimeBase: DefaultValidTimeBase,
		Epochs:        locator.DefaultNAQFCEpochs(),
	}
}

// Pipeline downloads the whole cycle file once and slices its steps.
type Pipeline struct {
	cfg     Config
	locator *locator.NAQFC
	fetcher fetch.Fetcher
	decoder grid.Decoder
}

// New creates an NAQFC pipeline.
func New(cfg Config, f fetch.Fetcher, d grid.Decoder) (*Pipeline, error) {
	if err := cfg.Epochs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid naqfc epochs: %w", err)
	}
	if len(cfg.Steps) == 0 {
		return nil, fmt.Errorf("%w: no naqfc steps configured", domain.ErrInvalidLeadTime)
	}
	return &Pipeline{
		cfg:     cfg,
		locator: locator.NewNAQFC(cfg.BaseURL, cfg.Epochs),
		fetcher: f,
		decoder: d,
	}, nil
}

// Name implements source.Pipeline.
func (p *Pipeline) Name() string {
	return domain.SourceNAQFC
}

// Build implements source.Pipeline. ValidTime of step i is ValidTimeBase + i.
func (p *Pipeline) Build(ctx context.Context, date time.Time) (*domain.ForecastTable, error) {
	req := domain.ForecastRequest{Source: domain.SourceNAQFC, Date: date, Cycle: p.cfg.Cycle}
	objectURL, err := p.locator.Locate(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req, err)
	}

	tmp, err := p.fetcher.FetchObject(ctx, objectURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req, err)
	}
	defer func() {
		if err := tmp.Release(); err != nil {
			log.Printf("naqfc: %v", err)
		}
	}()

	g, err := p.decoder.Decode(ctx, tmp.Path, Variable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req, err)
	}

	frames := make([]domain.GridFrame, 0, len(p.cfg.Steps))
	for _, step := range p.cfg.Steps {
		if step < 0 || step >= g.NumPlanes() {
			return nil, fmt.Errorf("%s: %w: step %d not in file with %d steps",
				req, domain.ErrInvalidLeadTime, step, g.NumPlanes())
		}
		frame, err := g.Frame(step, 1, p.cfg.ValidTimeBase+step)
		if err != nil {
			return nil, fmt.Errorf("%s step %d: %w", req, step, err)
		}
		frames = append(frames, frame)
	}
	return domain.NewTable(domain.SourceNAQFC, frames...)
}
