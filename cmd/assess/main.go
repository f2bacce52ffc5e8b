// Command assess compares gridded PM2.5 forecasts against ground-truth
// observations for every location period in a location file and writes one
// result document per location and day.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.ngs.io/pm25-assess/internal/adapter/fetch"
	"go.ngs.io/pm25-assess/internal/adapter/grid"
	"go.ngs.io/pm25-assess/internal/adapter/source"
	"go.ngs.io/pm25-assess/internal/adapter/source/hrrr"
	"go.ngs.io/pm25-assess/internal/adapter/source/naqfc"
	"go.ngs.io/pm25-assess/internal/adapter/store/csv"
	"go.ngs.io/pm25-assess/internal/adapter/store/results"
	"go.ngs.io/pm25-assess/internal/config"
	"go.ngs.io/pm25-assess/internal/domain"
	"go.ngs.io/pm25-assess/internal/metric"
	"go.ngs.io/pm25-assess/internal/usecase"
)

func main() {
	locationFile := flag.String("location_file", "", "File of <location>;<start>;<end> lines (required)")
	figureName := flag.String("figure_name", "tmp.pdf", "Output figure name (recorded only)")
	flag.Parse()

	if *locationFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: assess --location_file <path> [--figure_name <name>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	periods, err := csv.LoadLocationFile(*locationFile)
	if err != nil {
		log.Fatalf("Failed to read location file: %v", err)
	}
	gazetteer, err := csv.LoadGazetteer(cfg.GazetteerPath)
	if err != nil {
		log.Fatalf("Failed to load gazetteer: %v", err)
	}

	log.Printf("=== PM2.5 Forecast Assessment ===")
	log.Printf("Location file: %s (%d periods)", *locationFile, len(periods))
	log.Printf("Gazetteer: %s (%d places)", cfg.GazetteerPath, gazetteer.Len())
	log.Printf("Forecasts: %v", cfg.Forecasts)
	log.Printf("Results directory: %s", cfg.ResultsDir)
	log.Printf("Figure: %s", *figureName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient(fetch.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}))
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("Warning: failed to close fetch client: %v", err)
		}
	}()
	var fetcher fetch.Fetcher = client
	if cfg.FetchRetries > 0 {
		rc := fetch.DefaultRetryConfig()
		rc.MaxRetries = uint64(cfg.FetchRetries)
		fetcher = fetch.WithRetry(client, rc)
	}

	pipelines, err := buildPipelines(cfg, fetcher, grid.NewFileDecoder(cfg.GribGetData))
	if err != nil {
		log.Fatalf("Failed to configure forecasts: %v", err)
	}

	builder := usecase.NewDailyBuilder(gazetteer, csv.NewGroundTruthStore(cfg.DataDir), pipelines, cfg.NeighborRadiusKm)
	store := results.NewStore(cfg.ResultsDir)

	failed := 0
	for _, p := range periods {
		log.Printf("Assessing %s from %s to %s", p.Location,
			p.Start.Format(domain.DateLayout), p.End.Format(domain.DateLayout))

		exp, err := usecase.NewExperiment(p.Location, p.Start, p.End, metric.Default(), builder, store)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", p.Location, err)
			failed++
			continue
		}
		outcomes, err := exp.Run(ctx)
		summary := usecase.Summarize(outcomes)
		log.Printf("  %s: %d persisted, %d skipped, %d failed", p.Location,
			summary[usecase.StatusPersisted], summary[usecase.StatusSkipped], summary[usecase.StatusFailed])
		if err != nil {
			log.Fatalf("Assessment interrupted: %v", err)
		}
		failed += summary[usecase.StatusFailed]
	}

	log.Printf("=== Assessment Complete ===")
	if failed > 0 {
		log.Printf("%d days or periods failed", failed)
		os.Exit(1)
	}
}

// buildPipelines registers every known source and returns the configured ones
// in configuration order.
func buildPipelines(cfg *config.Config, fetcher fetch.Fetcher, decoder grid.Decoder) ([]source.Pipeline, error) {
	hrrrCfg := hrrr.DefaultConfig()
	hrrrCfg.BaseURL = cfg.HRRRBaseURL
	hrrrCfg.Cycle = cfg.HRRRCycle
	hrrrPipeline, err := hrrr.New(hrrrCfg, fetcher, decoder)
	if err != nil {
		return nil, err
	}

	naqfcCfg := naqfc.DefaultConfig()
	naqfcCfg.BaseURL = cfg.NAQFCBaseURL
	naqfcCfg.Cycle = cfg.NAQFCCycle
	naqfcPipeline, err := naqfc.New(naqfcCfg, fetcher, decoder)
	if err != nil {
		return nil, err
	}

	return source.NewRegistry(hrrrPipeline, naqfcPipeline).Select(cfg.Forecasts)
}
