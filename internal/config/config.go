// Package config reads run configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go.ngs.io/pm25-assess/internal/adapter/locator"
	"go.ngs.io/pm25-assess/internal/adapter/store/csv"
	"go.ngs.io/pm25-assess/internal/domain"
)

// Config holds the settings shared by the assess CLI and the results server.
type Config struct {
	DataDir       string
	ResultsDir    string
	GazetteerPath string

	Forecasts    []string
	HRRRBaseURL  string
	NAQFCBaseURL string
	HRRRCycle    int
	NAQFCCycle   int

	NeighborRadiusKm float64

	FetchTimeout time.Duration
	FetchRetries int
	GribGetData  string

	Port               string
	CORSAllowedOrigins []string
}

// Load reads a .env file from the working directory if there is one, then
// the environment. Unset variables take their defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: failed to load .env: %v", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DataDir:      getEnv("DATA_DIR", "./data"),
		ResultsDir:   getEnv("RESULTS_DIR", "./results"),
		HRRRBaseURL:  getEnv("HRRR_BASE_URL", locator.DefaultHRRRBaseURL),
		NAQFCBaseURL: getEnv("NAQFC_BASE_URL", locator.DefaultNAQFCBaseURL),
		GribGetData:  getEnv("GRIB_GET_DATA", "grib_get_data"),
		Port:         getEnv("PORT", "8080"),
	}
	cfg.GazetteerPath = getEnv("GAZETTEER_PATH", filepath.Join(cfg.DataDir, csv.DefaultGazetteerFile))
	cfg.Forecasts = splitList(getEnv("FORECASTS", domain.SourceHRRR+","+domain.SourceNAQFC))
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", ""))

	var err error
	if cfg.HRRRCycle, err = getEnvInt("HRRR_CYCLE", 0); err != nil {
		return nil, err
	}
	if cfg.NAQFCCycle, err = getEnvInt("NAQFC_CYCLE", 6); err != nil {
		return nil, err
	}
	if cfg.FetchRetries, err = getEnvInt("FETCH_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.NeighborRadiusKm, err = getEnvFloat("NEIGHBOR_RADIUS_KM", domain.DefaultRadiusKm); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getEnvDuration("FETCH_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that parsing alone cannot.
func (c *Config) Validate() error {
	if len(c.Forecasts) == 0 {
		return errors.New("FORECASTS must name at least one source")
	}
	if c.NeighborRadiusKm <= 0 {
		return fmt.Errorf("NEIGHBOR_RADIUS_KM must be positive, got %v", c.NeighborRadiusKm)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("FETCH_RETRIES must not be negative, got %d", c.FetchRetries)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
