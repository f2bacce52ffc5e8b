// Package main provides the assessment results HTTP server.
package main

import (
	"flag"
	"fmt"
	"log"

	"go.ngs.io/pm25-assess/internal/adapter/store/results"
	"go.ngs.io/pm25-assess/internal/config"
	httpHandler "go.ngs.io/pm25-assess/internal/http"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("pm25-assess server version %s\n", version)
		return
	}

	// Load configuration from .env and environment.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting PM2.5 assessment results server...")
	log.Printf("Port: %s", cfg.Port)
	log.Printf("Results directory: %s", cfg.ResultsDir)
	if len(cfg.CORSAllowedOrigins) > 0 {
		log.Printf("CORS allowed origins: %v", cfg.CORSAllowedOrigins)
	}

	// Results are read-only here; the assess command writes them.
	store := results.NewStore(cfg.ResultsDir)

	// Setup router.
	router := httpHandler.SetupRouter(store, cfg.CORSAllowedOrigins)

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("API endpoints:")
	log.Printf("  - GET /v1/results")
	log.Printf("  - GET /v1/results/:location")
	log.Printf("  - GET /v1/results/:location/:date")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("PM2.5 Assessment Results Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  RESULTS_DIR             Directory of per-day result documents (default: ./results)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Serve results written by the assess command")
	fmt.Println("  RESULTS_DIR=./results server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                          Health check")
	fmt.Println("  GET /v1/results                      List assessed locations")
	fmt.Println("  GET /v1/results/:location            List assessed dates for a location")
	fmt.Println("  GET /v1/results/:location/:date      Get the metric results of one day")
	fmt.Println()
}
