package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/bgbegone/internal/config"
	"github.com/ironsheep/bgbegone/internal/fetch"
	"github.com/ironsheep/bgbegone/internal/segment"
	"github.com/ironsheep/bgbegone/internal/server"
	"github.com/ironsheep/bgbegone/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv("BGBEGONE_CONFIG")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("bgbegone %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--config", "-c":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			configPath = os.Args[2]
		default:
			fmt.Fprintf(os.Stderr, "unknown argument %q (see --help)\n", os.Args[1])
			os.Exit(2)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is for MCP protocol.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	fetcher := fetch.New(fetch.Config{
		Timeout:   cfg.FetchTimeout(),
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
		Logger:    logger.With("component", "fetch"),
	})

	var segmenter segment.Segmenter = segment.AlphaPassthrough{}
	if cfg.Segmenter.Endpoint != "" {
		segmenter = segment.NewHTTPSegmenter(segment.HTTPConfig{
			Endpoint: cfg.Segmenter.Endpoint,
			Timeout:  cfg.SegmenterTimeout(),
			Logger:   logger.With("component", "segment"),
		})
		logger.Info("segmentation service configured", "endpoint", cfg.Segmenter.Endpoint, "model", cfg.Segmenter.Model)
	} else {
		logger.Warn("no segmentation endpoint configured; uploads are used as cutouts")
	}

	srv := server.New(server.Options{
		Session: session.Options{
			Segmenter:      segmenter,
			Fetcher:        fetcher,
			Loader:         fetcher,
			Model:          cfg.Segmenter.Model,
			UploadMaxDim:   cfg.Image.UploadMaxDim,
			StandardMaxDim: cfg.Image.DownloadMaxDim,
			DefaultQuality: cfg.Image.Quality,
			Logger:         logger.With("component", "session"),
		},
		Logger:  logger,
		Version: Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("bgbegone - MCP server for background removal")
	fmt.Println()
	fmt.Println("Usage: bgbegone [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v        Print version information")
	fmt.Println("  --help, -h           Print this help message")
	fmt.Println("  --config, -c <path>  Read configuration from a YAML file")
	fmt.Println()
	fmt.Println("Environment variables (also read from ./.env):")
	fmt.Println("  BGBEGONE_CONFIG=path           YAML configuration file")
	fmt.Println("  BGBEGONE_LOG_LEVEL=debug       Log level: debug, info, warn, error")
	fmt.Println("  BGBEGONE_SEGMENTER_URL=url     Background-removal service endpoint")
	fmt.Println("  BGBEGONE_SEGMENTER_MODEL=name  Model requested from the service")
	fmt.Println("  BGBEGONE_SEGMENTER_TIMEOUT=s   Segmentation timeout in seconds")
	fmt.Println("  BGBEGONE_FETCH_TIMEOUT=s       URL download timeout in seconds")
	fmt.Println("  BGBEGONE_FETCH_MAX_BYTES=n     URL download size limit")
	fmt.Println("  BGBEGONE_USER_AGENT=ua         User-Agent for URL downloads")
	fmt.Println("  BGBEGONE_UPLOAD_MAX_DIM=px     Uploads are downscaled to fit")
	fmt.Println("  BGBEGONE_DOWNLOAD_MAX_DIM=px   Standard downloads are downscaled to fit")
	fmt.Println("  BGBEGONE_QUALITY=q             Default JPEG quality in (0,1]")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
