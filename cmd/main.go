package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"storefront-sampler/adapters"
	"storefront-sampler/extractor"
	"storefront-sampler/internal/types"
	"storefront-sampler/storage"
	"storefront-sampler/utils"
)

// sleep backs the session's pauses; nil uses utils.Sleep
var sleep utils.SleepFunc

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	defaults := types.DefaultConfig()

	// Parse command line flags
	var (
		siteFlag       = flag.String("site", defaults.Site, "Site to sample ("+strings.Join(adapters.Sites(), ", ")+")")
		urlFlag        = flag.String("url", "", "Listing URL (default: the site's own listing)")
		proxyFlag      = flag.String("proxy", "", "Proxy server URL (overrides PROXY_URL)")
		modeFlag       = flag.String("mode", defaults.Mode, "Session backend: browser or http")
		headlessFlag   = flag.String("headless", "", "Force headless on or off (default: site setting)")
		bannerFlag     = flag.Bool("banner", false, "Also click the promotional banner")
		seedFlag       = flag.Int64("seed", 0, "Random seed (0 seeds from the clock)")
		outputFlag     = flag.String("output", defaults.OutputFile, "CSV file receiving the record")
		screenshotFlag = flag.String("screenshots", defaults.ScreenshotDir, "Directory for product screenshots")
		timeout        = flag.Duration("timeout", defaults.Timeout, "Whole session timeout")
		verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logging
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	// Set log level from LOG_LEVEL env if present
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	profile, err := adapters.Lookup(*siteFlag)
	if err != nil {
		logger.Fatal(err)
	}

	// Create configuration
	config := defaults
	config.Site = profile.Name
	config.URL = *urlFlag
	config.Mode = *modeFlag
	config.ClickBanner = *bannerFlag
	config.Seed = *seedFlag
	config.OutputFile = *outputFlag
	config.ScreenshotDir = *screenshotFlag
	config.Timeout = *timeout
	config.Proxy = os.Getenv("PROXY_URL")
	if *proxyFlag != "" {
		config.Proxy = *proxyFlag
	}
	config.DatabaseURL = os.Getenv("DATABASE_URL")

	if *headlessFlag != "" {
		switch strings.ToLower(*headlessFlag) {
		case "true", "1", "yes", "on":
			v := true
			config.Headless = &v
		case "false", "0", "no", "off":
			v := false
			config.Headless = &v
		default:
			logger.Fatalf("Invalid --headless value %q", *headlessFlag)
		}
	}

	open, err := extractor.OpenerFor(config, logger)
	if err != nil {
		logger.Fatal(err)
	}

	if err := run(context.Background(), config, profile, open, logger); err != nil {
		logger.Errorf("Sampling failed: %v", err)
		os.Exit(1)
	}
}

// newSinks builds the CSV log plus, when a database is configured, the
// Postgres store. The returned release func closes whatever was opened.
func newSinks(ctx context.Context, config *types.Config) (storage.Multi, func() error, error) {
	sinks := storage.Multi{storage.NewCSVLog(config.OutputFile)}
	if config.DatabaseURL == "" {
		return sinks, func() error { return nil }, nil
	}

	store, err := storage.NewPostgresStore(ctx, config.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return append(sinks, store), store.Close, nil
}

// run samples one product. An empty listing is logged and is not an error.
func run(ctx context.Context, config *types.Config, profile *types.SiteProfile, open extractor.OpenFunc, logger *logrus.Logger) error {
	sinks, release, err := newSinks(ctx, config)
	if err != nil {
		return err
	}
	defer release()

	logger.Infof("Sampling %s in %s mode", profile.Name, config.Mode)
	if config.Proxy != "" {
		logger.Infof("Using proxy %s", config.Proxy)
	}

	startTime := time.Now()
	sampler := extractor.NewExtractor(config, logger, extractor.Options{
		Profile: profile,
		Open:    open,
		Sink:    sinks,
		Sleep:   sleep,
	})

	product, err := sampler.Run(ctx)
	if err != nil {
		if errors.Is(err, adapters.ErrNoProducts) {
			logger.Warn("Nothing sampled")
			return nil
		}
		return err
	}

	logger.Infof("Name:  %s", product.Name)
	logger.Infof("Price: %s", product.Price)
	logger.Infof("URL:   %s", product.URL)
	logger.Infof("Record appended to %s in %v", config.OutputFile, time.Since(startTime))
	return nil
}
