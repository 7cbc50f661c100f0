// Package main is the entry point of morphd, an HTTP service that renders
// resources in the format each client negotiates.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/apimorph/internal/config"
	"github.com/vyrodovalexey/apimorph/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	address     string
	logLevel    string
	logFormat   string
	demo        bool
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting morphd",
		observability.String("version", version),
		observability.String("config", flags.configPath),
		observability.String("address", cfg.Server.Address),
		observability.Strings("formats", cfg.FormatNames()),
		observability.Int("transformers", len(cfg.Transformers)),
	)

	app, err := initApplication(context.Background(), cfg, flags.demo, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", observability.Error(err))
	}
	app.override = func(c *config.Config) { applyOverrides(c, flags) }

	if err := app.run(flags.configPath); err != nil {
		logger.Fatal("morphd failed", observability.Error(err))
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("MORPHD_CONFIG_PATH", ""),
		"Path to configuration file (built-in defaults when empty)")
	address := flag.String("address", getEnvOrDefault("MORPHD_ADDRESS", ""),
		"Listen address, overrides server.address")
	logLevel := flag.String("log-level", getEnvOrDefault("MORPHD_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error), overrides logging.level")
	logFormat := flag.String("log-format", getEnvOrDefault("MORPHD_LOG_FORMAT", ""),
		"Log format (json, console), overrides logging.format")
	demo := flag.Bool("demo", getEnvBool("MORPHD_DEMO", true), "Serve the demo users and posts")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		address:     *address,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		demo:        *demo,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("morphd version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// loadConfig loads the configuration file, applies flag overrides and
// validates the result.
func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyOverrides(cfg, flags)

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, flags cliFlags) {
	if flags.address != "" {
		cfg.Server.Address = flags.address
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
}
