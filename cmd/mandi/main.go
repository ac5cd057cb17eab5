package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/app"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/server"
	"github.com/ternarybob/mandi/internal/services/pipeline"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths // Multiple -config flags supported
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	runOnce      = flag.Bool("run-once", false, "Run one pipeline pass, print the report as JSON and exit")
	forecastOnce = flag.Bool("forecast", false, "With -run-once, also retrain models and generate alerts")
	commodity    = flag.String("commodity", "", "Limit -run-once to a single commodity")
	states       = flag.String("states", "", "Comma-separated states for -run-once (default: tracked states)")
	resetPrices  = flag.Bool("reset", false, "Delete every stored price record before starting")
	showVersion  = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	common.InstallCrashHandler("")
	defer common.RecoverWithCrashFile()

	flag.Parse()
	common.LoadVersionFromFile()

	if *showVersion {
		fmt.Printf("Mandi version %s\n", common.CurrentBuild())
		os.Exit(0)
	}

	// Startup order: config (defaults -> files -> env), CLI overrides, logger, banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("mandi.toml"); err == nil {
			configFiles = append(configFiles, "mandi.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger := common.InitLogger(config)
	common.PrintBanner(config, logger)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	if *resetPrices {
		if err := application.Reset(application.Context()); err != nil {
			logger.Fatal().Err(err).Msg("Reset failed")
			os.Exit(1)
		}
	}

	if *runOnce {
		if err := runPipelineOnce(application); err != nil {
			logger.Error().Err(err).Msg("Pipeline run failed")
			application.Close()
			os.Exit(1)
		}
		return
	}

	serve(application, logger)
}

// runPipelineOnce executes a single pass and writes the report to stdout
func runPipelineOnce(application *app.App) error {
	ctx, stop := signal.NotifyContext(application.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := application.PipelineService.Run(ctx, pipeline.RunOptions{
		Commodity: *commodity,
		States:    common.SplitList(*states),
	})
	if err != nil {
		return err
	}

	output := map[string]interface{}{"report": report}
	if *forecastOnce {
		generated, err := application.RunForecastCycle(ctx)
		if err != nil {
			return err
		}
		output["alerts"] = generated
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func serve(application *app.App, logger arbor.ILogger) {
	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", application.Config.Server.Host, application.Config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
