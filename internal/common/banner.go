package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved tracking scope
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Mandi", CurrentBuild().Version)

	logger.Info().
		Str("environment", config.Environment).
		Strs("commodities", config.Tracking.Commodities).
		Strs("states", config.Tracking.States).
		Str("badger_path", config.Storage.Badger.Path).
		Bool("scheduler", config.Scheduler.Enabled).
		Msg("Mandi configuration")
}
