package rule

import (
	"github.com/couchcryptid/pws-alert-service/internal/config"
)

// Rainfall fires when yesterday's total rainfall reached the configured
// threshold (inclusive). A missing total reads as zero inches. This rule has
// no cooldown: yesterday's observation window resets daily on its own.
func Rainfall(fetch SummaryFunc, cfg *config.Config) Outcome {
	obs, err := fetch()
	if err != nil {
		return unavailable(err)
	}

	rainfall := 0.0
	if obs.RainfallIN != nil {
		rainfall = *obs.RainfallIN
	}

	if rainfall >= cfg.RainfallThresholdIN {
		return Outcome{Status: StatusFired, Value: rainfall}
	}
	return Outcome{Status: StatusNotMet, Value: rainfall}
}
