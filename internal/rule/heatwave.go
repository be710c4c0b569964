package rule

import (
	"time"

	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/cooldown"
)

// HeatWave fires on the first run of consecutive forecast days whose highs
// all reach the heat-wave threshold and whose length reaches the configured
// day count. The scan stops at the first qualifying streak; a streak still in
// progress when the forecast ends qualifies too if it is long enough. A day
// with a missing high breaks the streak.
func HeatWave(rec cooldown.Record, fetch ForecastFunc, cfg *config.Config, now time.Time) Outcome {
	if rec.OnCooldown(cooldown.KeyHeatWave, cfg.HeatWaveCooldownDays, now) {
		return suppressed("on cooldown")
	}

	periods, err := fetch()
	if err != nil {
		return unavailable(err)
	}

	var streak []DaySummary
	for _, p := range periods {
		if p.HighF != nil && *p.HighF >= cfg.HeatWaveThresholdF {
			streak = append(streak, DaySummary{Date: p.Date, HighF: *p.HighF})
			continue
		}
		if len(streak) >= cfg.HeatWaveConsecutiveDays {
			break
		}
		streak = nil
	}

	if len(streak) >= cfg.HeatWaveConsecutiveDays {
		return Outcome{Status: StatusFired, Value: float64(len(streak)), Days: streak}
	}
	return Outcome{Status: StatusNotMet}
}
