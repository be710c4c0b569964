package rule

import (
	"strings"
	"time"

	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/cooldown"
	"github.com/couchcryptid/pws-alert-service/internal/domain"
)

// SnowChance fires on the first forecast day that both indicates snow and
// carries a precipitation probability at or above the threshold. A day
// indicates snow when either weather text mentions it (case-insensitive) or
// a positive accumulation is forecast. Missing probability reads as zero, so
// a snow-flagged day without a probability never fires on its own.
func SnowChance(rec cooldown.Record, fetch ForecastFunc, cfg *config.Config, now time.Time) Outcome {
	if rec.OnCooldown(cooldown.KeySnow, cfg.SnowCooldownDays, now) {
		return suppressed("on cooldown")
	}

	periods, err := fetch()
	if err != nil {
		return unavailable(err)
	}

	for _, p := range periods {
		if !indicatesSnow(p) {
			continue
		}
		pop := 0
		if p.PoP != nil {
			pop = *p.PoP
		}
		if pop >= cfg.SnowChanceThresholdPct {
			return Outcome{
				Status: StatusFired,
				Value:  float64(pop),
				Detail: p.Date.Format(dateLayout),
			}
		}
	}
	return Outcome{Status: StatusNotMet}
}

func indicatesSnow(p domain.ForecastPeriod) bool {
	if strings.Contains(strings.ToLower(p.Weather), "snow") {
		return true
	}
	if strings.Contains(strings.ToLower(p.WeatherPrimary), "snow") {
		return true
	}
	return p.SnowIN != nil && *p.SnowIN > 0
}
