package rule

import (
	"fmt"
	"time"

	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/cooldown"
	"github.com/couchcryptid/pws-alert-service/internal/domain"
)

// TempDrop fires when any forecast day's high falls by the configured amount
// within the next three calendar positions. All ordered pairs (i, j) with
// i < j <= i+3 over the days carrying a high are compared; the maximum drop
// wins, first-found on ties. The cooldown gate runs before the fetch.
func TempDrop(rec cooldown.Record, fetch ForecastFunc, cfg *config.Config, now time.Time) Outcome {
	if rec.OnCooldown(cooldown.KeyTempDrop, cfg.TempDropCooldownDays, now) {
		return suppressed("on cooldown")
	}

	periods, err := fetch()
	if err != nil {
		return unavailable(err)
	}

	highs := validHighs(periods)
	if len(highs) < 2 {
		return Outcome{Status: StatusNotMet}
	}

	maxDrop := 0
	detail := ""
	for i := range highs {
		for j := i + 1; j < len(highs) && j <= i+3; j++ {
			drop := highs[i].HighF - highs[j].HighF
			if drop > maxDrop {
				maxDrop = drop
				detail = fmt.Sprintf("%s (%d°F) → %s (%d°F)",
					highs[i].Date.Format(dateLayout), highs[i].HighF,
					highs[j].Date.Format(dateLayout), highs[j].HighF)
			}
		}
	}

	out := Outcome{Status: StatusNotMet, Value: float64(maxDrop), Detail: detail}
	if maxDrop >= cfg.TempDropThresholdF {
		out.Status = StatusFired
	}
	return out
}

// validHighs keeps the days that carry a high temperature, preserving order.
// Days without a high are dropped, not zero-filled: a gap must never fake a
// drop.
func validHighs(periods []domain.ForecastPeriod) []DaySummary {
	highs := make([]DaySummary, 0, len(periods))
	for _, p := range periods {
		if p.HighF == nil {
			continue
		}
		highs = append(highs, DaySummary{Date: p.Date, HighF: *p.HighF})
	}
	return highs
}
