package rule

import (
	"fmt"
	"time"

	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/cooldown"
)

// FirstFreeze fires once per season on the first forecast day whose low
// reaches the freeze threshold (inclusive). Two gates run before any fetch:
// the current month must fall inside the configured season, and the rule must
// not have alerted for the current year yet. The scan returns the first
// matching day in date order, not the coldest.
func FirstFreeze(rec cooldown.Record, fetch ForecastFunc, cfg *config.Config, now time.Time) Outcome {
	month := int(now.Month())
	if month < cfg.FreezeSeasonStartMonth || month > cfg.FreezeSeasonEndMonth {
		return suppressed(fmt.Sprintf("outside freeze season (month %d)", month))
	}
	if rec.AlertedYear(cooldown.KeyFirstFreezeYear, now.Year()) {
		return suppressed("already alerted this season")
	}

	periods, err := fetch()
	if err != nil {
		return unavailable(err)
	}

	for _, p := range periods {
		if p.LowF != nil && *p.LowF <= cfg.FreezeThresholdF {
			return Outcome{
				Status: StatusFired,
				Value:  float64(*p.LowF),
				Detail: p.Date.Format(dateLayout),
			}
		}
	}
	return Outcome{Status: StatusNotMet}
}

// ShoulderFreeze warns about tonight's freeze during the shoulder months.
// It runs on the afternoon schedule against a day/night-split forecast and
// decides on the first night period that carries a low: below the threshold
// (strict) fires, otherwise the rule stops without looking at later nights;
// those belong to tomorrow's run. The same-calendar-day guard replaces a
// rolling cooldown window.
func ShoulderFreeze(rec cooldown.Record, fetch ForecastFunc, cfg *config.Config, now time.Time) Outcome {
	if !shoulderMonth(cfg.ShoulderFreezeMonths, int(now.Month())) {
		return suppressed(fmt.Sprintf("outside shoulder season (month %d)", int(now.Month())))
	}
	if rec.SameCalendarDay(cooldown.KeyShoulderFreeze, now) {
		return suppressed("already alerted today")
	}

	periods, err := fetch()
	if err != nil {
		return unavailable(err)
	}

	for _, p := range periods {
		if p.IsDay == nil || *p.IsDay || p.LowF == nil {
			continue
		}
		low := *p.LowF
		if low < cfg.ShoulderFreezeThresholdF {
			return Outcome{
				Status: StatusFired,
				Value:  float64(low),
				Detail: fmt.Sprintf("Tonight's low: %d°F on %s", low, p.Date.Format(dateLayout)),
			}
		}
		return Outcome{Status: StatusNotMet, Value: float64(low)}
	}
	return Outcome{Status: StatusNotMet}
}

func shoulderMonth(months []int, month int) bool {
	for _, m := range months {
		if m == month {
			return true
		}
	}
	return false
}
