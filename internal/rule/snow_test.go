package rule

import (
	"errors"
	"testing"

	"github.com/couchcryptid/pws-alert-service/internal/cooldown"
	"github.com/couchcryptid/pws-alert-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSnowChance(t *testing.T) {
	cfg := testConfig()
	now := baseDate

	t.Run("accumulation with probability fires", func(t *testing.T) {
		periods := []domain.ForecastPeriod{
			{Date: baseDate, SnowIN: floatp(2.0), PoP: intp(60)},
		}
		fetch, _ := countingForecast(periods)
		out := SnowChance(cooldown.Record{}, fetch, cfg, now)

		assert.Equal(t, StatusFired, out.Status)
		assert.Equal(t, 60.0, out.Value)
		assert.Equal(t, "2024-06-10", out.Detail)
	})

	t.Run("low probability does not fire", func(t *testing.T) {
		periods := []domain.ForecastPeriod{
			{Date: baseDate, SnowIN: floatp(2.0), PoP: intp(15)},
		}
		fetch, _ := countingForecast(periods)
		out := SnowChance(cooldown.Record{}, fetch, cfg, now)
		assert.Equal(t, StatusNotMet, out.Status)
	})

	t.Run("weather text indicates snow", func(t *testing.T) {
		periods := []domain.ForecastPeriod{
			{Date: baseDate, Weather: "Light Snow Showers", PoP: intp(45)},
		}
		fetch, _ := countingForecast(periods)
		out := SnowChance(cooldown.Record{}, fetch, cfg, now)
		assert.Equal(t, StatusFired, out.Status)
		assert.Equal(t, 45.0, out.Value)
	})

	t.Run("primary classifier indicates snow case-insensitively", func(t *testing.T) {
		periods := []domain.ForecastPeriod{
			{Date: baseDate, WeatherPrimary: "SNOW", PoP: intp(30)},
		}
		fetch, _ := countingForecast(periods)
		out := SnowChance(cooldown.Record{}, fetch, cfg, now)
		assert.Equal(t, StatusFired, out.Status)
	})

	t.Run("missing probability reads as zero", func(t *testing.T) {
		periods := []domain.ForecastPeriod{
			{Date: baseDate, SnowIN: floatp(1.0)},
		}
		fetch, _ := countingForecast(periods)
		out := SnowChance(cooldown.Record{}, fetch, cfg, now)
		assert.Equal(t, StatusNotMet, out.Status)
	})

	t.Run("first qualifying day reported", func(t *testing.T) {
		periods := []domain.ForecastPeriod{
			{Date: baseDate, Weather: "Rain", PoP: intp(80)},
			{Date: baseDate.AddDate(0, 0, 1), Weather: "Snow", PoP: intp(35)},
			{Date: baseDate.AddDate(0, 0, 2), Weather: "Heavy Snow", PoP: intp(90)},
		}
		fetch, _ := countingForecast(periods)
		out := SnowChance(cooldown.Record{}, fetch, cfg, now)

		assert.Equal(t, StatusFired, out.Status)
		assert.Equal(t, 35.0, out.Value)
		assert.Equal(t, "2024-06-11", out.Detail)
	})

	t.Run("snow day below threshold does not shadow later day", func(t *testing.T) {
		periods := []domain.ForecastPeriod{
			{Date: baseDate, Weather: "Snow Flurries", PoP: intp(10)},
			{Date: baseDate.AddDate(0, 0, 1), Weather: "Snow", PoP: intp(55)},
		}
		fetch, _ := countingForecast(periods)
		out := SnowChance(cooldown.Record{}, fetch, cfg, now)

		assert.Equal(t, StatusFired, out.Status)
		assert.Equal(t, 55.0, out.Value)
	})

	t.Run("cooldown suppresses without fetching", func(t *testing.T) {
		rec := cooldown.Record{}
		rec.SetTimestamp(cooldown.KeySnow, now.AddDate(0, 0, -2))

		fetch, calls := countingForecast(nil)
		out := SnowChance(rec, fetch, cfg, now)

		assert.Equal(t, StatusSuppressed, out.Status)
		assert.Zero(t, *calls)
	})

	t.Run("gateway error", func(t *testing.T) {
		out := SnowChance(cooldown.Record{}, failingForecast(errors.New("boom")), cfg, now)
		assert.Equal(t, StatusUnavailable, out.Status)
	})
}
