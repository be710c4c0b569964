package runner

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/cooldown"
	"github.com/couchcryptid/pws-alert-service/internal/domain"
	"github.com/couchcryptid/pws-alert-service/internal/observability"
)

var testNow = time.Date(2024, 11, 2, 7, 0, 0, 0, time.UTC)

func intp(v int) *int          { return &v }
func floatp(v float64) *float64 { return &v }
func boolp(v bool) *bool       { return &v }

type mockGateway struct {
	summary    domain.ObservationSummary
	summaryErr error
	forecast   []domain.ForecastPeriod
	forecastErr error

	summaryCalls  int
	forecastCalls int
	filters       []string
	limits        []int
}

func (m *mockGateway) ObservationSummary(_ context.Context, _ string) (domain.ObservationSummary, error) {
	m.summaryCalls++
	return m.summary, m.summaryErr
}

func (m *mockGateway) Forecast(_ context.Context, _ , filter string, limit int) ([]domain.ForecastPeriod, error) {
	m.forecastCalls++
	m.filters = append(m.filters, filter)
	m.limits = append(m.limits, limit)
	return m.forecast, m.forecastErr
}

func (m *mockGateway) Current(_ context.Context, _ string) (domain.Observation, error) {
	return domain.Observation{}, nil
}

type mockNotifier struct {
	sent []domain.Notification
	err  error
}

func (m *mockNotifier) Send(_ context.Context, n domain.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

type mockPublisher struct {
	events []domain.AlertEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event domain.AlertEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		StationID:                "pws_station1",
		RainfallThresholdIN:      0.25,
		TempDropThresholdF:       20,
		FreezeThresholdF:         32,
		HeatWaveThresholdF:       95,
		HeatWaveConsecutiveDays:  3,
		SnowChanceThresholdPct:   30,
		ShoulderFreezeThresholdF: 33,
		TempDropCooldownDays:     5,
		HeatWaveCooldownDays:     3,
		SnowCooldownDays:         7,
		FreezeSeasonStartMonth:   10,
		FreezeSeasonEndMonth:     12,
		ShoulderFreezeMonths:     []int{3, 11},
		ForecastDays:             7,
		DayNightPeriods:          4,
	}
}

type fixture struct {
	runner    *Runner
	gateway   *mockGateway
	notifier  *mockNotifier
	publisher *mockPublisher
	store     *cooldown.Store
	cfg       *config.Config
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	gateway := &mockGateway{}
	notifier := &mockNotifier{}
	publisher := &mockPublisher{}
	store := cooldown.NewStore(filepath.Join(t.TempDir(), "cooldown.json"), logger)
	return &fixture{
		runner: New(gateway, notifier, store, publisher, cfg,
			clockwork.NewFakeClockAt(testNow), observability.NewMetricsForTesting(), logger),
		gateway:   gateway,
		notifier:  notifier,
		publisher: publisher,
		store:     store,
		cfg:       cfg,
	}
}

// forecastOfHighs builds one day per high, starting the day after testNow.
func forecastOfHighs(highs ...int) []domain.ForecastPeriod {
	periods := make([]domain.ForecastPeriod, len(highs))
	for i, h := range highs {
		periods[i] = domain.ForecastPeriod{
			Date:  testNow.AddDate(0, 0, i+1),
			HighF: intp(h),
			LowF:  intp(h - 15),
		}
	}
	return periods
}

func enableOnly(cfg *config.Config, name string) {
	cfg.AlertRainfall = name == "rainfall"
	cfg.AlertTempDrop = name == "temp_drop"
	cfg.AlertFirstFreeze = name == "first_freeze"
	cfg.AlertHeatWave = name == "heat_wave"
	cfg.AlertSnowChance = name == "snow_chance"
	cfg.AlertShoulderFreeze = name == "shoulder_freeze"
}

func TestRunAllRainfallFires(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "rainfall")
	f := newFixture(t, cfg)
	f.gateway.summary = domain.ObservationSummary{RainfallIN: floatp(0.5)}

	require.NoError(t, f.runner.RunAll(context.Background(), false))

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, "Significant Rainfall Yesterday", n.Title)
	assert.Equal(t, "Station pws_station1 recorded 0.50 inches of rain yesterday.", n.Message)
	assert.Equal(t, 0, n.Priority)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, "rainfall", event.Rule)
	assert.Equal(t, "pws_station1", event.Station)
	assert.InDelta(t, 0.5, event.Value, 1e-9)
	assert.Equal(t, testNow, event.FiredAt)
}

func TestRunAllTempDropAdvancesCooldownOnSuccess(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "temp_drop")
	f := newFixture(t, cfg)
	f.gateway.forecast = forecastOfHighs(70, 60, 45, 50, 55, 60, 65)

	require.NoError(t, f.runner.RunAll(context.Background(), false))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Major Temperature Drop Coming", f.notifier.sent[0].Title)
	assert.Contains(t, f.notifier.sent[0].Message, "Expect a 25°F temperature drop!")

	rec := f.store.Load()
	assert.True(t, rec.OnCooldown(cooldown.KeyTempDrop, cfg.TempDropCooldownDays, testNow))
}

func TestRunAllSendFailureLeavesCooldownUntouched(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "temp_drop")
	f := newFixture(t, cfg)
	f.gateway.forecast = forecastOfHighs(70, 45, 45, 45, 45, 45, 45)
	f.notifier.err = errors.New("pushover down")

	require.NoError(t, f.runner.RunAll(context.Background(), false))

	rec := f.store.Load()
	assert.False(t, rec.OnCooldown(cooldown.KeyTempDrop, cfg.TempDropCooldownDays, testNow))
	assert.Empty(t, f.publisher.events)
}

func TestRunAllDryRunSendsAndSavesNothing(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "temp_drop")
	f := newFixture(t, cfg)
	f.gateway.forecast = forecastOfHighs(70, 45, 45, 45, 45, 45, 45)

	require.NoError(t, f.runner.RunAll(context.Background(), true))

	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.publisher.events)
	rec := f.store.Load()
	assert.False(t, rec.OnCooldown(cooldown.KeyTempDrop, cfg.TempDropCooldownDays, testNow))
}

func TestRunAllDisabledRuleSkipsGateway(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "") // everything off
	f := newFixture(t, cfg)

	require.NoError(t, f.runner.RunAll(context.Background(), false))

	assert.Zero(t, f.gateway.summaryCalls)
	assert.Zero(t, f.gateway.forecastCalls)
	assert.Empty(t, f.notifier.sent)
}

func TestRunAllForecastFailureDoesNotStopRainfall(t *testing.T) {
	cfg := testConfig()
	cfg.AlertRainfall = true
	cfg.AlertTempDrop = true
	cfg.AlertHeatWave = true
	cfg.AlertSnowChance = true
	f := newFixture(t, cfg)
	f.gateway.summary = domain.ObservationSummary{RainfallIN: floatp(1.0)}
	f.gateway.forecastErr = errors.New("aeris timeout")

	require.NoError(t, f.runner.RunAll(context.Background(), false))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Significant Rainfall Yesterday", f.notifier.sent[0].Title)
}

func TestRunAllSharesOneForecastFetch(t *testing.T) {
	cfg := testConfig()
	cfg.AlertTempDrop = true
	cfg.AlertHeatWave = true
	cfg.AlertSnowChance = true
	f := newFixture(t, cfg)
	f.gateway.forecast = forecastOfHighs(70, 69, 68, 67, 66, 65, 64)

	require.NoError(t, f.runner.RunAll(context.Background(), false))

	assert.Equal(t, 1, f.gateway.forecastCalls)
	assert.Equal(t, []string{domain.ForecastFilterDay}, f.gateway.filters)
	assert.Equal(t, []int{7}, f.gateway.limits)
}

func TestRunAllCooldownSaveFailureAborts(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "temp_drop")
	f := newFixture(t, cfg)
	f.gateway.forecast = forecastOfHighs(70, 45, 45, 45, 45, 45, 45)
	f.store = cooldown.NewStore(filepath.Join(t.TempDir(), "missing", "nested", "cooldown.json"), slog.New(slog.DiscardHandler))
	f.runner.store = f.store

	err := f.runner.RunAll(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save cooldown state")
}

func TestRunAllHeatWaveMessageListsFirstThreeDays(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "heat_wave")
	f := newFixture(t, cfg)
	f.gateway.forecast = forecastOfHighs(96, 97, 98, 99, 85, 85, 85)

	require.NoError(t, f.runner.RunAll(context.Background(), false))

	require.Len(t, f.notifier.sent, 1)
	msg := f.notifier.sent[0].Message
	assert.Contains(t, msg, "4 days of extreme heat (95°F+) forecast!")
	assert.Contains(t, msg, "2024-11-03: 96°F, 2024-11-04: 97°F, 2024-11-05: 98°F")
	assert.NotContains(t, msg, "99°F")
}

func TestRunShoulderFreezeFires(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "shoulder_freeze")
	f := newFixture(t, cfg)
	f.gateway.forecast = []domain.ForecastPeriod{
		{Date: testNow, IsDay: boolp(true), HighF: intp(55)},
		{Date: testNow, IsDay: boolp(false), LowF: intp(28)},
	}

	require.NoError(t, f.runner.RunShoulderFreeze(context.Background(), false))

	assert.Equal(t, []string{domain.ForecastFilterDayNight}, f.gateway.filters)
	assert.Equal(t, []int{4}, f.gateway.limits)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, "Freeze Warning Tonight!", n.Title)
	assert.Equal(t, "Protect your plants! Tonight's low: 28°F on 2024-11-02", n.Message)
	assert.Equal(t, 1, n.Priority)

	rec := f.store.Load()
	assert.True(t, rec.SameCalendarDay(cooldown.KeyShoulderFreeze, testNow))
}

func TestRunShoulderFreezeSuppressedSameDaySkipsFetch(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "shoulder_freeze")
	f := newFixture(t, cfg)

	rec := cooldown.Record{}
	rec.SetTimestamp(cooldown.KeyShoulderFreeze, testNow.Add(-2*time.Hour))
	require.NoError(t, f.store.Save(rec))

	require.NoError(t, f.runner.RunShoulderFreeze(context.Background(), false))

	assert.Zero(t, f.gateway.forecastCalls)
	assert.Empty(t, f.notifier.sent)
}

func TestRunAllPublishFailureDoesNotFailRun(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "rainfall")
	f := newFixture(t, cfg)
	f.gateway.summary = domain.ObservationSummary{RainfallIN: floatp(0.3)}
	f.publisher.err = errors.New("broker unreachable")

	require.NoError(t, f.runner.RunAll(context.Background(), false))
	require.Len(t, f.notifier.sent, 1)
}

func TestRunAllNilPublisher(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "rainfall")
	f := newFixture(t, cfg)
	f.runner.publisher = nil
	f.gateway.summary = domain.ObservationSummary{RainfallIN: floatp(0.3)}

	require.NoError(t, f.runner.RunAll(context.Background(), false))
	require.Len(t, f.notifier.sent, 1)
}

func TestReadinessAndLastRun(t *testing.T) {
	cfg := testConfig()
	enableOnly(cfg, "")
	f := newFixture(t, cfg)

	require.Error(t, f.runner.CheckReadiness(context.Background()))
	_, ok := f.runner.LastRun()
	assert.False(t, ok)

	require.NoError(t, f.runner.RunAll(context.Background(), false))

	require.NoError(t, f.runner.CheckReadiness(context.Background()))
	at, ok := f.runner.LastRun()
	assert.True(t, ok)
	assert.Equal(t, testNow, at)
}
