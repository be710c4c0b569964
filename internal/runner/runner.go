// Package runner orchestrates one evaluation pass: fetch weather data,
// evaluate the rules, deliver notifications, and advance cooldown state.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/cooldown"
	"github.com/couchcryptid/pws-alert-service/internal/domain"
	"github.com/couchcryptid/pws-alert-service/internal/observability"
	"github.com/couchcryptid/pws-alert-service/internal/rule"
)

// WeatherGateway fetches observations and forecasts for a station.
type WeatherGateway interface {
	ObservationSummary(ctx context.Context, station string) (domain.ObservationSummary, error)
	Forecast(ctx context.Context, station, filter string, limit int) ([]domain.ForecastPeriod, error)
	Current(ctx context.Context, station string) (domain.Observation, error)
}

// Notifier delivers one notification to the user.
type Notifier interface {
	Send(ctx context.Context, n domain.Notification) error
}

// EventPublisher emits fired alerts to a downstream consumer.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AlertEvent) error
}

// Runner evaluates the alert rules and owns all cooldown writes. Cooldown
// state advances only after a notification is delivered: a failed send leaves
// the rule eligible to fire again on the next run.
type Runner struct {
	gateway   WeatherGateway
	notifier  Notifier
	store     *cooldown.Store
	publisher EventPublisher // nil when event publishing is disabled
	cfg       *config.Config
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu      sync.Mutex
	lastRun time.Time
	hasRun  bool
}

// New creates a Runner. publisher may be nil.
func New(
	gateway WeatherGateway,
	notifier Notifier,
	store *cooldown.Store,
	publisher EventPublisher,
	cfg *config.Config,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		gateway:   gateway,
		notifier:  notifier,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// RunAll evaluates the morning rules in a fixed order: rainfall, temperature
// drop, first freeze, heat wave, snow chance. A gateway failure downgrades
// the affected rule and the run continues; only a cooldown save failure
// aborts, because continuing would risk duplicate alerts on the next run.
func (r *Runner) RunAll(ctx context.Context, dryRun bool) error {
	now := r.clock.Now()
	start := now
	defer func() {
		r.metrics.RunDuration.Observe(r.clock.Since(start).Seconds())
		r.finishRun(now)
	}()

	rec := r.store.Load()
	forecast := r.dayForecast(ctx)

	checks := []struct {
		name     string
		enabled  bool
		evaluate func() rule.Outcome
		notify   func(out rule.Outcome) domain.Notification
		advance  func(fresh cooldown.Record)
	}{
		{
			name:    "rainfall",
			enabled: r.cfg.AlertRainfall,
			evaluate: func() rule.Outcome {
				return rule.Rainfall(r.summaryFetch(ctx), r.cfg)
			},
			notify: func(out rule.Outcome) domain.Notification {
				return domain.Notification{
					Title:   "Significant Rainfall Yesterday",
					Message: fmt.Sprintf("Station %s recorded %.2f inches of rain yesterday.", r.cfg.StationID, out.Value),
				}
			},
			// No cooldown: yesterday's window resets daily on its own.
			advance: nil,
		},
		{
			name:    "temp_drop",
			enabled: r.cfg.AlertTempDrop,
			evaluate: func() rule.Outcome {
				return rule.TempDrop(rec, forecast, r.cfg, now)
			},
			notify: func(out rule.Outcome) domain.Notification {
				return domain.Notification{
					Title:    "Major Temperature Drop Coming",
					Message:  fmt.Sprintf("Expect a %.0f°F temperature drop!\n%s", out.Value, out.Detail),
					Priority: 1,
				}
			},
			advance: func(fresh cooldown.Record) {
				fresh.SetTimestamp(cooldown.KeyTempDrop, now)
			},
		},
		{
			name:    "first_freeze",
			enabled: r.cfg.AlertFirstFreeze,
			evaluate: func() rule.Outcome {
				return rule.FirstFreeze(rec, forecast, r.cfg, now)
			},
			notify: func(out rule.Outcome) domain.Notification {
				return domain.Notification{
					Title:    "First Freeze of Season Coming!",
					Message:  fmt.Sprintf("Low of %d°F expected on %s. Protect plants and pipes!", int(out.Value), out.Detail),
					Priority: 1,
				}
			},
			advance: func(fresh cooldown.Record) {
				fresh.SetYear(cooldown.KeyFirstFreezeYear, now.Year())
			},
		},
		{
			name:    "heat_wave",
			enabled: r.cfg.AlertHeatWave,
			evaluate: func() rule.Outcome {
				return rule.HeatWave(rec, forecast, r.cfg, now)
			},
			notify: func(out rule.Outcome) domain.Notification {
				return domain.Notification{
					Title:    "Heat Wave Alert!",
					Message:  heatWaveMessage(out, r.cfg),
					Priority: 1,
				}
			},
			advance: func(fresh cooldown.Record) {
				fresh.SetTimestamp(cooldown.KeyHeatWave, now)
			},
		},
		{
			name:    "snow_chance",
			enabled: r.cfg.AlertSnowChance,
			evaluate: func() rule.Outcome {
				return rule.SnowChance(rec, forecast, r.cfg, now)
			},
			notify: func(out rule.Outcome) domain.Notification {
				return domain.Notification{
					Title:   "Snow in the Forecast!",
					Message: fmt.Sprintf("%d%% chance of snow on %s.", int(out.Value), out.Detail),
				}
			},
			advance: func(fresh cooldown.Record) {
				fresh.SetTimestamp(cooldown.KeySnow, now)
			},
		},
	}

	for _, check := range checks {
		if !check.enabled {
			r.logger.Debug("rule disabled", "rule", check.name)
			continue
		}
		out := check.evaluate()
		r.observe(check.name, out)
		if !out.Fired() {
			continue
		}
		if err := r.deliver(ctx, dryRun, check.name, check.notify(out), out, check.advance, now); err != nil {
			return err
		}
	}
	return nil
}

// RunShoulderFreeze evaluates the afternoon freeze warning against a
// day/night-split forecast. Same delivery and cooldown rules as RunAll.
func (r *Runner) RunShoulderFreeze(ctx context.Context, dryRun bool) error {
	now := r.clock.Now()
	defer r.finishRun(now)

	if !r.cfg.AlertShoulderFreeze {
		r.logger.Debug("rule disabled", "rule", "shoulder_freeze")
		return nil
	}

	rec := r.store.Load()
	fetch := func() ([]domain.ForecastPeriod, error) {
		return r.gateway.Forecast(ctx, r.cfg.StationID, domain.ForecastFilterDayNight, r.cfg.DayNightPeriods)
	}

	out := rule.ShoulderFreeze(rec, fetch, r.cfg, now)
	r.observe("shoulder_freeze", out)
	if !out.Fired() {
		return nil
	}

	n := domain.Notification{
		Title:    "Freeze Warning Tonight!",
		Message:  "Protect your plants! " + out.Detail,
		Priority: 1,
	}
	return r.deliver(ctx, dryRun, "shoulder_freeze", n, out, func(fresh cooldown.Record) {
		fresh.SetTimestamp(cooldown.KeyShoulderFreeze, now)
	}, now)
}

// CheckReadiness reports ready once the first evaluation run has completed.
func (r *Runner) CheckReadiness(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasRun {
		return fmt.Errorf("no evaluation run completed yet")
	}
	return nil
}

// LastRun returns when the most recent evaluation run finished.
func (r *Runner) LastRun() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.hasRun
}

// deliver sends the notification and, on success, advances the rule's
// cooldown and publishes an alert event. In dry-run mode nothing is sent,
// saved, or published. A send failure is logged and swallowed so the other
// rules still run; a cooldown save failure aborts the run.
func (r *Runner) deliver(
	ctx context.Context,
	dryRun bool,
	ruleName string,
	n domain.Notification,
	out rule.Outcome,
	advance func(cooldown.Record),
	now time.Time,
) error {
	if dryRun {
		r.logger.Info("[TEST MODE] would send notification",
			"rule", ruleName, "title", n.Title, "message", n.Message)
		return nil
	}

	if err := r.notifier.Send(ctx, n); err != nil {
		r.metrics.NotificationsSent.WithLabelValues("error").Inc()
		r.logger.Error("notification send failed", "rule", ruleName, "error", err)
		return nil
	}
	r.metrics.NotificationsSent.WithLabelValues("ok").Inc()

	if advance != nil {
		fresh := r.store.Load()
		advance(fresh)
		if err := r.store.Save(fresh); err != nil {
			return fmt.Errorf("save cooldown state after %s alert: %w", ruleName, err)
		}
	}

	r.publish(ctx, ruleName, n, out, now)
	return nil
}

// publish emits the fired alert to the event stream. Publish failures are
// logged only: the notification already went out and the cooldown already
// advanced.
func (r *Runner) publish(ctx context.Context, ruleName string, n domain.Notification, out rule.Outcome, now time.Time) {
	if r.publisher == nil {
		return
	}
	event := domain.AlertEvent{
		Rule:     ruleName,
		Station:  r.cfg.StationID,
		Title:    n.Title,
		Message:  n.Message,
		Priority: n.Priority,
		Value:    out.Value,
		FiredAt:  now,
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.metrics.EventPublishError.Inc()
		r.logger.Error("alert event publish failed", "rule", ruleName, "error", err)
		return
	}
	r.metrics.EventsPublished.Inc()
}

func (r *Runner) observe(ruleName string, out rule.Outcome) {
	r.metrics.RuleEvaluations.WithLabelValues(ruleName, out.Status.String()).Inc()
	switch out.Status {
	case rule.StatusUnavailable:
		r.logger.Error("rule evaluation unavailable", "rule", ruleName, "error", out.Err)
	case rule.StatusSuppressed:
		r.logger.Info("rule suppressed", "rule", ruleName, "reason", out.Detail)
	default:
		r.logger.Info("rule evaluated",
			"rule", ruleName, "outcome", out.Status.String(), "value", out.Value)
	}
}

func (r *Runner) finishRun(now time.Time) {
	r.metrics.LastRunTimestamp.Set(float64(now.Unix()))
	r.mu.Lock()
	r.lastRun = now
	r.hasRun = true
	r.mu.Unlock()
}

// dayForecast returns a fetch closure shared by the forecast rules, so one
// run hits the forecast endpoint at most once. The first result, error
// included, is reused by every rule in the run.
func (r *Runner) dayForecast(ctx context.Context) rule.ForecastFunc {
	var (
		once    sync.Once
		periods []domain.ForecastPeriod
		err     error
	)
	return func() ([]domain.ForecastPeriod, error) {
		once.Do(func() {
			periods, err = r.gateway.Forecast(ctx, r.cfg.StationID, domain.ForecastFilterDay, r.cfg.ForecastDays)
		})
		return periods, err
	}
}

func (r *Runner) summaryFetch(ctx context.Context) rule.SummaryFunc {
	return func() (domain.ObservationSummary, error) {
		return r.gateway.ObservationSummary(ctx, r.cfg.StationID)
	}
}

// heatWaveMessage lists up to the first three streak days as evidence.
func heatWaveMessage(out rule.Outcome, cfg *config.Config) string {
	days := out.Days
	if len(days) > 3 {
		days = days[:3]
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = fmt.Sprintf("%s: %d°F", d.Date.Format("2006-01-02"), d.HighF)
	}
	return fmt.Sprintf("%d days of extreme heat (%d°F+) forecast!\n%s",
		len(out.Days), cfg.HeatWaveThresholdF, strings.Join(parts, ", "))
}
