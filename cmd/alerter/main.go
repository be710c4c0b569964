// Command alerter polls a personal weather station through the Aeris API,
// evaluates the alert rules, and delivers Pushover notifications.
//
// By default it performs a single full evaluation pass and exits, which suits
// cron. With -watch it stays up, runs the daily checks on the configured
// schedule, and serves health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/pws-alert-service/internal/adapter/aeris"
	httpadapter "github.com/couchcryptid/pws-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pws-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/pws-alert-service/internal/adapter/pushover"
	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/cooldown"
	"github.com/couchcryptid/pws-alert-service/internal/domain"
	"github.com/couchcryptid/pws-alert-service/internal/observability"
	"github.com/couchcryptid/pws-alert-service/internal/rule"
	"github.com/couchcryptid/pws-alert-service/internal/runner"
	"github.com/couchcryptid/pws-alert-service/internal/schedule"
)

func main() {
	testAPI := flag.Bool("test-api", false, "check Aeris connectivity and print current conditions")
	testNotify := flag.Bool("test-notify", false, "send a test Pushover notification")
	dryRun := flag.Bool("dry-run", false, "evaluate rules but do not send, save, or publish anything")
	shoulderOnly := flag.Bool("shoulder-freeze", false, "run only the shoulder-season freeze check")
	watch := flag.Bool("watch", false, "stay up and run the checks on the daily schedule")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	gateway := aeris.NewClient(cfg, metrics, logger)
	notifier := pushover.NewClient(cfg, metrics, logger)
	store := cooldown.NewStore(cfg.CooldownFile, logger)

	// Event publishing is feature-flagged via KAFKA_BROKERS / ALERT_EVENTS_ENABLED.
	var publisher runner.EventPublisher
	if cfg.AlertEventsEnabled {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
		logger.Info("alert event publishing enabled", "topic", cfg.AlertEventsTopic)
	} else {
		logger.Info("alert event publishing disabled")
	}

	r := runner.New(gateway, notifier, store, publisher, cfg, clockwork.NewRealClock(), metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *testAPI:
		err = selfTest(ctx, gateway, cfg)
	case *testNotify:
		err = notifier.Send(ctx, domain.Notification{
			Title:   "Weather Alerter Test",
			Message: fmt.Sprintf("Test notification for station %s.", cfg.StationID),
		})
		if err == nil {
			fmt.Println("Test notification sent.")
		}
	case *shoulderOnly:
		err = r.RunShoulderFreeze(ctx, *dryRun)
	case *watch:
		err = watchLoop(ctx, r, cfg, logger)
	default:
		err = r.RunAll(ctx, *dryRun)
	}

	if err != nil {
		logger.Error("alerter failed", "error", err)
		os.Exit(1)
	}
}

// watchLoop runs the scheduler and the health/metrics server until a signal
// arrives, then shuts both down.
func watchLoop(ctx context.Context, r *runner.Runner, cfg *config.Config, logger *slog.Logger) error {
	sched := schedule.New(r, cfg, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.StationID, r, r, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// selfTest checks Aeris connectivity and prints what the rules would see,
// without touching cooldown state or sending anything.
func selfTest(ctx context.Context, gateway runner.WeatherGateway, cfg *config.Config) error {
	fmt.Printf("Station: %s\n", cfg.StationID)

	current, err := gateway.Current(ctx, cfg.StationID)
	if err != nil {
		return fmt.Errorf("fetch current conditions: %w", err)
	}
	fmt.Printf("Current temp: %s\n", formatInt(current.TempF, "°F"))
	fmt.Printf("Humidity: %s\n", formatInt(current.Humidity, "%"))

	rainfall := rule.Rainfall(func() (domain.ObservationSummary, error) {
		return gateway.ObservationSummary(ctx, cfg.StationID)
	}, cfg)
	if rainfall.Err != nil {
		return fmt.Errorf("fetch observation summary: %w", rainfall.Err)
	}
	fmt.Printf("Yesterday's rainfall: %.2f in (threshold %.2f, would notify: %t)\n",
		rainfall.Value, cfg.RainfallThresholdIN, rainfall.Fired())

	drop := rule.TempDrop(cooldown.Record{}, func() ([]domain.ForecastPeriod, error) {
		return gateway.Forecast(ctx, cfg.StationID, domain.ForecastFilterDay, cfg.ForecastDays)
	}, cfg, time.Now())
	if drop.Err != nil {
		return fmt.Errorf("fetch forecast: %w", drop.Err)
	}
	fmt.Printf("Max drop in %d-day forecast: %.0f°F (threshold %d, would notify: %t)\n",
		cfg.ForecastDays, drop.Value, cfg.TempDropThresholdF, drop.Fired())

	return nil
}

func formatInt(v *int, unit string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d%s", *v, unit)
}
