package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables
// (an optional .env file is loaded first). Constructed once at startup and
// treated as immutable afterwards.
type Config struct {
	// Aeris Weather API.
	AerisClientID     string        `envconfig:"AERIS_CLIENT_ID"`
	AerisClientSecret string        `envconfig:"AERIS_CLIENT_SECRET"`
	AerisBaseURL      string        `envconfig:"AERIS_BASE_URL" default:"https://api.aerisapi.com"`
	AerisTimeout      time.Duration `envconfig:"AERIS_TIMEOUT" default:"30s"`

	// Personal weather station to monitor.
	StationID string `envconfig:"STATION_ID" default:"pws_kalhoove43"`

	// Pushover notification service.
	PushoverUserKey  string        `envconfig:"PUSHOVER_USER_KEY"`
	PushoverAPIToken string        `envconfig:"PUSHOVER_API_TOKEN"`
	PushoverTimeout  time.Duration `envconfig:"PUSHOVER_TIMEOUT" default:"30s"`

	// Rule thresholds.
	RainfallThresholdIN      float64 `envconfig:"RAINFALL_THRESHOLD_INCHES" default:"0.25"`
	TempDropThresholdF       int     `envconfig:"TEMP_DROP_THRESHOLD_F" default:"20"`
	FreezeThresholdF         int     `envconfig:"FREEZE_THRESHOLD_F" default:"32"`
	HeatWaveThresholdF       int     `envconfig:"HEAT_WAVE_THRESHOLD_F" default:"95"`
	HeatWaveConsecutiveDays  int     `envconfig:"HEAT_WAVE_CONSECUTIVE_DAYS" default:"3"`
	SnowChanceThresholdPct   int     `envconfig:"SNOW_CHANCE_THRESHOLD_PERCENT" default:"30"`
	ShoulderFreezeThresholdF int     `envconfig:"SHOULDER_FREEZE_THRESHOLD_F" default:"33"`

	// Cooldown settings.
	CooldownFile         string `envconfig:"COOLDOWN_FILE" default:"notification_cooldown.json"`
	TempDropCooldownDays int    `envconfig:"TEMP_DROP_COOLDOWN_DAYS" default:"5"`
	HeatWaveCooldownDays int    `envconfig:"HEAT_WAVE_COOLDOWN_DAYS" default:"3"`
	SnowCooldownDays     int    `envconfig:"SNOW_COOLDOWN_DAYS" default:"7"`

	// Season gates.
	FreezeSeasonStartMonth int   `envconfig:"FIRST_FREEZE_SEASON_START" default:"10"`
	FreezeSeasonEndMonth   int   `envconfig:"FIRST_FREEZE_SEASON_END" default:"12"`
	ShoulderFreezeMonths   []int `envconfig:"SHOULDER_FREEZE_MONTHS" default:"3,11"`

	// Per-rule enable flags.
	AlertRainfall       bool `envconfig:"ALERT_RAINFALL" default:"true"`
	AlertTempDrop       bool `envconfig:"ALERT_TEMP_DROP" default:"true"`
	AlertFirstFreeze    bool `envconfig:"ALERT_FIRST_FREEZE" default:"true"`
	AlertHeatWave       bool `envconfig:"ALERT_HEAT_WAVE" default:"true"`
	AlertSnowChance     bool `envconfig:"ALERT_SNOW_CHANCE" default:"true"`
	AlertShoulderFreeze bool `envconfig:"ALERT_SHOULDER_FREEZE" default:"true"`

	// Forecast fetch sizes.
	ForecastDays    int `envconfig:"FORECAST_DAYS" default:"7"`
	DayNightPeriods int `envconfig:"DAYNIGHT_PERIODS" default:"4"`

	// Logging.
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Watch mode.
	HTTPAddr          string        `envconfig:"HTTP_ADDR" default:":8080"`
	CheckTime         string        `envconfig:"CHECK_TIME" default:"07:00"`
	ShoulderCheckTime string        `envconfig:"SHOULDER_CHECK_TIME" default:"16:15"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Optional alert event stream.
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	AlertEventsTopic   string   `envconfig:"ALERT_EVENTS_TOPIC" default:"weather-alerts"`
	AlertEventsEnabled bool     `ignored:"true"`
}

// Load reads configuration from the environment, applying defaults where
// unset. Missing credentials are a startup error: no rule may run without
// them (connectivity problems later downgrade per-rule, but a misconfigured
// process must not start).
func Load() (*Config, error) {
	// Best effort; running without a .env file is normal in production.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	// Event publishing follows the token-implies-enabled convention: brokers
	// configured means enabled unless explicitly switched off.
	cfg.AlertEventsEnabled = len(cfg.KafkaBrokers) > 0
	if v := os.Getenv("ALERT_EVENTS_ENABLED"); v != "" {
		cfg.AlertEventsEnabled = v == "true"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AerisClientID == "" {
		return errors.New("AERIS_CLIENT_ID is required")
	}
	if c.AerisClientSecret == "" {
		return errors.New("AERIS_CLIENT_SECRET is required")
	}
	if c.PushoverUserKey == "" {
		return errors.New("PUSHOVER_USER_KEY is required")
	}
	if c.PushoverAPIToken == "" {
		return errors.New("PUSHOVER_API_TOKEN is required")
	}
	if c.StationID == "" {
		return errors.New("STATION_ID is required")
	}

	if c.FreezeSeasonStartMonth < 1 || c.FreezeSeasonStartMonth > 12 ||
		c.FreezeSeasonEndMonth < 1 || c.FreezeSeasonEndMonth > 12 {
		return errors.New("FIRST_FREEZE_SEASON_START and FIRST_FREEZE_SEASON_END must be months 1-12")
	}
	if c.FreezeSeasonStartMonth > c.FreezeSeasonEndMonth {
		return errors.New("FIRST_FREEZE_SEASON_START must not be after FIRST_FREEZE_SEASON_END")
	}
	for _, m := range c.ShoulderFreezeMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("SHOULDER_FREEZE_MONTHS contains invalid month %d", m)
		}
	}

	if c.ForecastDays < 2 {
		return errors.New("FORECAST_DAYS must be at least 2")
	}
	if c.DayNightPeriods < 1 {
		return errors.New("DAYNIGHT_PERIODS must be at least 1")
	}

	for _, tt := range []struct{ name, value string }{
		{"CHECK_TIME", c.CheckTime},
		{"SHOULDER_CHECK_TIME", c.ShoulderCheckTime},
	} {
		if _, err := time.Parse("15:04", tt.value); err != nil {
			return fmt.Errorf("invalid %s %q: want HH:MM", tt.name, tt.value)
		}
	}

	if c.AlertEventsEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("ALERT_EVENTS_ENABLED is true but KAFKA_BROKERS is not set")
	}
	return nil
}
