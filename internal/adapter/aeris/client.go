// Package aeris implements the forecast/observation gateway against the
// Aeris Weather API.
package aeris

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/domain"
	"github.com/couchcryptid/pws-alert-service/internal/observability"
)

// Client calls the Aeris Weather API for a personal weather station.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates an Aeris client with the configured credentials and a
// bounded request timeout.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		clientID:     cfg.AerisClientID,
		clientSecret: cfg.AerisClientSecret,
		baseURL:      cfg.AerisBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.AerisTimeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// ObservationSummary returns yesterday's aggregate for the station.
func (c *Client) ObservationSummary(ctx context.Context, station string) (domain.ObservationSummary, error) {
	params := url.Values{
		"from":  {"yesterday"},
		"to":    {"yesterday"},
		"limit": {"1"},
	}

	raw, err := c.request(ctx, "observations/summary/"+station, params, "observation_summary")
	if err != nil {
		return domain.ObservationSummary{}, err
	}

	var payload struct {
		Periods []struct {
			Summary struct {
				Precip struct {
					TotalIN *float64 `json:"totalIN"`
				} `json:"precip"`
			} `json:"summary"`
		} `json:"periods"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.ObservationSummary{}, fmt.Errorf("decode observation summary: %w", err)
	}
	if len(payload.Periods) == 0 {
		return domain.ObservationSummary{}, fmt.Errorf("no observation periods for station %s", station)
	}

	return domain.ObservationSummary{RainfallIN: payload.Periods[0].Summary.Precip.TotalIN}, nil
}

// Forecast returns up to limit forecast periods for the station. filter is
// domain.ForecastFilterDay or domain.ForecastFilterDayNight.
func (c *Client) Forecast(ctx context.Context, station, filter string, limit int) ([]domain.ForecastPeriod, error) {
	params := url.Values{
		"format": {"json"},
		"filter": {filter},
		"limit":  {strconv.Itoa(limit)},
	}

	raw, err := c.request(ctx, "forecasts/"+station, params, "forecast_"+filter)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Periods []forecastPeriod `json:"periods"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}

	periods := make([]domain.ForecastPeriod, 0, len(payload.Periods))
	for _, p := range payload.Periods {
		periods = append(periods, domain.ForecastPeriod{
			Date:           parsePeriodDate(p.DateTimeISO),
			HighF:          p.MaxTempF,
			LowF:           p.MinTempF,
			IsDay:          p.IsDay,
			Weather:        p.Weather,
			WeatherPrimary: p.WeatherPrimary,
			SnowIN:         p.SnowIN,
			PoP:            p.PoP,
		})
	}
	return periods, nil
}

// Current returns the station's present conditions. Used by the connectivity
// self-test.
func (c *Client) Current(ctx context.Context, station string) (domain.Observation, error) {
	raw, err := c.request(ctx, "observations/"+station, url.Values{"limit": {"1"}}, "observation")
	if err != nil {
		return domain.Observation{}, err
	}

	var payload struct {
		Ob struct {
			TempF    *int `json:"tempF"`
			Humidity *int `json:"humidity"`
		} `json:"ob"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Observation{}, fmt.Errorf("decode observation: %w", err)
	}
	return domain.Observation{TempF: payload.Ob.TempF, Humidity: payload.Ob.Humidity}, nil
}

// request performs a GET against the given endpoint and unwraps the Aeris
// envelope. The response body may be an object or a one-element array; the
// first element wins in the array case.
func (c *Client) request(ctx context.Context, endpoint string, params url.Values, operation string) (json.RawMessage, error) {
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GatewayRequestDuration.WithLabelValues("aeris", operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("aeris %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("aeris API error: status %d: %s", resp.StatusCode, body)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode aeris envelope: %w", err)
	}
	if !env.Success {
		if env.Error != nil {
			return nil, fmt.Errorf("aeris API error: %s: %s", env.Error.Code, env.Error.Description)
		}
		return nil, fmt.Errorf("aeris API error: unknown error")
	}

	return firstResponse(env.Response), nil
}

// firstResponse unwraps an array-typed response to its first element.
// Single-station queries usually return a bare object, but some endpoints
// wrap it in a one-element array.
func firstResponse(raw json.RawMessage) json.RawMessage {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return raw
}

// parsePeriodDate extracts the calendar day from an ISO timestamp like
// "2024-11-02T07:00:00-06:00". A malformed value yields the zero time.
func parsePeriodDate(iso string) time.Time {
	if len(iso) < 10 {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", iso[:10])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Aeris API response types.

type envelope struct {
	Success  bool            `json:"success"`
	Error    *apiError       `json:"error"`
	Response json.RawMessage `json:"response"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type forecastPeriod struct {
	DateTimeISO    string   `json:"dateTimeISO"`
	MaxTempF       *int     `json:"maxTempF"`
	MinTempF       *int     `json:"minTempF"`
	IsDay          *bool    `json:"isDay"`
	Weather        string   `json:"weather"`
	WeatherPrimary string   `json:"weatherPrimary"`
	SnowIN         *float64 `json:"snowIN"`
	PoP            *int     `json:"pop"`
}
