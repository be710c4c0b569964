// Package pushover delivers notifications through the Pushover message API.
package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/pws-alert-service/internal/config"
	"github.com/couchcryptid/pws-alert-service/internal/domain"
	"github.com/couchcryptid/pws-alert-service/internal/observability"
)

const defaultAPIURL = "https://api.pushover.net/1/messages.json"

// Client sends notifications to a single Pushover user.
type Client struct {
	userKey    string
	apiToken   string
	apiURL     string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Pushover client from the configured credentials.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		userKey:  cfg.PushoverUserKey,
		apiToken: cfg.PushoverAPIToken,
		apiURL:   defaultAPIURL,
		httpClient: &http.Client{
			Timeout: cfg.PushoverTimeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Send delivers one notification. A non-1 status in the API response is an
// error even when the HTTP request itself succeeded.
func (c *Client) Send(ctx context.Context, n domain.Notification) error {
	form := url.Values{
		"token":    {c.apiToken},
		"user":     {c.userKey},
		"title":    {n.Title},
		"message":  {n.Message},
		"priority": {strconv.Itoa(n.Priority)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GatewayRequestDuration.WithLabelValues("pushover", "send").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("pushover request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Status int      `json:"status"`
		Errors []string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode pushover response: %w", err)
	}
	if result.Status != 1 {
		return fmt.Errorf("pushover rejected notification: status %d: %s", result.Status, strings.Join(result.Errors, "; "))
	}

	c.logger.Info("notification sent", "title", n.Title, "priority", n.Priority)
	return nil
}
