package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/urjabill/urjabill/pkg/common"
	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/types"
)

// Client calls the external generative advice API. The engine output goes in,
// natural-language advice comes back; no text is generated locally. The retry
// policy lives here and nowhere else.
type Client struct {
	url      string
	key      string
	attempts int
	backoff  time.Duration
	hc       *http.Client
}

// NewClient builds a client for the given API URL without any flag wiring.
// An empty URL yields a disabled client.
func NewClient(url, key string) *Client {
	return &Client{
		url:      url,
		key:      key,
		attempts: 4,
		backoff:  500 * time.Millisecond,
		hc:       common.HTTPClient(30 * time.Second),
	}
}

// Configured sets up the insight client based on flags. When no URL is
// configured the client reports itself disabled.
func Configured() *Client {
	url := lflag.String("insight-api-url", "", "URL of the generative insight API, empty disables insights")
	key := lflag.String("insight-api-key", "", "API key for the insight API")
	attempts := lflag.Int("insight-attempts", 4, "Total attempts per insight request")

	c := &Client{
		backoff: 500 * time.Millisecond,
	}

	lflag.Do(func() {
		c.url = *url
		c.key = *key
		c.attempts = *attempts
		c.hc = common.HTTPClient(30 * time.Second)
	})

	return c
}

// Enabled returns whether an insight API has been configured.
func (c *Client) Enabled() bool {
	return c.url != ""
}

type insightRequest struct {
	Result   types.CalculationResult `json:"result"`
	Tariff   types.StateTariff       `json:"tariff"`
	Language string                  `json:"language"`
}

type insightResponse struct {
	Insight string `json:"insight"`
}

// Generate asks the advice API to explain a calculation result in the given
// language. It retries transient failures with exponential backoff up to the
// configured attempt count.
func (c *Client) Generate(ctx context.Context, result types.CalculationResult, tariff types.StateTariff, language string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("insight API not configured")
	}

	body, err := json.Marshal(insightRequest{
		Result:   result,
		Tariff:   tariff,
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal insight request: %w", err)
	}

	var lastErr error
	delay := c.backoff
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			log.Ctx(ctx).DebugContext(ctx, "retrying insight request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("err", lastErr),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		text, retryable, err := c.generateOnce(ctx, body)
		if err == nil {
			return text, nil
		}
		if !retryable {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("insight request failed after %d attempts: %w", c.attempts, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to build insight request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("insight request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retryable, fmt.Errorf("insight API returned %d", resp.StatusCode)
	}

	var ir insightResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return "", false, fmt.Errorf("failed to decode insight response: %w", err)
	}
	if ir.Insight == "" {
		return "", false, fmt.Errorf("insight API returned an empty insight")
	}
	return ir.Insight, false, nil
}
