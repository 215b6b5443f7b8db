// Package webhook notifies job owners when an animation finishes.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	HeaderSignature = "X-Pixelgen-Signature"
	HeaderTimestamp = "X-Pixelgen-Timestamp"
	HeaderEvent     = "X-Pixelgen-Event"

	EventCompleted = "animation.completed"
	EventFailed    = "animation.failed"
)

type Event struct {
	Type    string    `json:"event"`
	JobID   string    `json:"job_id"`
	Status  string    `json:"status"`
	Outputs []string  `json:"outputs,omitempty"`
	Masks   []string  `json:"masks,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

type Config struct {
	SigningSecret  string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type Client struct {
	httpClient     *http.Client
	signingSecret  string
	maxAttempts    uint
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		signingSecret:  cfg.SigningSecret,
		maxAttempts:    uint(max(1, cfg.MaxAttempts)),
		initialBackoff: initial,
		maxBackoff:     max(cfg.MaxBackoff, initial),
	}
}

// Send posts ev to endpoint as signed JSON. Network errors, 429 and 5xx
// responses are retried with exponential backoff; other statuses are not.
// An empty endpoint is a no-op.
func (c *Client) Send(ctx context.Context, endpoint string, ev Event) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}
	timestamp := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	signature := c.sign(timestamp, body)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = c.maxBackoff

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.post(ctx, endpoint, ev.Type, timestamp, signature, body)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxAttempts))
	if err != nil {
		return fmt.Errorf("deliver %s webhook: %w", ev.Type, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint, event, timestamp, signature string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, event)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("webhook returned status=%d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("webhook returned status=%d", resp.StatusCode))
	}
}

func (c *Client) sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.signingSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
