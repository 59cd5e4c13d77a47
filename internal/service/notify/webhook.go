package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/logger"
)

// DefaultWebhookTimeout bounds one delivery.
const DefaultWebhookTimeout = 5 * time.Second

var (
	errWebhookScheme  = errors.New("webhook URL must use http or https")
	errWebhookBlocked = errors.New("webhook URL host is blocked")
	errWebhookStatus  = errors.New("webhook rejected the alarms")

	//nolint:gochecknoglobals // Lookup table.
	blockedWebhookHosts = map[string]struct{}{
		"169.254.169.254":          {},
		"metadata.google.internal": {},
	}
)

type webhookPayload struct {
	Event  string         `json:"event"`
	Alarms []*alarm.Event `json:"alarms"`
	SentAt time.Time      `json:"sent_at"`
}

// Webhook posts every batch as JSON to a URL. Deliveries run in the
// background so a slow receiver never holds up a poll cycle.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewWebhook checks the target URL and creates the notifier.
// A nil client gets one with DefaultWebhookTimeout.
func NewWebhook(rawURL string, client *http.Client) (*Webhook, error) {
	if err := validateWebhookURL(rawURL); err != nil {
		return nil, err
	}

	if client == nil {
		client = &http.Client{Timeout: DefaultWebhookTimeout}
	}

	return &Webhook{
		url:     rawURL,
		client:  client,
		timeout: DefaultWebhookTimeout,
	}, nil
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, events []*alarm.Event) {
	if len(events) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)

	w.wg.Go(func() {
		if err := w.post(ctx, events); err != nil {
			logger.ErrorKV(ctx, "Webhook delivery failed", "alarms", len(events), "error", err)
		}
	})
}

// Wait blocks until every started delivery has finished.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

func (w *Webhook) post(ctx context.Context, events []*alarm.Event) error {
	data, err := json.Marshal(&webhookPayload{
		Event:  "alarm",
		Alarms: events,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s", errWebhookStatus, resp.Status)
	}

	return nil
}

// validateWebhookURL accepts http(s) URLs that do not target cloud metadata endpoints.
func validateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w, got %q", errWebhookScheme, scheme)
	}

	host := strings.ToLower(u.Hostname())
	if _, blocked := blockedWebhookHosts[host]; blocked || host == "" {
		return fmt.Errorf("%w: %q", errWebhookBlocked, host)
	}

	return nil
}
