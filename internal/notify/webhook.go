package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookNotifier posts each alert as JSON to a configured URL.
type WebhookNotifier struct {
	URL    string
	client *http.Client
	policy retryPolicy
}

func NewWebhookNotifier(url string, timeout time.Duration) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier: url is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		URL:    url,
		client: &http.Client{Timeout: timeout},
		policy: defaultRetryPolicy,
	}, nil
}

type webhookPayload struct {
	AlertID   string         `json:"alert_id"`
	AgentID   string         `json:"agent_id"`
	RouteID   string         `json:"route_id,omitempty"`
	Type      string         `json:"alert_type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, a domain.Alert) (err error) {
	defer obs.Time(ctx, "notify.Webhook")(&err)

	body, err := json.Marshal(webhookPayload{
		AlertID:   a.ID,
		AgentID:   a.AgentID,
		RouteID:   a.RouteID,
		Type:      string(a.Type),
		Severity:  string(a.Severity),
		Message:   a.Message,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("webhook notifier: encode alert %s: %w", a.ID, err)
	}

	resp, err := doWithRetry(ctx, n.client, n.policy, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("webhook notifier: post alert %s: %w", a.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
