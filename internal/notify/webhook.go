package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	phttp "github.com/Alias1177/InsiderScan/internal/platform/http"
	"github.com/Alias1177/InsiderScan/models"
)

// Webhook posts alerts as JSON, in a Slack-compatible shape
type Webhook struct {
	url    string
	client *phttp.Client
	logger zerolog.Logger
}

type webhookPayload struct {
	Text    string                 `json:"text"`
	Records []models.AnomalyRecord `json:"records"`
}

// NewWebhook creates a webhook notifier
func NewWebhook(url string, client *phttp.Client) *Webhook {
	if client == nil {
		client = phttp.NewClient(phttp.ClientOptions{})
	}
	return &Webhook{
		url:    url,
		client: client,
		logger: log.With().Str("component", "webhook").Logger(),
	}
}

// Notify implements models.Notifier
func (w *Webhook) Notify(ctx context.Context, records []models.AnomalyRecord) error {
	if len(records) == 0 {
		return nil
	}
	startTime := time.Now()

	sorted := append([]models.AnomalyRecord(nil), records...)
	SortByScore(sorted)

	body, err := json.Marshal(webhookPayload{Text: Render(sorted), Records: sorted})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	resp, err := w.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("failed to send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	w.logger.Info().
		Int("records", len(records)).
		Int64("latency_ms", time.Since(startTime).Milliseconds()).
		Msg("Webhook alert sent")
	return nil
}
