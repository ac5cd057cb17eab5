package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/httpclient"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
)

// HTTPNotifier POSTs alerts to the downstream broadcast endpoint. There are no
// retries; only 200 and 201 count as delivered.
type HTTPNotifier struct {
	url    string
	client *http.Client
	logger arbor.ILogger
}

// NewHTTPNotifier creates a broadcaster for config.BroadcastURL
func NewHTTPNotifier(config common.AlertsConfig, logger arbor.ILogger) *HTTPNotifier {
	timeout := config.NotifyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPNotifier{
		url:    config.BroadcastURL,
		client: httpclient.NewDefaultHTTPClient(timeout),
		logger: logger,
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, alert *models.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return &models.NotificationDeliveryError{AlertID: alert.ID, Err: fmt.Errorf("failed to marshal alert: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return &models.NotificationDeliveryError{AlertID: alert.ID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return &models.NotificationDeliveryError{AlertID: alert.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &models.NotificationDeliveryError{AlertID: alert.ID, StatusCode: resp.StatusCode}
	}

	n.logger.Debug().Str("alert_id", alert.ID).Str("title", alert.Title).Msg("Alert broadcasted")
	return nil
}

var _ interfaces.AlertNotifier = (*HTTPNotifier)(nil)
