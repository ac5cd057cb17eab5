package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/ternarybob/mandi/internal/storage/badger"
)

func testConfig(url string) common.AlertsConfig {
	return common.AlertsConfig{
		BroadcastURL:      url,
		DropThreshold:     0.10,
		HighDropThreshold: 0.15,
		SpikeThreshold:    0.15,
		Confidence:        0.85,
		NotifyTimeout:     time.Second,
	}
}

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func seedCurrent(t *testing.T, storage interfaces.StorageManager, commodity string, modal int64) {
	t.Helper()
	require.NoError(t, storage.PriceStorage().Upsert(context.Background(), &models.PriceRecord{
		Commodity:  commodity,
		Market:     "Pune",
		State:      "Maharashtra",
		ModalPrice: decimal.NewFromInt(modal),
		Date:       models.TruncateToDate(time.Now()),
	}))
}

type recordingNotifier struct {
	calls int32
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, alert *models.Alert) error {
	atomic.AddInt32(&r.calls, 1)
	return r.err
}

func TestClassify_Boundaries(t *testing.T) {
	thresholds := NewThresholds(testConfig(""))
	current := decimal.NewFromInt(1000)

	tests := []struct {
		predicted int64
		ok        bool
		alertType models.AlertType
		severity  models.AlertSeverity
	}{
		{880, true, models.AlertPriceDrop, models.SeverityMedium},
		{840, true, models.AlertPriceDrop, models.SeverityHigh},
		{850, true, models.AlertPriceDrop, models.SeverityHigh},
		{900, true, models.AlertPriceDrop, models.SeverityMedium},
		{1200, true, models.AlertPriceSpike, models.SeverityMedium},
		{1150, true, models.AlertPriceSpike, models.SeverityMedium},
		{950, false, "", ""},
		{1100, false, "", ""},
	}

	for _, tt := range tests {
		change := ChangeFraction(current, decimal.NewFromInt(tt.predicted))
		alertType, severity, ok := thresholds.Classify(change)
		assert.Equal(t, tt.ok, ok, "predicted %d", tt.predicted)
		assert.Equal(t, tt.alertType, alertType, "predicted %d", tt.predicted)
		assert.Equal(t, tt.severity, severity, "predicted %d", tt.predicted)
	}
}

func TestGenerateAlerts_PersistsAndNotifies(t *testing.T) {
	storage := newTestStorage(t)
	seedCurrent(t, storage, "Tomato", 1000)

	notifier := &recordingNotifier{}
	service := NewService(storage.AlertStorage(), storage.PriceStorage(), testConfig(""), arbor.NewLogger(), notifier)

	forecasts := []models.Forecast{
		{Commodity: "Tomato", DayOffset: 1, PredictedPrice: 880},
		{Commodity: "Tomato", DayOffset: 2, PredictedPrice: 840},
		{Commodity: "Tomato", DayOffset: 3, PredictedPrice: 1200},
		{Commodity: "Tomato", DayOffset: 4, PredictedPrice: 950},
		{Commodity: "Onion", DayOffset: 1, PredictedPrice: 10}, // no current price
	}

	alerts, err := service.GenerateAlerts(context.Background(), forecasts)
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	assert.Equal(t, models.AlertPriceDrop, alerts[0].Type)
	assert.Equal(t, models.SeverityMedium, alerts[0].Severity)
	assert.Equal(t, -12.0, alerts[0].ChangePercentage)
	assert.Equal(t, "Tomato Price Drop Alert", alerts[0].Title)
	assert.Equal(t, "Tomato prices expected to drop 12.0% to ₹880.00/quintal. Consider selling now.", alerts[0].Message)
	assert.Contains(t, alerts[0].MessageHindi, "अभी बेचें")
	assert.Equal(t, SourcePrediction, alerts[0].Metadata.Source)
	assert.Equal(t, 0.85, alerts[0].Metadata.Confidence)
	assert.True(t, alerts[0].Metadata.Actionable)

	assert.Equal(t, models.SeverityHigh, alerts[1].Severity)
	assert.Equal(t, -16.0, alerts[1].ChangePercentage)

	assert.Equal(t, models.AlertPriceSpike, alerts[2].Type)
	assert.Equal(t, 20.0, alerts[2].ChangePercentage)
	assert.Equal(t, "Tomato Price Increase Alert", alerts[2].Title)

	stored, err := service.List(context.Background(), "Tomato", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&notifier.calls))
}

func TestGenerateAlerts_NotifierFailureDoesNotFailCaller(t *testing.T) {
	storage := newTestStorage(t)
	seedCurrent(t, storage, "Onion", 2000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service := NewService(storage.AlertStorage(), storage.PriceStorage(), testConfig(server.URL), arbor.NewLogger(),
		NewHTTPNotifier(testConfig(server.URL), arbor.NewLogger()))

	alerts, err := service.GenerateAlerts(context.Background(), []models.Forecast{{Commodity: "Onion", PredictedPrice: 1500}})
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	stored, err := service.List(context.Background(), "Onion", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestHTTPNotifier(t *testing.T) {
	var received models.Alert
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	notifier := NewHTTPNotifier(testConfig(server.URL), arbor.NewLogger())
	err := notifier.Notify(context.Background(), &models.Alert{ID: "alert_1", Title: "Tomato Price Drop Alert"})
	require.NoError(t, err)
	assert.Equal(t, "Tomato Price Drop Alert", received.Title)

	failing := NewHTTPNotifier(testConfig("http://127.0.0.1:1"), arbor.NewLogger())
	err = failing.Notify(context.Background(), &models.Alert{ID: "alert_2"})
	var delivery *models.NotificationDeliveryError
	require.True(t, errors.As(err, &delivery))
	assert.Equal(t, "alert_2", delivery.AlertID)
}

func TestCreateDemandAlert(t *testing.T) {
	storage := newTestStorage(t)
	notifier := &recordingNotifier{err: errors.New("sink down")}
	service := NewService(storage.AlertStorage(), storage.PriceStorage(), testConfig(""), arbor.NewLogger(), notifier)

	alert, err := service.CreateDemandAlert(context.Background(), "Onion", "Export orders are up this week")
	require.NoError(t, err)
	assert.Equal(t, models.AlertDemand, alert.Type)
	assert.Equal(t, "High Demand - Onion", alert.Title)
	assert.Equal(t, SourceManual, alert.Metadata.Source)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notifier.calls))

	_, err = service.CreateDemandAlert(context.Background(), "", "x")
	assert.Error(t, err)
}
