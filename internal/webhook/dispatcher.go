package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/metrics"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/storage"
)

const (
	// TimestampLayout is RFC3339 with millisecond precision, always in UTC.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

	HeaderWebhookSecret = "X-Webhook-Secret"

	payloadTypeTest = "test"

	responseDrainLimit = 64 << 10

	logEventDispatchFailed    = "webhook_dispatch_failed"
	logEventBookkeepingFailed = "webhook_bookkeeping_failed"
	logEventDeliveryLogFailed = "webhook_delivery_log_failed"
	logEventLeadMissing       = "webhook_lead_missing"
	logEventAlertFailed       = "lead_alert_failed"

	errorMessageLoadLead = "webhook: load lead"
)

var ErrUnexpectedStatus = errors.New("webhook: unexpected status")

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// LeadAlerter is notified after a merchant lead reached the webhook.
type LeadAlerter interface {
	AlertLead(ctx context.Context, lead model.Lead) error
}

// Outcome reports what happened to one dispatch.
type Outcome struct {
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

// Payload is the JSON document posted to the webhook.
type Payload struct {
	Event     string `json:"event"`
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

type consumerData struct {
	Name     string `json:"name"`
	WhatsApp string `json:"whatsapp"`
}

type testData struct {
	Message string `json:"message"`
}

// Dispatcher posts lead events to the configured webhook and records the outcome.
type Dispatcher struct {
	database   *gorm.DB
	logger     *zap.Logger
	settings   *SettingsStore
	httpClient HTTPClient
	alerters   []LeadAlerter
	now        func() time.Time
}

func NewDispatcher(database *gorm.DB, logger *zap.Logger, httpClient HTTPClient, alerters ...LeadAlerter) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Dispatcher{
		database:   database,
		logger:     logger,
		settings:   NewSettingsStore(database),
		httpClient: httpClient,
		alerters:   alerters,
		now:        time.Now,
	}
}

// Deliver dispatches one lead event. Delivery failures are reported in the Outcome;
// the returned error is reserved for storage problems.
func (dispatcher *Dispatcher) Deliver(ctx context.Context, event leads.Event) (Outcome, error) {
	settings, settingsErr := dispatcher.settings.Get(ctx)
	if settingsErr != nil {
		return Outcome{}, settingsErr
	}
	if !settings.Active() {
		metrics.RecordWebhookDelivery(metrics.WebhookResultSkipped)
		return Outcome{Skipped: true}, nil
	}

	if !event.IsMerchant() {
		payload := Payload{
			Event:     model.WebhookEventConsumerDetected,
			Type:      model.LeadSourceConsumer,
			Data:      consumerData{Name: event.Name, WhatsApp: event.WhatsApp},
			Timestamp: dispatcher.timestamp(),
		}
		outcome := dispatcher.post(ctx, settings, payload, event.LeadID, model.LeadSourceConsumer)
		return outcome, nil
	}

	var lead model.Lead
	if err := dispatcher.database.WithContext(ctx).First(&lead, "id = ?", event.LeadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dispatcher.logger.Info(logEventLeadMissing, zap.String("lead_id", event.LeadID))
			metrics.RecordWebhookDelivery(metrics.WebhookResultSkipped)
			return Outcome{Skipped: true}, nil
		}
		return Outcome{}, fmt.Errorf("%s: %w", errorMessageLoadLead, err)
	}

	payload := Payload{
		Event:     model.WebhookEventNewLead,
		Type:      model.LeadSourceMerchant,
		Data:      lead,
		Timestamp: dispatcher.timestamp(),
	}
	outcome := dispatcher.post(ctx, settings, payload, lead.ID, model.LeadSourceMerchant)
	dispatcher.recordBookkeeping(ctx, lead.ID, outcome)
	if outcome.Success {
		dispatcher.alert(ctx, lead)
	}
	return outcome, nil
}

// SendTest posts a test payload without touching any lead.
func (dispatcher *Dispatcher) SendTest(ctx context.Context, message string) (Outcome, error) {
	settings, settingsErr := dispatcher.settings.Get(ctx)
	if settingsErr != nil {
		return Outcome{}, settingsErr
	}
	if settings.WebhookURL == "" {
		return Outcome{Skipped: true}, nil
	}
	payload := Payload{
		Event:     model.WebhookEventTest,
		Type:      payloadTypeTest,
		Data:      testData{Message: message},
		Timestamp: dispatcher.timestamp(),
	}
	return dispatcher.post(ctx, settings, payload, "", payloadTypeTest), nil
}

func (dispatcher *Dispatcher) timestamp() string {
	return dispatcher.now().UTC().Format(TimestampLayout)
}

func (dispatcher *Dispatcher) post(ctx context.Context, settings model.WebhookSettings, payload Payload, leadID string, leadType string) Outcome {
	start := time.Now()
	outcome := dispatcher.send(ctx, settings, payload)

	result := metrics.WebhookResultSent
	if !outcome.Success {
		result = metrics.WebhookResultFailed
		dispatcher.logger.Warn(logEventDispatchFailed,
			zap.String("event", payload.Event),
			zap.String("lead_id", leadID),
			zap.Int("status", outcome.StatusCode),
			zap.String("error", outcome.Error))
	}
	metrics.RecordWebhookDelivery(result)

	delivery := model.WebhookDelivery{
		ID:         storage.NewID(),
		LeadID:     leadID,
		Event:      payload.Event,
		LeadType:   leadType,
		StatusCode: outcome.StatusCode,
		Success:    outcome.Success,
		Error:      model.TruncateDeliveryError(outcome.Error),
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err := dispatcher.database.WithContext(context.WithoutCancel(ctx)).Create(&delivery).Error; err != nil {
		dispatcher.logger.Warn(logEventDeliveryLogFailed, zap.Error(err), zap.String("lead_id", leadID))
	}
	return outcome
}

func (dispatcher *Dispatcher) send(ctx context.Context, settings model.WebhookSettings, payload Payload) Outcome {
	body, encodeErr := json.Marshal(payload)
	if encodeErr != nil {
		return Outcome{Error: encodeErr.Error()}
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, settings.WebhookURL, bytes.NewReader(body))
	if requestErr != nil {
		return Outcome{Error: requestErr.Error()}
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(HeaderWebhookSecret, settings.WebhookSecret)

	response, doErr := dispatcher.httpClient.Do(request)
	if doErr != nil {
		return Outcome{Error: doErr.Error()}
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, responseDrainLimit))

	outcome := Outcome{StatusCode: response.StatusCode}
	if response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices {
		outcome.Success = true
		return outcome
	}
	outcome.Error = fmt.Sprintf("%s: %d", ErrUnexpectedStatus.Error(), response.StatusCode)
	return outcome
}

func (dispatcher *Dispatcher) recordBookkeeping(ctx context.Context, leadID string, outcome Outcome) {
	database := dispatcher.database.WithContext(context.WithoutCancel(ctx))
	if outcome.Success {
		if _, err := storage.MarkWebhookSent(database, leadID); err != nil {
			dispatcher.logger.Warn(logEventBookkeepingFailed, zap.Error(err), zap.String("lead_id", leadID))
		}
		return
	}
	if err := storage.IncrementWebhookAttempts(database, leadID); err != nil {
		dispatcher.logger.Warn(logEventBookkeepingFailed, zap.Error(err), zap.String("lead_id", leadID))
	}
}

func (dispatcher *Dispatcher) alert(ctx context.Context, lead model.Lead) {
	for _, alerter := range dispatcher.alerters {
		if alerter == nil {
			continue
		}
		if err := alerter.AlertLead(ctx, lead); err != nil {
			dispatcher.logger.Warn(logEventAlertFailed, zap.Error(err), zap.String("lead_id", lead.ID))
		}
	}
}
