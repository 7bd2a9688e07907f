package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

const (
	defaultTestMessage = "Webhook test"

	errorValueWebhookNotConfigured = "webhook_not_configured"

	logEventLoadWebhookSettings   = "load_webhook_settings"
	logEventUpdateWebhookSettings = "update_webhook_settings"
	logEventTestWebhook           = "test_webhook"
)

// WebhookTester posts a test payload to the configured webhook.
type WebhookTester interface {
	SendTest(ctx context.Context, message string) (webhook.Outcome, error)
}

type WebhookSettingsHandlers struct {
	store  *webhook.SettingsStore
	tester WebhookTester
	logger *zap.Logger
}

func NewWebhookSettingsHandlers(store *webhook.SettingsStore, tester WebhookTester, logger *zap.Logger) *WebhookSettingsHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookSettingsHandlers{store: store, tester: tester, logger: logger}
}

type updateWebhookSettingsRequest struct {
	WebhookURL     *string `json:"webhook_url"`
	WebhookSecret  *string `json:"webhook_secret"`
	WebhookEnabled *bool   `json:"webhook_enabled"`
}

type testWebhookRequest struct {
	Message string `json:"message"`
}

func (handlers *WebhookSettingsHandlers) GetSettings(context *gin.Context) {
	settings, loadErr := handlers.store.Get(context.Request.Context())
	if loadErr != nil {
		handlers.logger.Warn(logEventLoadWebhookSettings, zap.Error(loadErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, webhook.NewSettingsView(settings))
}

func (handlers *WebhookSettingsHandlers) UpdateSettings(context *gin.Context) {
	var payload updateWebhookSettingsRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
		return
	}

	settings, updateErr := handlers.store.Update(context.Request.Context(), webhook.SettingsUpdate{
		WebhookURL:     payload.WebhookURL,
		WebhookSecret:  payload.WebhookSecret,
		WebhookEnabled: payload.WebhookEnabled,
	})
	if updateErr != nil {
		var validationErrors model.ValidationErrors
		switch {
		case errors.As(updateErr, &validationErrors):
			respondValidation(context, validationErrors)
		case errors.Is(updateErr, webhook.ErrNothingToUpdate):
			respondError(context, http.StatusBadRequest, errorValueNothingToUpdate)
		default:
			handlers.logger.Warn(logEventUpdateWebhookSettings, zap.Error(updateErr))
			respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		}
		return
	}
	context.JSON(http.StatusOK, webhook.NewSettingsView(settings))
}

// TestWebhook sends a synthetic payload and reports the receiver's answer.
func (handlers *WebhookSettingsHandlers) TestWebhook(context *gin.Context) {
	var payload testWebhookRequest
	if context.Request.ContentLength != 0 {
		if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
			respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
			return
		}
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		message = defaultTestMessage
	}

	outcome, sendErr := handlers.tester.SendTest(context.Request.Context(), message)
	if sendErr != nil {
		handlers.logger.Warn(logEventTestWebhook, zap.Error(sendErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}
	if outcome.Skipped {
		respondError(context, http.StatusBadRequest, errorValueWebhookNotConfigured)
		return
	}
	context.JSON(http.StatusOK, outcome)
}
