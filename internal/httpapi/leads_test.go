package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/httpapi"
	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/storage"
	"github.com/MarkoPoloResearchLab/leadpage/internal/testutil"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

type recordingPublisher struct {
	mutex  sync.Mutex
	events []leads.Event
}

func (publisher *recordingPublisher) Publish(_ context.Context, event leads.Event) error {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	publisher.events = append(publisher.events, event)
	return nil
}

type stubDeliverer struct {
	database *gorm.DB
	outcome  webhook.Outcome
	err      error
	events   []leads.Event
}

func (deliverer *stubDeliverer) Deliver(_ context.Context, event leads.Event) (webhook.Outcome, error) {
	deliverer.events = append(deliverer.events, event)
	if deliverer.err == nil && deliverer.outcome.Success {
		_, _ = storage.MarkWebhookSent(deliverer.database, event.LeadID)
	}
	return deliverer.outcome, deliverer.err
}

type leadTestHarness struct {
	handlers  *httpapi.LeadHandlers
	database  *gorm.DB
	publisher *recordingPublisher
	deliverer *stubDeliverer
}

func newLeadTestHarness(testingT *testing.T) leadTestHarness {
	testingT.Helper()
	database := testutil.NewMigratedDatabase(testingT)
	publisher := &recordingPublisher{}
	deliverer := &stubDeliverer{database: database, outcome: webhook.Outcome{Success: true, StatusCode: http.StatusOK}}
	service := leads.NewService(database, zap.NewNop(), publisher)
	return leadTestHarness{
		handlers:  httpapi.NewLeadHandlers(service, deliverer, zap.NewNop()),
		database:  database,
		publisher: publisher,
		deliverer: deliverer,
	}
}

func (harness leadTestHarness) createLead(testingT *testing.T, source string) model.Lead {
	testingT.Helper()
	lead := model.Lead{
		ID:       storage.NewID(),
		Name:     "Maria Souza",
		WhatsApp: "11988887777",
		HasCNPJ:  model.LeadHasCNPJYes,
		Source:   source,
		Status:   model.LeadStatusNew,
	}
	require.NoError(testingT, harness.database.Create(&lead).Error)
	return lead
}

func TestCreateLeadReturnsIdentifierAndPublishes(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)

	recorder, context := newJSONContext(http.MethodPost, "/api/leads", map[string]string{
		"name":       "Maria Souza",
		"whatsapp":   "(11) 98888-7777",
		"has_cnpj":   "sim",
		"store_type": "online",
		"cep":        "01310-100",
	})
	context.Request.Header.Set("User-Agent", "landing-test")
	harness.handlers.CreateLead(context)

	require.Equal(testingT, http.StatusCreated, recorder.Code)
	payload := decodeBody(testingT, recorder)
	leadID, _ := payload["id"].(string)
	require.NotEmpty(testingT, leadID)
	require.Len(testingT, payload, 1)

	var stored model.Lead
	require.NoError(testingT, harness.database.First(&stored, "id = ?", leadID).Error)
	require.Equal(testingT, model.LeadSourceMerchant, stored.Source)
	require.Equal(testingT, "landing-test", stored.UserAgent)
	require.False(testingT, stored.WebhookSent)

	require.Len(testingT, harness.publisher.events, 1)
	require.Equal(testingT, leadID, harness.publisher.events[0].LeadID)
}

func TestCreateLeadReportsFieldDetails(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)

	recorder, context := newJSONContext(http.MethodPost, "/api/leads", map[string]string{"name": "A", "whatsapp": "12"})
	harness.handlers.CreateLead(context)

	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	payload := decodeBody(testingT, recorder)
	require.Equal(testingT, "validation_failed", payload["error"])
	require.ElementsMatch(testingT, []string{"name", "whatsapp", "has_cnpj"}, detailFields(testingT, payload))
	require.Empty(testingT, harness.publisher.events)
}

func TestCreateLeadRejectsMalformedJSON(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)

	recorder, context := newRawJSONContext(http.MethodPost, "/api/leads", "{not json")
	harness.handlers.CreateLead(context)

	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	require.Equal(testingT, "invalid_json", decodeBody(testingT, recorder)["error"])
}

func TestCreateConsumerLeadPersistsConsumer(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)

	recorder, context := newJSONContext(http.MethodPost, "/api/leads/consumer", map[string]string{"name": "Carlos", "whatsapp": "11 96666-5555"})
	harness.handlers.CreateConsumerLead(context)

	require.Equal(testingT, http.StatusCreated, recorder.Code)
	leadID := decodeBody(testingT, recorder)["id"].(string)

	var stored model.Lead
	require.NoError(testingT, harness.database.First(&stored, "id = ?", leadID).Error)
	require.Equal(testingT, model.LeadSourceConsumer, stored.Source)
	require.Equal(testingT, model.LeadHasCNPJNo, stored.HasCNPJ)
	require.False(testingT, harness.publisher.events[0].IsMerchant())
}

func TestListLeadsReturnsPagination(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)
	for index := 0; index < 3; index++ {
		harness.createLead(testingT, model.LeadSourceMerchant)
	}
	harness.createLead(testingT, model.LeadSourceConsumer)

	recorder, context := newJSONContext(http.MethodGet, "/api/leads?page=1&limit=2&type=lojista", nil)
	harness.handlers.ListLeads(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	payload := decodeBody(testingT, recorder)
	require.Len(testingT, payload["leads"], 2)
	pagination := payload["pagination"].(map[string]any)
	require.Equal(testingT, float64(1), pagination["page"])
	require.Equal(testingT, float64(2), pagination["limit"])
	require.Equal(testingT, float64(3), pagination["total"])
	require.Equal(testingT, float64(2), pagination["total_pages"])
}

func TestGetUpdateDeleteLead(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)
	lead := harness.createLead(testingT, model.LeadSourceMerchant)

	recorder, context := newJSONContext(http.MethodGet, "/api/leads/missing", nil)
	context.Params = gin.Params{{Key: "id", Value: "missing"}}
	harness.handlers.GetLead(context)
	require.Equal(testingT, http.StatusNotFound, recorder.Code)
	require.Equal(testingT, "not_found", decodeBody(testingT, recorder)["error"])

	testCases := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		expectedError  string
	}{
		{name: "invalid status", body: map[string]any{"status": "archived"}, expectedStatus: http.StatusBadRequest, expectedError: "validation_failed"},
		{name: "empty patch", body: map[string]any{}, expectedStatus: http.StatusBadRequest, expectedError: "nothing_to_update"},
		{name: "status and notes", body: map[string]any{"status": "Contacted", "notes": "ligar amanhã"}, expectedStatus: http.StatusOK},
	}
	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			updateRecorder, updateContext := newJSONContext(http.MethodPut, "/api/leads/"+lead.ID, testCase.body)
			updateContext.Params = gin.Params{{Key: "id", Value: lead.ID}}
			harness.handlers.UpdateLead(updateContext)
			require.Equal(testingT, testCase.expectedStatus, updateRecorder.Code)
			payload := decodeBody(testingT, updateRecorder)
			if testCase.expectedError != "" {
				require.Equal(testingT, testCase.expectedError, payload["error"])
				return
			}
			require.Equal(testingT, model.LeadStatusContacted, payload["status"])
			require.Equal(testingT, "ligar amanhã", payload["notes"])
		})
	}

	deleteRecorder, deleteContext := newJSONContext(http.MethodDelete, "/api/leads/"+lead.ID, nil)
	deleteContext.Params = gin.Params{{Key: "id", Value: lead.ID}}
	harness.handlers.DeleteLead(deleteContext)
	require.Equal(testingT, http.StatusNoContent, deleteContext.Writer.Status())
	_ = deleteRecorder

	againRecorder, againContext := newJSONContext(http.MethodDelete, "/api/leads/"+lead.ID, nil)
	againContext.Params = gin.Params{{Key: "id", Value: lead.ID}}
	harness.handlers.DeleteLead(againContext)
	require.Equal(testingT, http.StatusNotFound, againRecorder.Code)
}

func TestLeadStatsAndDeliveries(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)
	lead := harness.createLead(testingT, model.LeadSourceMerchant)
	require.NoError(testingT, harness.database.Create(&model.WebhookDelivery{
		ID:         storage.NewID(),
		LeadID:     lead.ID,
		Event:      model.WebhookEventNewLead,
		LeadType:   model.LeadSourceMerchant,
		StatusCode: http.StatusBadGateway,
		Error:      "bad gateway",
	}).Error)

	statsRecorder, statsContext := newJSONContext(http.MethodGet, "/api/leads/stats", nil)
	harness.handlers.LeadStats(statsContext)
	require.Equal(testingT, http.StatusOK, statsRecorder.Code)
	stats := decodeBody(testingT, statsRecorder)
	require.Equal(testingT, float64(1), stats["total"])
	require.Equal(testingT, float64(1), stats["webhook"].(map[string]any)["pending"])

	deliveriesRecorder, deliveriesContext := newJSONContext(http.MethodGet, "/api/leads/"+lead.ID+"/deliveries", nil)
	deliveriesContext.Params = gin.Params{{Key: "id", Value: lead.ID}}
	harness.handlers.LeadDeliveries(deliveriesContext)
	require.Equal(testingT, http.StatusOK, deliveriesRecorder.Code)
	require.Len(testingT, decodeBody(testingT, deliveriesRecorder)["deliveries"], 1)
}

func TestResendLead(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)
	merchant := harness.createLead(testingT, model.LeadSourceMerchant)
	consumer := harness.createLead(testingT, model.LeadSourceConsumer)

	recorder, context := newJSONContext(http.MethodPost, "/api/leads/"+merchant.ID+"/resend", nil)
	context.Params = gin.Params{{Key: "id", Value: merchant.ID}}
	harness.handlers.ResendLead(context)
	require.Equal(testingT, http.StatusOK, recorder.Code)
	payload := decodeBody(testingT, recorder)
	require.Equal(testingT, true, payload["outcome"].(map[string]any)["success"])
	require.Equal(testingT, true, payload["lead"].(map[string]any)["webhook_sent"])
	require.Len(testingT, harness.deliverer.events, 1)

	consumerRecorder, consumerContext := newJSONContext(http.MethodPost, "/api/leads/"+consumer.ID+"/resend", nil)
	consumerContext.Params = gin.Params{{Key: "id", Value: consumer.ID}}
	harness.handlers.ResendLead(consumerContext)
	require.Equal(testingT, http.StatusBadRequest, consumerRecorder.Code)
	require.Equal(testingT, "invalid_lead_type", decodeBody(testingT, consumerRecorder)["error"])

	harness.deliverer.err = errors.New("database locked")
	failedRecorder, failedContext := newJSONContext(http.MethodPost, "/api/leads/"+merchant.ID+"/resend", nil)
	failedContext.Params = gin.Params{{Key: "id", Value: merchant.ID}}
	harness.handlers.ResendLead(failedContext)
	require.Equal(testingT, http.StatusInternalServerError, failedRecorder.Code)
	require.NotContains(testingT, failedRecorder.Body.String(), "database locked")
}

func TestRateLimitRejectsBurstsPerClient(testingT *testing.T) {
	harness := newLeadTestHarness(testingT)
	router := gin.New()
	router.POST("/api/leads", httpapi.RateLimit(httpapi.NewRateLimiter(httpapi.DefaultLeadRateLimit, httpapi.DefaultLeadRateWindow)), harness.handlers.CreateLead)

	send := func(remoteAddress string) *httptest.ResponseRecorder {
		_, context := newJSONContext(http.MethodPost, "/api/leads", map[string]string{"name": "Maria", "whatsapp": "11988887777", "has_cnpj": "nao"})
		context.Request.RemoteAddr = remoteAddress
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, context.Request)
		return recorder
	}

	for attempt := 0; attempt < httpapi.DefaultLeadRateLimit; attempt++ {
		require.Equal(testingT, http.StatusCreated, send("198.51.100.10:5000").Code)
	}
	limited := send("198.51.100.10:5001")
	require.Equal(testingT, http.StatusTooManyRequests, limited.Code)
	require.Equal(testingT, "rate_limited", decodeBody(testingT, limited)["error"])

	require.Equal(testingT, http.StatusCreated, send("198.51.100.11:5000").Code)
}
