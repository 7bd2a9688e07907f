package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

const (
	logEventSaveLead       = "save_lead"
	logEventListLeads      = "list_leads"
	logEventLoadLead       = "load_lead"
	logEventUpdateLead     = "update_lead"
	logEventDeleteLead     = "delete_lead"
	logEventLeadStats      = "lead_stats"
	logEventLeadDeliveries = "lead_deliveries"
	logEventResendLead     = "resend_lead"
)

// LeadDeliverer re-dispatches a single lead synchronously.
type LeadDeliverer interface {
	Deliver(ctx context.Context, event leads.Event) (webhook.Outcome, error)
}

type LeadHandlers struct {
	service   *leads.Service
	deliverer LeadDeliverer
	logger    *zap.Logger
}

func NewLeadHandlers(service *leads.Service, deliverer LeadDeliverer, logger *zap.Logger) *LeadHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadHandlers{service: service, deliverer: deliverer, logger: logger}
}

type createLeadRequest struct {
	Name      string `json:"name"`
	WhatsApp  string `json:"whatsapp"`
	HasCNPJ   string `json:"has_cnpj"`
	StoreType string `json:"store_type"`
	CEP       string `json:"cep"`
}

type createConsumerLeadRequest struct {
	Name     string `json:"name"`
	WhatsApp string `json:"whatsapp"`
}

type updateLeadRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

type resendLeadResponse struct {
	Outcome webhook.Outcome `json:"outcome"`
	Lead    model.Lead      `json:"lead"`
}

func (handlers *LeadHandlers) CreateLead(context *gin.Context) {
	var payload createLeadRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
		return
	}

	lead, createErr := handlers.service.CreateLead(context.Request.Context(), model.LeadInput{
		Name:      payload.Name,
		WhatsApp:  payload.WhatsApp,
		HasCNPJ:   payload.HasCNPJ,
		StoreType: payload.StoreType,
		CEP:       payload.CEP,
		IPAddress: context.ClientIP(),
		UserAgent: context.Request.UserAgent(),
	})
	handlers.respondCreated(context, lead, createErr)
}

func (handlers *LeadHandlers) CreateConsumerLead(context *gin.Context) {
	var payload createConsumerLeadRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
		return
	}

	lead, createErr := handlers.service.CreateConsumerLead(context.Request.Context(), model.ConsumerLeadInput{
		Name:      payload.Name,
		WhatsApp:  payload.WhatsApp,
		IPAddress: context.ClientIP(),
		UserAgent: context.Request.UserAgent(),
	})
	handlers.respondCreated(context, lead, createErr)
}

func (handlers *LeadHandlers) respondCreated(context *gin.Context, lead model.Lead, createErr error) {
	if createErr != nil {
		var validationErrors model.ValidationErrors
		if errors.As(createErr, &validationErrors) {
			respondValidation(context, validationErrors)
			return
		}
		handlers.logger.Warn(logEventSaveLead, zap.Error(createErr))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusCreated, gin.H{jsonKeyID: lead.ID})
}

func (handlers *LeadHandlers) ListLeads(context *gin.Context) {
	query := leads.ListQuery{
		Page:   parseIntQuery(context, "page"),
		Limit:  parseIntQuery(context, "limit"),
		Status: context.Query("status"),
		Type:   context.Query("type"),
		Search: context.Query("search"),
	}
	result, listErr := handlers.service.List(context.Request.Context(), query)
	if listErr != nil {
		handlers.logger.Warn(logEventListLeads, zap.Error(listErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, result)
}

func (handlers *LeadHandlers) GetLead(context *gin.Context) {
	lead, getErr := handlers.service.Get(context.Request.Context(), context.Param("id"))
	if getErr != nil {
		handlers.respondLeadError(context, logEventLoadLead, getErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, lead)
}

func (handlers *LeadHandlers) UpdateLead(context *gin.Context) {
	var payload updateLeadRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
		return
	}
	lead, updateErr := handlers.service.Update(context.Request.Context(), context.Param("id"), leads.LeadUpdate{
		Status: payload.Status,
		Notes:  payload.Notes,
	})
	if updateErr != nil {
		handlers.respondLeadError(context, logEventUpdateLead, updateErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusOK, lead)
}

func (handlers *LeadHandlers) DeleteLead(context *gin.Context) {
	if deleteErr := handlers.service.Delete(context.Request.Context(), context.Param("id")); deleteErr != nil {
		handlers.respondLeadError(context, logEventDeleteLead, deleteErr, errorValueDeleteFailed)
		return
	}
	context.Status(http.StatusNoContent)
}

func (handlers *LeadHandlers) LeadStats(context *gin.Context) {
	stats, statsErr := handlers.service.Stats(context.Request.Context())
	if statsErr != nil {
		handlers.logger.Warn(logEventLeadStats, zap.Error(statsErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, stats)
}

func (handlers *LeadHandlers) LeadDeliveries(context *gin.Context) {
	deliveries, listErr := handlers.service.Deliveries(context.Request.Context(), context.Param("id"))
	if listErr != nil {
		handlers.respondLeadError(context, logEventLeadDeliveries, listErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, gin.H{"deliveries": deliveries})
}

// ResendLead dispatches a merchant lead again and waits for the outcome.
func (handlers *LeadHandlers) ResendLead(context *gin.Context) {
	requestContext := context.Request.Context()
	lead, getErr := handlers.service.Get(requestContext, context.Param("id"))
	if getErr != nil {
		handlers.respondLeadError(context, logEventResendLead, getErr, errorValueQueryFailed)
		return
	}
	if !lead.IsMerchant() {
		respondError(context, http.StatusBadRequest, errorValueInvalidLeadType)
		return
	}

	outcome, deliverErr := handlers.deliverer.Deliver(requestContext, leads.NewEvent(lead))
	if deliverErr != nil {
		handlers.logger.Warn(logEventResendLead, zap.Error(deliverErr), zap.String("lead_id", lead.ID))
		respondError(context, http.StatusInternalServerError, errorValueDispatchFailed)
		return
	}

	refreshed, refreshErr := handlers.service.Get(requestContext, lead.ID)
	if refreshErr != nil {
		refreshed = lead
	}
	context.JSON(http.StatusOK, resendLeadResponse{Outcome: outcome, Lead: refreshed})
}

func (handlers *LeadHandlers) respondLeadError(context *gin.Context, logEvent string, err error, fallbackCode string) {
	switch {
	case errors.Is(err, leads.ErrLeadNotFound):
		respondError(context, http.StatusNotFound, errorValueNotFound)
	case errors.Is(err, leads.ErrNothingToUpdate):
		respondError(context, http.StatusBadRequest, errorValueNothingToUpdate)
	case errors.Is(err, model.ErrInvalidLeadStatus):
		respondValidation(context, singleFieldError(model.LeadFieldStatus, "must be one of new, contacted, qualified, converted, lost"))
	case errors.Is(err, model.ErrLeadNotesTooLong):
		respondValidation(context, singleFieldError(model.LeadFieldNotes, "must have at most 4000 characters"))
	default:
		handlers.logger.Warn(logEvent, zap.Error(err))
		respondError(context, http.StatusInternalServerError, fallbackCode)
	}
}

func parseIntQuery(context *gin.Context, key string) int {
	value, parseErr := strconv.Atoi(context.Query(key))
	if parseErr != nil {
		return 0
	}
	return value
}
