package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/conversions"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	contentTypeJSON = "application/json"

	logEventForwardConversion = "forward_conversion"
)

// ConversionForwarder relays one browser event to the Conversions API.
type ConversionForwarder interface {
	Forward(ctx context.Context, event conversions.Event, clientIP string, userAgent string) (conversions.Response, error)
}

type ConversionHandlers struct {
	forwarder ConversionForwarder
	logger    *zap.Logger
}

func NewConversionHandlers(forwarder ConversionForwarder, logger *zap.Logger) *ConversionHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionHandlers{forwarder: forwarder, logger: logger}
}

// ForwardConversion relays the platform's status, content type and body unchanged.
func (handlers *ConversionHandlers) ForwardConversion(context *gin.Context) {
	var event conversions.Event
	if bindErr := context.ShouldBindJSON(&event); bindErr != nil {
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
		return
	}

	response, forwardErr := handlers.forwarder.Forward(context.Request.Context(), event, context.ClientIP(), context.Request.UserAgent())
	if forwardErr != nil {
		var validationErrors model.ValidationErrors
		switch {
		case errors.As(forwardErr, &validationErrors):
			respondValidation(context, validationErrors)
		case errors.Is(forwardErr, conversions.ErrPixelNotConfigured):
			respondError(context, http.StatusBadRequest, errorValuePixelNotConfigured)
		case errors.Is(forwardErr, conversions.ErrForwardFailed):
			respondError(context, http.StatusBadGateway, errorValueConversionForwardFailed)
		default:
			handlers.logger.Warn(logEventForwardConversion, zap.Error(forwardErr))
			respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		}
		return
	}

	contentType := response.ContentType
	if contentType == "" {
		contentType = contentTypeJSON
	}
	context.Data(response.StatusCode, contentType, response.Body)
}
