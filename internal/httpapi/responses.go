package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/content"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	jsonKeyError          = "error"
	jsonKeyDetails        = "details"
	jsonKeyMessage        = "message"
	jsonKeyNeedsMigration = "needsMigration"
	jsonKeyEmail          = "email"
	jsonKeyID             = "id"

	errorValueInvalidJSON             = "invalid_json"
	errorValueValidationFailed        = "validation_failed"
	errorValueNotFound                = "not_found"
	errorValueNothingToUpdate         = "nothing_to_update"
	errorValueSaveFailed              = "save_failed"
	errorValueQueryFailed             = "query_failed"
	errorValueDeleteFailed            = "delete_failed"
	errorValueRateLimited             = "rate_limited"
	errorValueUnauthorized            = "unauthorized"
	errorValueInvalidCredentials      = "invalid_credentials"
	errorValueMultiFormatDisabled     = "multi_format_disabled"
	errorValuePixelNotConfigured      = "pixel_not_configured"
	errorValueConversionForwardFailed = "conversion_forward_failed"
	errorValueFileTooLarge            = "file_too_large"
	errorValueUnsupportedMediaType    = "unsupported_media_type"
	errorValueUploadFailed            = "upload_failed"
	errorValueInvalidLeadType         = "invalid_lead_type"
	errorValueDispatchFailed          = "dispatch_failed"
)

func respondError(context *gin.Context, status int, code string) {
	context.JSON(status, gin.H{jsonKeyError: code})
}

func respondValidation(context *gin.Context, details model.ValidationErrors) {
	context.JSON(http.StatusBadRequest, gin.H{
		jsonKeyError:   errorValueValidationFailed,
		jsonKeyDetails: details,
	})
}

func singleFieldError(field string, message string) model.ValidationErrors {
	var details model.ValidationErrors
	details.Add(field, message)
	return details
}

// respondContentError maps content store errors to the shared JSON error shape.
// Unknown errors are logged under logEvent and reported with fallbackCode only.
func respondContentError(context *gin.Context, logger *zap.Logger, logEvent string, err error, fallbackCode string) {
	var validationErrors model.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		respondValidation(context, validationErrors)
	case errors.Is(err, content.ErrInvalidPatchBody):
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
	case errors.Is(err, content.ErrEmptyPatch):
		respondError(context, http.StatusBadRequest, errorValueNothingToUpdate)
	case errors.Is(err, content.ErrEmptyOrder):
		respondValidation(context, singleFieldError("ids", "must list at least one id"))
	case errors.Is(err, content.ErrTableMissing):
		logger.Warn(logEvent, zap.Error(err))
		context.JSON(http.StatusNotFound, gin.H{jsonKeyError: errorValueNotFound, jsonKeyNeedsMigration: true})
	case content.IsNotFound(err):
		respondError(context, http.StatusNotFound, errorValueNotFound)
	default:
		logger.Warn(logEvent, zap.Error(err))
		respondError(context, http.StatusInternalServerError, fallbackCode)
	}
}
