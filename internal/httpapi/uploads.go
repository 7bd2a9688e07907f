package httpapi

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/content"
	"github.com/MarkoPoloResearchLab/leadpage/internal/metrics"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/uploads"
)

const (
	UploadFormField = "image"

	uploadSuccessMessage = "upload successful"

	logEventUpload            = "upload_image"
	logEventUploadMultiFormat = "upload_multi_format"
	logEventLoadDesign        = "load_design_settings"
)

type UploadHandlers struct {
	pipeline *uploads.Pipeline
	design   *content.SectionStore[model.DesignSettings]
	logger   *zap.Logger
}

func NewUploadHandlers(pipeline *uploads.Pipeline, design *content.SectionStore[model.DesignSettings], logger *zap.Logger) *UploadHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandlers{pipeline: pipeline, design: design, logger: logger}
}

type uploadResponse struct {
	Message  string `json:"message"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

func (handlers *UploadHandlers) Upload(context *gin.Context) {
	fileHeader, ok := handlers.formFile(context)
	if !ok {
		return
	}
	file, openErr := fileHeader.Open()
	if openErr != nil {
		handlers.logger.Warn(logEventUpload, zap.Error(openErr))
		respondError(context, http.StatusBadRequest, errorValueUploadFailed)
		return
	}
	defer file.Close()

	stored, saveErr := handlers.pipeline.Save(context.Request.Context(), file, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if saveErr != nil {
		handlers.respondUploadError(context, logEventUpload, saveErr)
		return
	}
	metrics.RecordUpload(metrics.UploadModeSingle)
	context.JSON(http.StatusOK, uploadResponse{
		Message:  uploadSuccessMessage,
		URL:      stored.URL,
		Filename: stored.Filename,
	})
}

// UploadMultiFormat is only available while the design settings enable multi-format uploads.
func (handlers *UploadHandlers) UploadMultiFormat(context *gin.Context) {
	design, designErr := handlers.design.Get(context.Request.Context(), false)
	if designErr != nil && !content.IsNotFound(designErr) && !errors.Is(designErr, content.ErrTableMissing) {
		handlers.logger.Warn(logEventLoadDesign, zap.Error(designErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}
	if designErr != nil || !design.MultiFormatUploads {
		respondError(context, http.StatusBadRequest, errorValueMultiFormatDisabled)
		return
	}

	fileHeader, ok := handlers.formFile(context)
	if !ok {
		return
	}
	file, openErr := fileHeader.Open()
	if openErr != nil {
		handlers.logger.Warn(logEventUploadMultiFormat, zap.Error(openErr))
		respondError(context, http.StatusBadRequest, errorValueUploadFailed)
		return
	}
	defer file.Close()

	variants, saveErr := handlers.pipeline.SaveVariants(context.Request.Context(), file, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if saveErr != nil {
		handlers.respondUploadError(context, logEventUploadMultiFormat, saveErr)
		return
	}
	metrics.RecordUpload(metrics.UploadModeMultiFormat)
	context.JSON(http.StatusOK, variants)
}

func (handlers *UploadHandlers) formFile(context *gin.Context) (*multipart.FileHeader, bool) {
	fileHeader, formErr := context.FormFile(UploadFormField)
	if formErr != nil {
		respondValidation(context, singleFieldError(UploadFormField, "required"))
		return nil, false
	}
	if fileHeader.Size > handlers.pipeline.MaxBytes() {
		handlers.respondTooLarge(context)
		return nil, false
	}
	return fileHeader, true
}

func (handlers *UploadHandlers) respondTooLarge(context *gin.Context) {
	context.JSON(http.StatusBadRequest, gin.H{
		jsonKeyError:   errorValueFileTooLarge,
		jsonKeyMessage: handlers.pipeline.LimitMessage(),
	})
}

func (handlers *UploadHandlers) respondUploadError(context *gin.Context, logEvent string, err error) {
	switch {
	case errors.Is(err, uploads.ErrUploadTooLarge):
		handlers.respondTooLarge(context)
	case errors.Is(err, uploads.ErrUnsupportedMediaType):
		context.JSON(http.StatusBadRequest, gin.H{
			jsonKeyError:   errorValueUnsupportedMediaType,
			jsonKeyMessage: "only image files are accepted",
		})
	case errors.Is(err, uploads.ErrUndecodableImage):
		context.JSON(http.StatusBadRequest, gin.H{
			jsonKeyError:   errorValueUnsupportedMediaType,
			jsonKeyMessage: "image could not be decoded",
		})
	default:
		handlers.logger.Warn(logEvent, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueUploadFailed)
	}
}
