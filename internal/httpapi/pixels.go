package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/content"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	logEventListPixels  = "list_pixels"
	logEventCreatePixel = "create_pixel"
	logEventUpdatePixel = "update_pixel"
	logEventDeletePixel = "delete_pixel"
)

type PixelHandlers struct {
	store  *content.PixelStore
	logger *zap.Logger
}

func NewPixelHandlers(store *content.PixelStore, logger *zap.Logger) *PixelHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PixelHandlers{store: store, logger: logger}
}

// pixelResponse never carries the access token itself.
type pixelResponse struct {
	model.Pixel
	AccessTokenSet bool `json:"has_access_token"`
}

type listPixelsResponse struct {
	Pixels []pixelResponse `json:"pixels"`
}

func newPixelResponse(pixel model.Pixel) pixelResponse {
	return pixelResponse{Pixel: pixel, AccessTokenSet: pixel.HasAccessToken()}
}

func newPixelResponses(pixels []model.Pixel) []pixelResponse {
	responses := make([]pixelResponse, 0, len(pixels))
	for _, pixel := range pixels {
		responses = append(responses, newPixelResponse(pixel))
	}
	return responses
}

// ListPixels shows every pixel to admins and only enabled pixels to visitors.
func (handlers *PixelHandlers) ListPixels(context *gin.Context) {
	pixels, listErr := handlers.store.List(context.Request.Context(), !isAdminRequest(context))
	if listErr != nil {
		respondContentError(context, handlers.logger, logEventListPixels, listErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, listPixelsResponse{Pixels: newPixelResponses(pixels)})
}

func (handlers *PixelHandlers) CreatePixel(context *gin.Context) {
	patch, ok := handlers.parsePatch(context)
	if !ok {
		return
	}
	pixel, createErr := handlers.store.Create(context.Request.Context(), patch)
	if createErr != nil {
		respondContentError(context, handlers.logger, logEventCreatePixel, createErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusCreated, newPixelResponse(pixel))
}

func (handlers *PixelHandlers) UpdatePixel(context *gin.Context) {
	patch, ok := handlers.parsePatch(context)
	if !ok {
		return
	}
	pixel, updateErr := handlers.store.Update(context.Request.Context(), context.Param("id"), patch)
	if updateErr != nil {
		respondContentError(context, handlers.logger, logEventUpdatePixel, updateErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusOK, newPixelResponse(pixel))
}

func (handlers *PixelHandlers) DeletePixel(context *gin.Context) {
	if deleteErr := handlers.store.Delete(context.Request.Context(), context.Param("id")); deleteErr != nil {
		respondContentError(context, handlers.logger, logEventDeletePixel, deleteErr, errorValueDeleteFailed)
		return
	}
	context.Status(http.StatusNoContent)
}

func (handlers *PixelHandlers) parsePatch(context *gin.Context) (content.Patch, bool) {
	body, readErr := io.ReadAll(io.LimitReader(context.Request.Body, maxSectionBodyBytes))
	if readErr != nil {
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
		return content.Patch{}, false
	}
	patch, parseErr := content.PixelFields.ParsePatchJSON(body)
	if parseErr != nil {
		respondContentError(context, handlers.logger, logEventUpdatePixel, parseErr, errorValueSaveFailed)
		return content.Patch{}, false
	}
	return patch, true
}
