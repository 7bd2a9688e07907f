package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/content"
)

const logEventLoadPage = "load_page"

type PageHandlers struct {
	sections *SectionHandlers
	pixels   *content.PixelStore
	logger   *zap.Logger
}

func NewPageHandlers(sections *SectionHandlers, pixels *content.PixelStore, logger *zap.Logger) *PageHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageHandlers{sections: sections, pixels: pixels, logger: logger}
}

type pageResponse struct {
	Sections       map[string]any  `json:"sections"`
	Pixels         []pixelResponse `json:"pixels"`
	NeedsMigration bool            `json:"needsMigration,omitempty"`
}

// GetPage aggregates every section with its active children and the enabled pixels.
// A missing section is reported as null rather than failing the whole page.
func (handlers *PageHandlers) GetPage(context *gin.Context) {
	requestContext := context.Request.Context()
	response := pageResponse{Sections: make(map[string]any, len(handlers.sections.entries))}

	for _, entry := range handlers.sections.entries {
		section, getErr := entry.section.get(requestContext, false)
		switch {
		case getErr == nil:
			response.Sections[entry.name] = section
		case errors.Is(getErr, content.ErrTableMissing):
			response.Sections[entry.name] = nil
			response.NeedsMigration = true
		case content.IsNotFound(getErr):
			response.Sections[entry.name] = nil
		default:
			handlers.logger.Warn(logEventLoadPage, zap.Error(getErr), zap.String("section", entry.name))
			respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
			return
		}
	}

	pixels, pixelsErr := handlers.pixels.List(requestContext, true)
	switch {
	case pixelsErr == nil:
		response.Pixels = newPixelResponses(pixels)
	case errors.Is(pixelsErr, content.ErrTableMissing):
		response.Pixels = []pixelResponse{}
		response.NeedsMigration = true
	default:
		handlers.logger.Warn(logEventLoadPage, zap.Error(pixelsErr), zap.String("section", "pixels"))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	context.JSON(http.StatusOK, response)
}
