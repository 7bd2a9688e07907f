package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/content"
)

const (
	SectionHero           = "hero"
	SectionDesign         = "design"
	SectionFAQ            = "faq"
	SectionFooter         = "footer"
	SectionAbout          = "about"
	SectionTestimonials   = "testimonials"
	SectionShowroom       = "showroom"
	SectionProductGallery = "product-gallery"
	SectionFormContent    = "form-content"
	SectionSEO            = "seo"

	maxSectionBodyBytes = 1 << 20

	logEventGetSection     = "get_section"
	logEventUpdateSection  = "update_section"
	logEventCreateItem     = "create_section_item"
	logEventUpdateItem     = "update_section_item"
	logEventDeleteItem     = "delete_section_item"
	logEventReorderItems   = "reorder_section_items"
	logEventReadSectionReq = "read_section_request"
)

type sectionResource interface {
	get(ctx context.Context, includeInactive bool) (any, error)
	update(ctx context.Context, body []byte) (any, error)
}

type itemResource interface {
	create(ctx context.Context, body []byte) (any, error)
	update(ctx context.Context, itemID string, body []byte) (any, error)
	delete(ctx context.Context, itemID string) error
	reorder(ctx context.Context, orderedIDs []string) error
}

type sectionAdapter[S any] struct {
	store *content.SectionStore[S]
}

func (adapter sectionAdapter[S]) get(ctx context.Context, includeInactive bool) (any, error) {
	return adapter.store.Get(ctx, includeInactive)
}

func (adapter sectionAdapter[S]) update(ctx context.Context, body []byte) (any, error) {
	patch, parseErr := adapter.store.Fields().ParsePatchJSON(body)
	if parseErr != nil {
		return nil, parseErr
	}
	return adapter.store.Update(ctx, patch)
}

type itemAdapter[I any, PI content.ItemPointer[I]] struct {
	store *content.ItemStore[I, PI]
}

func (adapter itemAdapter[I, PI]) create(ctx context.Context, body []byte) (any, error) {
	patch, parseErr := adapter.store.Fields().ParsePatchJSON(body)
	if parseErr != nil {
		return nil, parseErr
	}
	return adapter.store.Create(ctx, patch)
}

func (adapter itemAdapter[I, PI]) update(ctx context.Context, itemID string, body []byte) (any, error) {
	patch, parseErr := adapter.store.Fields().ParsePatchJSON(body)
	if parseErr != nil {
		return nil, parseErr
	}
	return adapter.store.Update(ctx, itemID, patch)
}

func (adapter itemAdapter[I, PI]) delete(ctx context.Context, itemID string) error {
	return adapter.store.Delete(ctx, itemID)
}

func (adapter itemAdapter[I, PI]) reorder(ctx context.Context, orderedIDs []string) error {
	return adapter.store.Reorder(ctx, orderedIDs)
}

func newSectionAdapter[S any](store *content.SectionStore[S]) sectionResource {
	return sectionAdapter[S]{store: store}
}

func newItemAdapter[I any, PI content.ItemPointer[I]](store *content.ItemStore[I, PI]) itemResource {
	return itemAdapter[I, PI]{store: store}
}

type sectionEntry struct {
	name    string
	section sectionResource
	items   itemResource
}

// SectionHandlers serves every editable page section through one set of generic handlers.
type SectionHandlers struct {
	logger  *zap.Logger
	entries []sectionEntry
	byName  map[string]sectionEntry
}

func NewSectionHandlers(catalog *content.Catalog, logger *zap.Logger) *SectionHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries := []sectionEntry{
		{name: SectionHero, section: newSectionAdapter(catalog.Hero)},
		{name: SectionDesign, section: newSectionAdapter(catalog.Design)},
		{name: SectionFAQ, section: newSectionAdapter(catalog.FAQ), items: newItemAdapter(catalog.FAQItems)},
		{name: SectionFooter, section: newSectionAdapter(catalog.Footer), items: newItemAdapter(catalog.FooterLinks)},
		{name: SectionAbout, section: newSectionAdapter(catalog.About), items: newItemAdapter(catalog.AboutStats)},
		{name: SectionTestimonials, section: newSectionAdapter(catalog.Testimonials), items: newItemAdapter(catalog.TestimonialItems)},
		{name: SectionShowroom, section: newSectionAdapter(catalog.Showroom), items: newItemAdapter(catalog.ShowroomItems)},
		{name: SectionProductGallery, section: newSectionAdapter(catalog.ProductGallery), items: newItemAdapter(catalog.ProductGalleryItems)},
		{name: SectionFormContent, section: newSectionAdapter(catalog.FormContent)},
		{name: SectionSEO, section: newSectionAdapter(catalog.SEO)},
	}
	byName := make(map[string]sectionEntry, len(entries))
	for _, entry := range entries {
		byName[entry.name] = entry
	}
	return &SectionHandlers{logger: logger, entries: entries, byName: byName}
}

// SectionNames lists the routable sections in registration order.
func (handlers *SectionHandlers) SectionNames() []string {
	names := make([]string, 0, len(handlers.entries))
	for _, entry := range handlers.entries {
		names = append(names, entry.name)
	}
	return names
}

// HasItems reports whether the section exposes child routes.
func (handlers *SectionHandlers) HasItems(name string) bool {
	return handlers.byName[name].items != nil
}

// GetSection returns the section; anonymous callers only see active children.
func (handlers *SectionHandlers) GetSection(name string) gin.HandlerFunc {
	entry := handlers.byName[name]
	return func(context *gin.Context) {
		section, getErr := entry.section.get(context.Request.Context(), isAdminRequest(context))
		if getErr != nil {
			respondContentError(context, handlers.logger, logEventGetSection, getErr, errorValueQueryFailed)
			return
		}
		context.JSON(http.StatusOK, section)
	}
}

func (handlers *SectionHandlers) UpdateSection(name string) gin.HandlerFunc {
	entry := handlers.byName[name]
	return func(context *gin.Context) {
		body, ok := handlers.readBody(context)
		if !ok {
			return
		}
		section, updateErr := entry.section.update(context.Request.Context(), body)
		if updateErr != nil {
			respondContentError(context, handlers.logger, logEventUpdateSection, updateErr, errorValueSaveFailed)
			return
		}
		context.JSON(http.StatusOK, section)
	}
}

func (handlers *SectionHandlers) CreateItem(name string) gin.HandlerFunc {
	entry := handlers.byName[name]
	return func(context *gin.Context) {
		body, ok := handlers.readBody(context)
		if !ok {
			return
		}
		item, createErr := entry.items.create(context.Request.Context(), body)
		if createErr != nil {
			respondContentError(context, handlers.logger, logEventCreateItem, createErr, errorValueSaveFailed)
			return
		}
		context.JSON(http.StatusCreated, item)
	}
}

func (handlers *SectionHandlers) UpdateItem(name string) gin.HandlerFunc {
	entry := handlers.byName[name]
	return func(context *gin.Context) {
		body, ok := handlers.readBody(context)
		if !ok {
			return
		}
		item, updateErr := entry.items.update(context.Request.Context(), context.Param("id"), body)
		if updateErr != nil {
			respondContentError(context, handlers.logger, logEventUpdateItem, updateErr, errorValueSaveFailed)
			return
		}
		context.JSON(http.StatusOK, item)
	}
}

func (handlers *SectionHandlers) DeleteItem(name string) gin.HandlerFunc {
	entry := handlers.byName[name]
	return func(context *gin.Context) {
		if deleteErr := entry.items.delete(context.Request.Context(), context.Param("id")); deleteErr != nil {
			respondContentError(context, handlers.logger, logEventDeleteItem, deleteErr, errorValueDeleteFailed)
			return
		}
		context.Status(http.StatusNoContent)
	}
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (handlers *SectionHandlers) ReorderItems(name string) gin.HandlerFunc {
	entry := handlers.byName[name]
	return func(context *gin.Context) {
		var payload reorderRequest
		if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
			respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
			return
		}
		if reorderErr := entry.items.reorder(context.Request.Context(), payload.IDs); reorderErr != nil {
			respondContentError(context, handlers.logger, logEventReorderItems, reorderErr, errorValueSaveFailed)
			return
		}
		section, getErr := entry.section.get(context.Request.Context(), true)
		if getErr != nil {
			respondContentError(context, handlers.logger, logEventGetSection, getErr, errorValueQueryFailed)
			return
		}
		context.JSON(http.StatusOK, section)
	}
}

func (handlers *SectionHandlers) readBody(context *gin.Context) ([]byte, bool) {
	body, readErr := io.ReadAll(io.LimitReader(context.Request.Body, maxSectionBodyBytes))
	if readErr != nil {
		handlers.logger.Warn(logEventReadSectionReq, zap.Error(readErr))
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
		return nil, false
	}
	return body, true
}
