package content

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	associationItems     = "Items"
	orderByItemPosition  = "position ASC, created_at ASC"
	errorMessageGetFetch = "content: get section"
	errorMessageUpdate   = "content: update section"
)

// SectionStore reads and patches the singleton row of one page section.
type SectionStore[S any] struct {
	database *gorm.DB
	fields   FieldSet
	hasItems bool
	key      string
}

// NewSectionStore builds a SectionStore. When hasItems is true, reads preload the ordered child rows.
func NewSectionStore[S any](database *gorm.DB, fields FieldSet, hasItems bool) *SectionStore[S] {
	return &SectionStore[S]{
		database: database,
		fields:   fields,
		hasItems: hasItems,
		key:      model.DefaultSectionID,
	}
}

// Fields returns the writable whitelist.
func (store *SectionStore[S]) Fields() FieldSet {
	return store.fields
}

// Get loads the section. Inactive children are skipped unless includeInactive is set.
func (store *SectionStore[S]) Get(ctx context.Context, includeInactive bool) (S, error) {
	var section S
	query := store.database.WithContext(ctx)
	if store.hasItems {
		query = query.Preload(associationItems, func(itemQuery *gorm.DB) *gorm.DB {
			if !includeInactive {
				itemQuery = itemQuery.Where("is_active = ?", true)
			}
			return itemQuery.Order(orderByItemPosition)
		})
	}
	if err := query.First(&section, "id = ?", store.key).Error; err != nil {
		return section, store.classifyError(errorMessageGetFetch, err)
	}
	return section, nil
}

// Update applies the patch to the singleton row and returns the updated section with all children.
func (store *SectionStore[S]) Update(ctx context.Context, patch Patch) (S, error) {
	var section S
	if patch.Len() == 0 {
		return section, ErrEmptyPatch
	}
	result := store.database.WithContext(ctx).
		Model(new(S)).
		Where("id = ?", store.key).
		Updates(patch.Columns())
	if result.Error != nil {
		return section, store.classifyError(errorMessageUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return section, ErrSectionNotFound
	}
	return store.Get(ctx, true)
}

func (store *SectionStore[S]) classifyError(contextMessage string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSectionNotFound
	}
	return classifyStorageError(contextMessage, err)
}
