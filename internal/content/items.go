package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/storage"
)

const (
	FieldPosition = "position"
	FieldIsActive = "is_active"

	errorMessageListItems   = "content: list items"
	errorMessageCreateItem  = "content: create item"
	errorMessageUpdateItem  = "content: update item"
	errorMessageDeleteItem  = "content: delete item"
	errorMessageReorderItem = "content: reorder items"
	errorMessageApplyPatch  = "content: apply patch"
)

// ItemPointer constrains PI to be *I and to expose the shared item identity.
type ItemPointer[I any] interface {
	*I
	model.OrderedItem
}

// ItemStore manages the ordered child rows of one section.
type ItemStore[I any, PI ItemPointer[I]] struct {
	database *gorm.DB
	fields   FieldSet
	key      string
}

// NewItemStore builds an ItemStore. The field set should include position and is_active.
func NewItemStore[I any, PI ItemPointer[I]](database *gorm.DB, fields FieldSet) *ItemStore[I, PI] {
	return &ItemStore[I, PI]{
		database: database,
		fields:   fields,
		key:      model.DefaultSectionID,
	}
}

// Fields returns the writable whitelist.
func (store *ItemStore[I, PI]) Fields() FieldSet {
	return store.fields
}

// List returns the section's children in display order.
func (store *ItemStore[I, PI]) List(ctx context.Context, includeInactive bool) ([]I, error) {
	var items []I
	query := store.database.WithContext(ctx).Where("section_id = ?", store.key)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order(orderByItemPosition).Find(&items).Error; err != nil {
		return nil, classifyStorageError(errorMessageListItems, err)
	}
	return items, nil
}

// Create inserts a child. Without an explicit position it is appended after the current maximum.
func (store *ItemStore[I, PI]) Create(ctx context.Context, patch Patch) (I, error) {
	var item I
	if err := store.fields.RequireFields(patch); err != nil {
		return item, err
	}
	if err := applyPatch(&item, patch); err != nil {
		return item, err
	}

	base := PI(&item).Base()
	base.ID = storage.NewID()
	base.SectionID = store.key
	if isActive, assigned := patch.Value(FieldIsActive); assigned {
		base.IsActive, _ = isActive.(bool)
	} else {
		base.IsActive = true
	}

	transactionErr := store.database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if position, assigned := patch.Value(FieldPosition); assigned {
			base.Position, _ = position.(int)
		} else {
			nextPosition, positionErr := store.nextPosition(transaction)
			if positionErr != nil {
				return positionErr
			}
			base.Position = nextPosition
		}
		return transaction.Create(&item).Error
	})
	if transactionErr != nil {
		return item, classifyStorageError(errorMessageCreateItem, transactionErr)
	}
	return item, nil
}

// Update patches one child of the section.
func (store *ItemStore[I, PI]) Update(ctx context.Context, itemID string, patch Patch) (I, error) {
	var item I
	if patch.Len() == 0 {
		return item, ErrEmptyPatch
	}
	result := store.database.WithContext(ctx).
		Model(new(I)).
		Where("id = ? AND section_id = ?", itemID, store.key).
		Updates(patch.Columns())
	if result.Error != nil {
		return item, classifyStorageError(errorMessageUpdateItem, result.Error)
	}
	if result.RowsAffected == 0 {
		return item, ErrItemNotFound
	}
	if err := store.database.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return item, classifyStorageError(errorMessageUpdateItem, err)
	}
	return item, nil
}

// Delete removes one child of the section.
func (store *ItemStore[I, PI]) Delete(ctx context.Context, itemID string) error {
	result := store.database.WithContext(ctx).
		Where("id = ? AND section_id = ?", itemID, store.key).
		Delete(new(I))
	if result.Error != nil {
		return classifyStorageError(errorMessageDeleteItem, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Reorder assigns position index+1 to each listed id. Ids outside the section are ignored.
func (store *ItemStore[I, PI]) Reorder(ctx context.Context, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return ErrEmptyOrder
	}
	transactionErr := store.database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		for index, itemID := range orderedIDs {
			updateErr := transaction.Model(new(I)).
				Where("id = ? AND section_id = ?", itemID, store.key).
				Update(FieldPosition, index+1).Error
			if updateErr != nil {
				return updateErr
			}
		}
		return nil
	})
	if transactionErr != nil {
		return classifyStorageError(errorMessageReorderItem, transactionErr)
	}
	return nil
}

func (store *ItemStore[I, PI]) nextPosition(transaction *gorm.DB) (int, error) {
	var maxPosition int
	err := transaction.Model(new(I)).
		Where("section_id = ?", store.key).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPosition).Error
	if err != nil {
		return 0, err
	}
	return maxPosition + 1, nil
}

func applyPatch(target any, patch Patch) error {
	encoded, encodeErr := json.Marshal(patch.Columns())
	if encodeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageApplyPatch, encodeErr)
	}
	if decodeErr := json.Unmarshal(encoded, target); decodeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageApplyPatch, decodeErr)
	}
	return nil
}

// IsNotFound reports whether err means the addressed row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSectionNotFound) || errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrPixelNotFound)
}
