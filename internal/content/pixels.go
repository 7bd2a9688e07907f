package content

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/storage"
)

const (
	PixelFieldName        = "name"
	PixelFieldType        = "type"
	PixelFieldPlacement   = "placement"
	PixelFieldEnabled     = "enabled"
	PixelFieldAccessToken = "access_token"

	errorMessageListPixels  = "content: list pixels"
	errorMessageCreatePixel = "content: create pixel"
	errorMessageUpdatePixel = "content: update pixel"
	errorMessageDeletePixel = "content: delete pixel"
	errorMessageGetPixel    = "content: get pixel"
)

// PixelFields is the writable whitelist for tracking pixels.
var PixelFields = NewFieldSet(
	Field{Name: PixelFieldName, Kind: FieldKindText, MaxLength: 120, Required: true},
	Field{Name: PixelFieldType, Kind: FieldKindEnum, Options: model.PixelTypes(), Required: true},
	Field{Name: "code", Kind: FieldKindText, MaxLength: 20000},
	Field{Name: PixelFieldEnabled, Kind: FieldKindBool},
	Field{Name: PixelFieldPlacement, Kind: FieldKindEnum, Options: model.PixelPlacements()},
	Field{Name: "description", Kind: FieldKindText, MaxLength: 500},
	Field{Name: "pixel_id", Kind: FieldKindText, MaxLength: 64},
	Field{Name: PixelFieldAccessToken, Kind: FieldKindText, MaxLength: 512},
)

// PixelStore manages tracking pixel rows.
type PixelStore struct {
	database *gorm.DB
}

func NewPixelStore(database *gorm.DB) *PixelStore {
	return &PixelStore{database: database}
}

// List returns pixels ordered by creation time, optionally only enabled ones.
func (store *PixelStore) List(ctx context.Context, enabledOnly bool) ([]model.Pixel, error) {
	var pixels []model.Pixel
	query := store.database.WithContext(ctx)
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	if err := query.Order("created_at ASC").Find(&pixels).Error; err != nil {
		return nil, classifyStorageError(errorMessageListPixels, err)
	}
	return pixels, nil
}

// Create inserts a pixel from a validated patch. The placement defaults to head.
func (store *PixelStore) Create(ctx context.Context, patch Patch) (model.Pixel, error) {
	if err := PixelFields.RequireFields(patch); err != nil {
		return model.Pixel{}, err
	}
	pixel := model.Pixel{ID: storage.NewID(), Placement: model.PixelPlacementHead}
	assignPixelFields(&pixel, patch)
	if pixel.Placement == "" {
		pixel.Placement = model.PixelPlacementHead
	}
	if err := store.database.WithContext(ctx).Create(&pixel).Error; err != nil {
		return model.Pixel{}, classifyStorageError(errorMessageCreatePixel, err)
	}
	return pixel, nil
}

// Update patches a pixel. An empty access_token in the patch keeps the stored token.
func (store *PixelStore) Update(ctx context.Context, pixelID string, patch Patch) (model.Pixel, error) {
	if token, assigned := patch.Value(PixelFieldAccessToken); assigned && token == "" {
		patch = patch.Without(PixelFieldAccessToken)
	}
	if patch.Len() == 0 {
		return model.Pixel{}, ErrEmptyPatch
	}
	result := store.database.WithContext(ctx).
		Model(&model.Pixel{}).
		Where("id = ?", pixelID).
		Updates(patch.Columns())
	if result.Error != nil {
		return model.Pixel{}, classifyStorageError(errorMessageUpdatePixel, result.Error)
	}
	if result.RowsAffected == 0 {
		return model.Pixel{}, ErrPixelNotFound
	}
	return store.Get(ctx, pixelID)
}

// Get loads one pixel.
func (store *PixelStore) Get(ctx context.Context, pixelID string) (model.Pixel, error) {
	var pixel model.Pixel
	if err := store.database.WithContext(ctx).First(&pixel, "id = ?", pixelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Pixel{}, ErrPixelNotFound
		}
		return model.Pixel{}, classifyStorageError(errorMessageGetPixel, err)
	}
	return pixel, nil
}

// FindConversionsPixel returns the enabled Conversions API pixel with the given platform pixel id
// and a stored access token.
func (store *PixelStore) FindConversionsPixel(ctx context.Context, platformPixelID string) (model.Pixel, error) {
	var pixel model.Pixel
	err := store.database.WithContext(ctx).
		Where("type = ? AND enabled = ? AND pixel_id = ? AND access_token <> ?", model.PixelTypeConversionsAPI, true, platformPixelID, "").
		Order("updated_at DESC").
		First(&pixel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Pixel{}, ErrPixelNotFound
		}
		return model.Pixel{}, classifyStorageError(errorMessageGetPixel, err)
	}
	return pixel, nil
}

// Delete removes a pixel.
func (store *PixelStore) Delete(ctx context.Context, pixelID string) error {
	result := store.database.WithContext(ctx).Where("id = ?", pixelID).Delete(&model.Pixel{})
	if result.Error != nil {
		return classifyStorageError(errorMessageDeletePixel, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPixelNotFound
	}
	return nil
}

func assignPixelFields(pixel *model.Pixel, patch Patch) {
	stringValue := func(name string) (string, bool) {
		value, assigned := patch.Value(name)
		if !assigned {
			return "", false
		}
		text, isText := value.(string)
		return text, isText
	}
	if value, ok := stringValue(PixelFieldName); ok {
		pixel.Name = value
	}
	if value, ok := stringValue(PixelFieldType); ok {
		pixel.Type = value
	}
	if value, ok := stringValue("code"); ok {
		pixel.Code = value
	}
	if value, ok := stringValue(PixelFieldPlacement); ok {
		pixel.Placement = value
	}
	if value, ok := stringValue("description"); ok {
		pixel.Description = value
	}
	if value, ok := stringValue("pixel_id"); ok {
		pixel.PixelID = value
	}
	if value, ok := stringValue(PixelFieldAccessToken); ok {
		pixel.AccessToken = value
	}
	if value, assigned := patch.Value(PixelFieldEnabled); assigned {
		pixel.Enabled, _ = value.(bool)
	}
}

// ErrorIsMissingTable reports whether err stems from an unmigrated table.
func ErrorIsMissingTable(err error) bool {
	return errors.Is(err, ErrTableMissing)
}
