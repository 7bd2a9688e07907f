package content

import "errors"

var (
	ErrInvalidPatchBody = errors.New("invalid_json")
	ErrEmptyPatch       = errors.New("nothing_to_update")
	ErrSectionNotFound  = errors.New("section_not_found")
	ErrItemNotFound     = errors.New("item_not_found")
	ErrPixelNotFound    = errors.New("pixel_not_found")
	// ErrTableMissing reports that the backing table has not been migrated yet.
	ErrTableMissing = errors.New("table_missing")
	ErrEmptyOrder   = errors.New("empty_order")
)
