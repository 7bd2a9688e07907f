package model

import "time"

const (
	PixelTypeFacebook         = "facebook_pixel"
	PixelTypeConversionsAPI   = "conversions_api"
	PixelTypeGoogleAnalytics  = "google_analytics"
	PixelTypeGoogleTagManager = "google_tag_manager"
	PixelTypeGoogleAds        = "google_ads"
	PixelTypeTikTok           = "tiktok_pixel"
	PixelTypeCustom           = "custom"

	PixelPlacementHead      = "head"
	PixelPlacementBodyStart = "body_start"
	PixelPlacementBodyEnd   = "body_end"
)

// PixelTypes lists the supported tracking integrations.
func PixelTypes() []string {
	return []string{
		PixelTypeFacebook,
		PixelTypeConversionsAPI,
		PixelTypeGoogleAnalytics,
		PixelTypeGoogleTagManager,
		PixelTypeGoogleAds,
		PixelTypeTikTok,
		PixelTypeCustom,
	}
}

// PixelPlacements lists where a snippet may be injected into the page.
func PixelPlacements() []string {
	return []string{PixelPlacementHead, PixelPlacementBodyStart, PixelPlacementBodyEnd}
}

// Pixel is a tracking integration. AccessToken is only used server side.
type Pixel struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null;size:120" json:"name"`
	Type        string    `gorm:"not null;size:32;index" json:"type"`
	Code        string    `gorm:"size:20000" json:"code"`
	Enabled     bool      `gorm:"not null;default:false;index" json:"enabled"`
	Placement   string    `gorm:"not null;size:16" json:"placement"`
	Description string    `gorm:"size:500" json:"description"`
	PixelID     string    `gorm:"column:pixel_id;size:64;index" json:"pixel_id"`
	AccessToken string    `gorm:"column:access_token;size:512" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasAccessToken reports whether a server side token is stored.
func (pixel Pixel) HasAccessToken() bool {
	return pixel.AccessToken != ""
}
