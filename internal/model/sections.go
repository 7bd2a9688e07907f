package model

import "time"

// DefaultSectionID keys the single row each page section keeps.
const DefaultSectionID = "main"

// SectionBase carries the identity shared by every singleton section row.
type SectionBase struct {
	ID        string    `gorm:"primaryKey;size:16" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ItemBase carries the identity and ordering shared by every section child row.
type ItemBase struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SectionID string    `gorm:"not null;size:16;index" json:"section_id"`
	Position  int       `gorm:"not null;default:0;index" json:"position"`
	IsActive  bool      `gorm:"column:is_active;not null;default:false" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderedItem is implemented by every child row through ItemBase.
type OrderedItem interface {
	Base() *ItemBase
}

func (base *ItemBase) Base() *ItemBase {
	return base
}

type HeroSection struct {
	SectionBase
	Title            string `gorm:"size:200" json:"title"`
	Subtitle         string `gorm:"size:300" json:"subtitle"`
	Description      string `gorm:"size:2000" json:"description"`
	CTAText          string `gorm:"column:cta_text;size:80" json:"cta_text"`
	CTALink          string `gorm:"column:cta_link;size:2048" json:"cta_link"`
	SecondaryCTAText string `gorm:"column:secondary_cta_text;size:80" json:"secondary_cta_text"`
	SecondaryCTALink string `gorm:"column:secondary_cta_link;size:2048" json:"secondary_cta_link"`
	BackgroundImage  string `gorm:"column:background_image;size:2048" json:"background_image"`
	HeroImage        string `gorm:"column:hero_image;size:2048" json:"hero_image"`
	BadgeText        string `gorm:"column:badge_text;size:80" json:"badge_text"`
	IsActive         bool   `gorm:"column:is_active;not null;default:false" json:"is_active"`
}

func (HeroSection) TableName() string { return "hero_sections" }

type DesignSettings struct {
	SectionBase
	PrimaryColor       string `gorm:"column:primary_color;size:9" json:"primary_color"`
	SecondaryColor     string `gorm:"column:secondary_color;size:9" json:"secondary_color"`
	AccentColor        string `gorm:"column:accent_color;size:9" json:"accent_color"`
	BackgroundColor    string `gorm:"column:background_color;size:9" json:"background_color"`
	TextColor          string `gorm:"column:text_color;size:9" json:"text_color"`
	FontHeading        string `gorm:"column:font_heading;size:80" json:"font_heading"`
	FontBody           string `gorm:"column:font_body;size:80" json:"font_body"`
	LogoURL            string `gorm:"column:logo_url;size:2048" json:"logo_url"`
	FaviconURL         string `gorm:"column:favicon_url;size:2048" json:"favicon_url"`
	ButtonRadius       int    `gorm:"column:button_radius;not null;default:0" json:"button_radius"`
	MultiFormatUploads bool   `gorm:"column:multi_format_uploads;not null;default:false" json:"multi_format_uploads"`
}

func (DesignSettings) TableName() string { return "design_settings" }

type FAQSection struct {
	SectionBase
	Title    string    `gorm:"size:200" json:"title"`
	Subtitle string    `gorm:"size:300" json:"subtitle"`
	IsActive bool      `gorm:"column:is_active;not null;default:false" json:"is_active"`
	Items    []FAQItem `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"items"`
}

func (FAQSection) TableName() string { return "faq_sections" }

type FAQItem struct {
	ItemBase
	Question string `gorm:"size:300" json:"question"`
	Answer   string `gorm:"size:4000" json:"answer"`
}

func (FAQItem) TableName() string { return "faq_items" }

type FooterSettings struct {
	SectionBase
	CompanyName   string       `gorm:"column:company_name;size:200" json:"company_name"`
	Description   string       `gorm:"size:1000" json:"description"`
	LogoURL       string       `gorm:"column:logo_url;size:2048" json:"logo_url"`
	Email         string       `gorm:"size:320" json:"email"`
	Phone         string       `gorm:"size:40" json:"phone"`
	WhatsApp      string       `gorm:"column:whatsapp;size:40" json:"whatsapp"`
	Address       string       `gorm:"size:400" json:"address"`
	InstagramURL  string       `gorm:"column:instagram_url;size:2048" json:"instagram_url"`
	FacebookURL   string       `gorm:"column:facebook_url;size:2048" json:"facebook_url"`
	TikTokURL     string       `gorm:"column:tiktok_url;size:2048" json:"tiktok_url"`
	YouTubeURL    string       `gorm:"column:youtube_url;size:2048" json:"youtube_url"`
	CopyrightText string       `gorm:"column:copyright_text;size:300" json:"copyright_text"`
	Items         []FooterLink `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"items"`
}

func (FooterSettings) TableName() string { return "footer_settings" }

type FooterLink struct {
	ItemBase
	Label        string `gorm:"size:120" json:"label"`
	URL          string `gorm:"column:url;size:2048" json:"url"`
	OpenInNewTab bool   `gorm:"column:open_in_new_tab;not null;default:false" json:"open_in_new_tab"`
}

func (FooterLink) TableName() string { return "footer_links" }

type AboutSection struct {
	SectionBase
	Title       string      `gorm:"size:200" json:"title"`
	Subtitle    string      `gorm:"size:300" json:"subtitle"`
	Description string      `gorm:"size:4000" json:"description"`
	ImageURL    string      `gorm:"column:image_url;size:2048" json:"image_url"`
	VideoURL    string      `gorm:"column:video_url;size:2048" json:"video_url"`
	IsActive    bool        `gorm:"column:is_active;not null;default:false" json:"is_active"`
	Items       []AboutStat `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"items"`
}

func (AboutSection) TableName() string { return "about_sections" }

type AboutStat struct {
	ItemBase
	Label string `gorm:"size:120" json:"label"`
	Value string `gorm:"size:40" json:"value"`
	Icon  string `gorm:"size:60" json:"icon"`
}

func (AboutStat) TableName() string { return "about_stats" }

type TestimonialsSection struct {
	SectionBase
	Title    string        `gorm:"size:200" json:"title"`
	Subtitle string        `gorm:"size:300" json:"subtitle"`
	IsActive bool          `gorm:"column:is_active;not null;default:false" json:"is_active"`
	Items    []Testimonial `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"items"`
}

func (TestimonialsSection) TableName() string { return "testimonials_sections" }

type Testimonial struct {
	ItemBase
	Name      string `gorm:"size:120" json:"name"`
	Role      string `gorm:"size:120" json:"role"`
	Company   string `gorm:"size:120" json:"company"`
	Content   string `gorm:"size:2000" json:"content"`
	AvatarURL string `gorm:"column:avatar_url;size:2048" json:"avatar_url"`
	Rating    int    `gorm:"not null;default:0" json:"rating"`
}

func (Testimonial) TableName() string { return "testimonials" }

type ShowroomSection struct {
	SectionBase
	Title       string         `gorm:"size:200" json:"title"`
	Subtitle    string         `gorm:"size:300" json:"subtitle"`
	Description string         `gorm:"size:2000" json:"description"`
	IsActive    bool           `gorm:"column:is_active;not null;default:false" json:"is_active"`
	Items       []ShowroomItem `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"items"`
}

func (ShowroomSection) TableName() string { return "showroom_sections" }

type ShowroomItem struct {
	ItemBase
	Title       string `gorm:"size:200" json:"title"`
	Description string `gorm:"size:2000" json:"description"`
	ImageURL    string `gorm:"column:image_url;size:2048" json:"image_url"`
	VideoURL    string `gorm:"column:video_url;size:2048" json:"video_url"`
}

func (ShowroomItem) TableName() string { return "showroom_items" }

type ProductGallerySection struct {
	SectionBase
	Title    string               `gorm:"size:200" json:"title"`
	Subtitle string               `gorm:"size:300" json:"subtitle"`
	IsActive bool                 `gorm:"column:is_active;not null;default:false" json:"is_active"`
	Items    []ProductGalleryItem `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"items"`
}

func (ProductGallerySection) TableName() string { return "product_gallery_sections" }

type ProductGalleryItem struct {
	ItemBase
	Name        string `gorm:"size:200" json:"name"`
	Description string `gorm:"size:2000" json:"description"`
	ImageURL    string `gorm:"column:image_url;size:2048" json:"image_url"`
	PriceLabel  string `gorm:"column:price_label;size:60" json:"price_label"`
	Category    string `gorm:"size:80" json:"category"`
}

func (ProductGalleryItem) TableName() string { return "product_gallery_items" }

type FormContent struct {
	SectionBase
	Title               string `gorm:"size:200" json:"title"`
	Subtitle            string `gorm:"size:300" json:"subtitle"`
	NameLabel           string `gorm:"column:name_label;size:120" json:"name_label"`
	NamePlaceholder     string `gorm:"column:name_placeholder;size:120" json:"name_placeholder"`
	WhatsAppLabel       string `gorm:"column:whatsapp_label;size:120" json:"whatsapp_label"`
	WhatsAppPlaceholder string `gorm:"column:whatsapp_placeholder;size:120" json:"whatsapp_placeholder"`
	CNPJQuestion        string `gorm:"column:cnpj_question;size:200" json:"cnpj_question"`
	CNPJYesLabel        string `gorm:"column:cnpj_yes_label;size:80" json:"cnpj_yes_label"`
	CNPJNoLabel         string `gorm:"column:cnpj_no_label;size:80" json:"cnpj_no_label"`
	StoreTypeLabel      string `gorm:"column:store_type_label;size:120" json:"store_type_label"`
	CEPLabel            string `gorm:"column:cep_label;size:120" json:"cep_label"`
	SubmitText          string `gorm:"column:submit_text;size:80" json:"submit_text"`
	SuccessTitle        string `gorm:"column:success_title;size:200" json:"success_title"`
	SuccessMessage      string `gorm:"column:success_message;size:1000" json:"success_message"`
	ConsumerMessage     string `gorm:"column:consumer_message;size:1000" json:"consumer_message"`
	PrivacyText         string `gorm:"column:privacy_text;size:1000" json:"privacy_text"`
}

func (FormContent) TableName() string { return "form_contents" }

type SEOSettings struct {
	SectionBase
	MetaTitle       string `gorm:"column:meta_title;size:200" json:"meta_title"`
	MetaDescription string `gorm:"column:meta_description;size:500" json:"meta_description"`
	MetaKeywords    string `gorm:"column:meta_keywords;size:500" json:"meta_keywords"`
	OGTitle         string `gorm:"column:og_title;size:200" json:"og_title"`
	OGDescription   string `gorm:"column:og_description;size:500" json:"og_description"`
	OGImage         string `gorm:"column:og_image;size:2048" json:"og_image"`
	CanonicalURL    string `gorm:"column:canonical_url;size:2048" json:"canonical_url"`
	Robots          string `gorm:"size:80" json:"robots"`
	TwitterCard     string `gorm:"column:twitter_card;size:40" json:"twitter_card"`
	StructuredData  string `gorm:"column:structured_data;size:20000" json:"structured_data"`
}

func (SEOSettings) TableName() string { return "seo_settings" }
