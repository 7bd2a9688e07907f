package content

import (
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

func textField(name string, maxLength int) Field {
	return Field{Name: name, Kind: FieldKindText, MaxLength: maxLength}
}

func urlField(name string) Field {
	return Field{Name: name, Kind: FieldKindURL, MaxLength: 2048}
}

func colorField(name string) Field {
	return Field{Name: name, Kind: FieldKindColor, MaxLength: 9}
}

func boolField(name string) Field {
	return Field{Name: name, Kind: FieldKindBool}
}

func itemFields(fields ...Field) FieldSet {
	shared := []Field{
		{Name: FieldPosition, Kind: FieldKindInt, Min: 1, Max: 100000},
		boolField(FieldIsActive),
	}
	return NewFieldSet(append(shared, fields...)...)
}

var (
	HeroFields = NewFieldSet(
		textField("title", 200),
		textField("subtitle", 300),
		textField("description", 2000),
		textField("cta_text", 80),
		urlField("cta_link"),
		textField("secondary_cta_text", 80),
		urlField("secondary_cta_link"),
		urlField("background_image"),
		urlField("hero_image"),
		textField("badge_text", 80),
		boolField("is_active"),
	)

	DesignFields = NewFieldSet(
		colorField("primary_color"),
		colorField("secondary_color"),
		colorField("accent_color"),
		colorField("background_color"),
		colorField("text_color"),
		textField("font_heading", 80),
		textField("font_body", 80),
		urlField("logo_url"),
		urlField("favicon_url"),
		Field{Name: "button_radius", Kind: FieldKindInt, Min: 0, Max: 64},
		boolField("multi_format_uploads"),
	)

	FAQFields = NewFieldSet(
		textField("title", 200),
		textField("subtitle", 300),
		boolField("is_active"),
	)
	FAQItemFields = itemFields(
		Field{Name: "question", Kind: FieldKindText, MaxLength: 300, Required: true},
		Field{Name: "answer", Kind: FieldKindText, MaxLength: 4000, Required: true},
	)

	FooterFields = NewFieldSet(
		textField("company_name", 200),
		textField("description", 1000),
		urlField("logo_url"),
		textField("email", 320),
		textField("phone", 40),
		textField("whatsapp", 40),
		textField("address", 400),
		urlField("instagram_url"),
		urlField("facebook_url"),
		urlField("tiktok_url"),
		urlField("youtube_url"),
		textField("copyright_text", 300),
	)
	FooterLinkFields = itemFields(
		Field{Name: "label", Kind: FieldKindText, MaxLength: 120, Required: true},
		Field{Name: "url", Kind: FieldKindURL, MaxLength: 2048, Required: true},
		boolField("open_in_new_tab"),
	)

	AboutFields = NewFieldSet(
		textField("title", 200),
		textField("subtitle", 300),
		textField("description", 4000),
		urlField("image_url"),
		urlField("video_url"),
		boolField("is_active"),
	)
	AboutStatFields = itemFields(
		Field{Name: "label", Kind: FieldKindText, MaxLength: 120, Required: true},
		Field{Name: "value", Kind: FieldKindText, MaxLength: 40, Required: true},
		textField("icon", 60),
	)

	TestimonialsFields = NewFieldSet(
		textField("title", 200),
		textField("subtitle", 300),
		boolField("is_active"),
	)
	TestimonialFields = itemFields(
		Field{Name: "name", Kind: FieldKindText, MaxLength: 120, Required: true},
		textField("role", 120),
		textField("company", 120),
		Field{Name: "content", Kind: FieldKindText, MaxLength: 2000, Required: true},
		urlField("avatar_url"),
		Field{Name: "rating", Kind: FieldKindInt, Min: 1, Max: 5},
	)

	ShowroomFields = NewFieldSet(
		textField("title", 200),
		textField("subtitle", 300),
		textField("description", 2000),
		boolField("is_active"),
	)
	ShowroomItemFields = itemFields(
		Field{Name: "title", Kind: FieldKindText, MaxLength: 200, Required: true},
		textField("description", 2000),
		urlField("image_url"),
		urlField("video_url"),
	)

	ProductGalleryFields = NewFieldSet(
		textField("title", 200),
		textField("subtitle", 300),
		boolField("is_active"),
	)
	ProductGalleryItemFields = itemFields(
		Field{Name: "name", Kind: FieldKindText, MaxLength: 200, Required: true},
		textField("description", 2000),
		urlField("image_url"),
		textField("price_label", 60),
		textField("category", 80),
	)

	FormContentFields = NewFieldSet(
		textField("title", 200),
		textField("subtitle", 300),
		textField("name_label", 120),
		textField("name_placeholder", 120),
		textField("whatsapp_label", 120),
		textField("whatsapp_placeholder", 120),
		textField("cnpj_question", 200),
		textField("cnpj_yes_label", 80),
		textField("cnpj_no_label", 80),
		textField("store_type_label", 120),
		textField("cep_label", 120),
		textField("submit_text", 80),
		textField("success_title", 200),
		textField("success_message", 1000),
		textField("consumer_message", 1000),
		textField("privacy_text", 1000),
	)

	SEOFields = NewFieldSet(
		textField("meta_title", 200),
		textField("meta_description", 500),
		textField("meta_keywords", 500),
		textField("og_title", 200),
		textField("og_description", 500),
		urlField("og_image"),
		urlField("canonical_url"),
		textField("robots", 80),
		Field{Name: "twitter_card", Kind: FieldKindEnum, Options: []string{"", "summary", "summary_large_image"}},
		textField("structured_data", 20000),
	)
)

// Catalog groups the stores for every editable part of the landing page.
type Catalog struct {
	Hero                *SectionStore[model.HeroSection]
	Design              *SectionStore[model.DesignSettings]
	FAQ                 *SectionStore[model.FAQSection]
	FAQItems            *ItemStore[model.FAQItem, *model.FAQItem]
	Footer              *SectionStore[model.FooterSettings]
	FooterLinks         *ItemStore[model.FooterLink, *model.FooterLink]
	About               *SectionStore[model.AboutSection]
	AboutStats          *ItemStore[model.AboutStat, *model.AboutStat]
	Testimonials        *SectionStore[model.TestimonialsSection]
	TestimonialItems    *ItemStore[model.Testimonial, *model.Testimonial]
	Showroom            *SectionStore[model.ShowroomSection]
	ShowroomItems       *ItemStore[model.ShowroomItem, *model.ShowroomItem]
	ProductGallery      *SectionStore[model.ProductGallerySection]
	ProductGalleryItems *ItemStore[model.ProductGalleryItem, *model.ProductGalleryItem]
	FormContent         *SectionStore[model.FormContent]
	SEO                 *SectionStore[model.SEOSettings]
	Pixels              *PixelStore
}

// NewCatalog wires every store to the same database handle.
func NewCatalog(database *gorm.DB) *Catalog {
	return &Catalog{
		Hero:                NewSectionStore[model.HeroSection](database, HeroFields, false),
		Design:              NewSectionStore[model.DesignSettings](database, DesignFields, false),
		FAQ:                 NewSectionStore[model.FAQSection](database, FAQFields, true),
		FAQItems:            NewItemStore[model.FAQItem](database, FAQItemFields),
		Footer:              NewSectionStore[model.FooterSettings](database, FooterFields, true),
		FooterLinks:         NewItemStore[model.FooterLink](database, FooterLinkFields),
		About:               NewSectionStore[model.AboutSection](database, AboutFields, true),
		AboutStats:          NewItemStore[model.AboutStat](database, AboutStatFields),
		Testimonials:        NewSectionStore[model.TestimonialsSection](database, TestimonialsFields, true),
		TestimonialItems:    NewItemStore[model.Testimonial](database, TestimonialFields),
		Showroom:            NewSectionStore[model.ShowroomSection](database, ShowroomFields, true),
		ShowroomItems:       NewItemStore[model.ShowroomItem](database, ShowroomItemFields),
		ProductGallery:      NewSectionStore[model.ProductGallerySection](database, ProductGalleryFields, true),
		ProductGalleryItems: NewItemStore[model.ProductGalleryItem](database, ProductGalleryItemFields),
		FormContent:         NewSectionStore[model.FormContent](database, FormContentFields, false),
		SEO:                 NewSectionStore[model.SEOSettings](database, SEOFields, false),
		Pixels:              NewPixelStore(database),
	}
}
