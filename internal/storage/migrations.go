package storage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const errorMessageSeedSingleton = "storage: seed singleton"

func seedSingletonRows(database *gorm.DB) error {
	section := model.SectionBase{ID: model.DefaultSectionID}
	seeds := []any{
		&model.WebhookSettings{ID: model.WebhookSettingsID},
		&model.HeroSection{SectionBase: section, IsActive: true},
		&model.DesignSettings{
			SectionBase:     section,
			PrimaryColor:    "#111827",
			SecondaryColor:  "#f59e0b",
			AccentColor:     "#10b981",
			BackgroundColor: "#ffffff",
			TextColor:       "#111827",
			ButtonRadius:    8,
		},
		&model.FAQSection{SectionBase: section, Title: "Perguntas frequentes", IsActive: true},
		&model.FooterSettings{SectionBase: section},
		&model.AboutSection{SectionBase: section, IsActive: true},
		&model.TestimonialsSection{SectionBase: section, Title: "Depoimentos", IsActive: true},
		&model.ShowroomSection{SectionBase: section, Title: "Showroom", IsActive: true},
		&model.ProductGallerySection{SectionBase: section, Title: "Produtos", IsActive: true},
		&model.FormContent{
			SectionBase:         section,
			NameLabel:           "Nome",
			WhatsAppLabel:       "WhatsApp",
			WhatsAppPlaceholder: "(11) 99999-9999",
			CNPJQuestion:        "Você possui CNPJ?",
			CNPJYesLabel:        "Sim",
			CNPJNoLabel:         "Não",
			StoreTypeLabel:      "Tipo de loja",
			CEPLabel:            "CEP",
			SubmitText:          "Enviar",
			SuccessTitle:        "Recebemos seus dados!",
		},
		&model.SEOSettings{SectionBase: section, Robots: "index, follow", TwitterCard: "summary_large_image"},
	}

	for _, seed := range seeds {
		if err := database.Where("id = ?", seedID(seed)).FirstOrCreate(seed).Error; err != nil {
			return fmt.Errorf("%s: %w", errorMessageSeedSingleton, err)
		}
	}
	return nil
}

func seedID(seed any) string {
	if settings, isWebhookSettings := seed.(*model.WebhookSettings); isWebhookSettings {
		return settings.ID
	}
	return model.DefaultSectionID
}
