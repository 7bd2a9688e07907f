package model

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	LeadHasCNPJYes = "sim"
	LeadHasCNPJNo  = "nao"

	LeadSourceMerchant = "lojista"
	LeadSourceConsumer = "consumidor"

	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"

	StoreTypePhysical       = "fisica"
	StoreTypeOnline         = "online"
	StoreTypePhysicalOnline = "fisica_online"
	StoreTypeSocialMedia    = "midias_sociais"

	LeadFieldName      = "name"
	LeadFieldWhatsApp  = "whatsapp"
	LeadFieldHasCNPJ   = "has_cnpj"
	LeadFieldStoreType = "store_type"
	LeadFieldCEP       = "cep"
	LeadFieldStatus    = "status"
	LeadFieldNotes     = "notes"

	leadNameMinLength      = 2
	leadNameMaxLength      = 200
	leadWhatsAppMinDigits  = 10
	leadWhatsAppMaxDigits  = 13
	leadCEPDigits          = 8
	leadNotesMaxLength     = 4000
	leadIPMaxLength        = 64
	leadUserAgentMaxLength = 400
)

var (
	ErrInvalidLeadStatus = errors.New("invalid_lead_status")
	ErrLeadNotesTooLong  = errors.New("lead_notes_too_long")
)

var (
	leadStatuses = map[string]struct{}{
		LeadStatusNew:       {},
		LeadStatusContacted: {},
		LeadStatusQualified: {},
		LeadStatusConverted: {},
		LeadStatusLost:      {},
	}
	storeTypes = map[string]struct{}{
		StoreTypePhysical:       {},
		StoreTypeOnline:         {},
		StoreTypePhysicalOnline: {},
		StoreTypeSocialMedia:    {},
	}
)

// Lead is a prospect captured by the public form.
type Lead struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Name            string    `gorm:"not null;size:200" json:"name"`
	WhatsApp        string    `gorm:"column:whatsapp;not null;size:32" json:"whatsapp"`
	HasCNPJ         string    `gorm:"column:has_cnpj;not null;size:3" json:"has_cnpj"`
	StoreType       string    `gorm:"column:store_type;size:32" json:"store_type"`
	CEP             string    `gorm:"column:cep;size:8" json:"cep"`
	Source          string    `gorm:"not null;size:16;index" json:"source"`
	Status          string    `gorm:"not null;size:16;index" json:"status"`
	Notes           string    `gorm:"size:4000" json:"notes"`
	IPAddress       string    `gorm:"column:ip_address;size:64" json:"ip_address"`
	UserAgent       string    `gorm:"size:400" json:"user_agent"`
	WebhookSent     bool      `gorm:"not null;default:false;index" json:"webhook_sent"`
	WebhookAttempts int       `gorm:"not null;default:0" json:"webhook_attempts"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LeadInput holds the raw values submitted by the public form.
type LeadInput struct {
	Name      string
	WhatsApp  string
	HasCNPJ   string
	StoreType string
	CEP       string
	IPAddress string
	UserAgent string
}

// NewLead validates a merchant submission and returns a lead in the new status.
func NewLead(input LeadInput) (Lead, error) {
	var validationErrors ValidationErrors

	name := strings.TrimSpace(input.Name)
	validateLeadName(name, &validationErrors)

	whatsApp := DigitsOnly(input.WhatsApp)
	validateLeadWhatsApp(strings.TrimSpace(input.WhatsApp), whatsApp, &validationErrors)

	hasCNPJ := strings.ToLower(strings.TrimSpace(input.HasCNPJ))
	switch hasCNPJ {
	case LeadHasCNPJYes, LeadHasCNPJNo:
	case "":
		validationErrors.Add(LeadFieldHasCNPJ, "required")
	default:
		validationErrors.Add(LeadFieldHasCNPJ, "must be sim or nao")
	}

	storeType := strings.ToLower(strings.TrimSpace(input.StoreType))
	cep := DigitsOnly(input.CEP)
	if hasCNPJ == LeadHasCNPJYes {
		if storeType != "" {
			if _, known := storeTypes[storeType]; !known {
				validationErrors.Add(LeadFieldStoreType, "must be fisica, online, fisica_online or midias_sociais")
			}
		}
		if strings.TrimSpace(input.CEP) != "" && len(cep) != leadCEPDigits {
			validationErrors.Add(LeadFieldCEP, "must have 8 digits")
		}
	} else {
		storeType = ""
		cep = ""
	}

	if err := validationErrors.OrNil(); err != nil {
		return Lead{}, err
	}

	return Lead{
		ID:        uuid.NewString(),
		Name:      name,
		WhatsApp:  whatsApp,
		HasCNPJ:   hasCNPJ,
		StoreType: storeType,
		CEP:       cep,
		Source:    LeadSourceMerchant,
		Status:    LeadStatusNew,
		IPAddress: truncateRunes(strings.TrimSpace(input.IPAddress), leadIPMaxLength),
		UserAgent: truncateRunes(strings.TrimSpace(input.UserAgent), leadUserAgentMaxLength),
	}, nil
}

// ConsumerLeadInput holds the values captured for a consumer redirected away from the merchant form.
type ConsumerLeadInput struct {
	Name      string
	WhatsApp  string
	IPAddress string
	UserAgent string
}

// NewConsumerLead validates a consumer submission. Consumer leads never carry a CNPJ.
func NewConsumerLead(input ConsumerLeadInput) (Lead, error) {
	var validationErrors ValidationErrors

	name := strings.TrimSpace(input.Name)
	validateLeadName(name, &validationErrors)

	whatsApp := DigitsOnly(input.WhatsApp)
	validateLeadWhatsApp(strings.TrimSpace(input.WhatsApp), whatsApp, &validationErrors)

	if err := validationErrors.OrNil(); err != nil {
		return Lead{}, err
	}

	return Lead{
		ID:        uuid.NewString(),
		Name:      name,
		WhatsApp:  whatsApp,
		HasCNPJ:   LeadHasCNPJNo,
		Source:    LeadSourceConsumer,
		Status:    LeadStatusNew,
		IPAddress: truncateRunes(strings.TrimSpace(input.IPAddress), leadIPMaxLength),
		UserAgent: truncateRunes(strings.TrimSpace(input.UserAgent), leadUserAgentMaxLength),
	}, nil
}

// IsMerchant reports whether the lead receives webhook bookkeeping.
func (lead Lead) IsMerchant() bool {
	return lead.Source == LeadSourceMerchant
}

// NormalizeLeadStatus validates an admin-supplied status.
func NormalizeLeadStatus(rawStatus string) (string, error) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	if _, known := leadStatuses[status]; !known {
		return "", ErrInvalidLeadStatus
	}
	return status, nil
}

// NormalizeLeadNotes trims admin notes and enforces the length limit.
func NormalizeLeadNotes(rawNotes string) (string, error) {
	notes := strings.TrimSpace(rawNotes)
	if utf8.RuneCountInString(notes) > leadNotesMaxLength {
		return "", ErrLeadNotesTooLong
	}
	return notes, nil
}

// LeadStatuses lists every supported status in pipeline order.
func LeadStatuses() []string {
	return []string{LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusLost}
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(value string) string {
	var builder strings.Builder
	for _, character := range value {
		if unicode.IsDigit(character) && character < utf8.RuneSelf {
			builder.WriteRune(character)
		}
	}
	return builder.String()
}

func validateLeadName(name string, validationErrors *ValidationErrors) {
	nameLength := utf8.RuneCountInString(name)
	switch {
	case nameLength == 0:
		validationErrors.Add(LeadFieldName, "required")
	case nameLength < leadNameMinLength:
		validationErrors.Add(LeadFieldName, "must have at least 2 characters")
	case nameLength > leadNameMaxLength:
		validationErrors.Add(LeadFieldName, "must have at most 200 characters")
	}
}

func validateLeadWhatsApp(rawWhatsApp string, digits string, validationErrors *ValidationErrors) {
	if rawWhatsApp == "" {
		validationErrors.Add(LeadFieldWhatsApp, "required")
		return
	}
	if len(digits) < leadWhatsAppMinDigits || len(digits) > leadWhatsAppMaxDigits {
		validationErrors.Add(LeadFieldWhatsApp, "must have between 10 and 13 digits")
	}
}

func truncateRunes(value string, maxLength int) string {
	if utf8.RuneCountInString(value) <= maxLength {
		return value
	}
	runes := []rune(value)
	return string(runes[:maxLength])
}
