package model

import "time"

// WebhookSettingsID keys the single webhook configuration row.
const WebhookSettingsID = "main"

const (
	WebhookEventNewLead          = "new_lead"
	WebhookEventConsumerDetected = "consumer_detected"
	WebhookEventTest             = "test"

	webhookDeliveryErrorMaxLength = 500
)

// WebhookSettings holds the operator-configured destination for lead notifications.
type WebhookSettings struct {
	ID             string    `gorm:"primaryKey;size:16"`
	WebhookURL     string    `gorm:"column:webhook_url;size:2048"`
	WebhookSecret  string    `gorm:"column:webhook_secret;size:256"`
	WebhookEnabled bool      `gorm:"column:webhook_enabled;not null;default:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (WebhookSettings) TableName() string {
	return "webhook_settings"
}

// Active reports whether deliveries should be attempted.
func (settings WebhookSettings) Active() bool {
	return settings.WebhookEnabled && settings.WebhookURL != ""
}

// WebhookDelivery records one outbound webhook attempt.
type WebhookDelivery struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	LeadID     string    `gorm:"size:36;index" json:"lead_id"`
	Event      string    `gorm:"not null;size:32" json:"event"`
	LeadType   string    `gorm:"size:16" json:"lead_type"`
	StatusCode int       `json:"status_code"`
	Success    bool      `gorm:"not null;default:false" json:"success"`
	Error      string    `gorm:"size:500" json:"error"`
	DurationMS int64     `gorm:"column:duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TruncateDeliveryError bounds an error message to the stored column width.
func TruncateDeliveryError(message string) string {
	return truncateRunes(message, webhookDeliveryErrorMaxLength)
}
