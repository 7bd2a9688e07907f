package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	settingsFieldURL     = "webhook_url"
	settingsFieldSecret  = "webhook_secret"
	settingsFieldEnabled = "webhook_enabled"

	settingsURLMaxLength    = 2048
	settingsSecretMaxLength = 256

	errorMessageLoadSettings   = "webhook: load settings"
	errorMessageUpdateSettings = "webhook: update settings"
)

var ErrNothingToUpdate = errors.New("nothing_to_update")

// SettingsView is the admin representation. The secret itself is never exposed.
type SettingsView struct {
	WebhookURL     string    `json:"webhook_url"`
	WebhookEnabled bool      `json:"webhook_enabled"`
	HasSecret      bool      `json:"has_secret"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewSettingsView hides the secret behind a presence flag.
func NewSettingsView(settings model.WebhookSettings) SettingsView {
	return SettingsView{
		WebhookURL:     settings.WebhookURL,
		WebhookEnabled: settings.WebhookEnabled,
		HasSecret:      settings.WebhookSecret != "",
		UpdatedAt:      settings.UpdatedAt,
	}
}

// SettingsUpdate is the typed admin patch. Nil fields are left untouched.
type SettingsUpdate struct {
	WebhookURL     *string `json:"webhook_url"`
	WebhookSecret  *string `json:"webhook_secret"`
	WebhookEnabled *bool   `json:"webhook_enabled"`
}

// SettingsStore reads and patches the singleton webhook configuration.
type SettingsStore struct {
	database *gorm.DB
}

func NewSettingsStore(database *gorm.DB) *SettingsStore {
	return &SettingsStore{database: database}
}

// Get returns the stored settings, or disabled defaults when the row is missing.
func (store *SettingsStore) Get(ctx context.Context) (model.WebhookSettings, error) {
	settings := model.WebhookSettings{ID: model.WebhookSettingsID}
	err := store.database.WithContext(ctx).First(&settings, "id = ?", model.WebhookSettingsID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.WebhookSettings{ID: model.WebhookSettingsID}, nil
		}
		return model.WebhookSettings{}, fmt.Errorf("%s: %w", errorMessageLoadSettings, err)
	}
	return settings, nil
}

func (store *SettingsStore) Update(ctx context.Context, update SettingsUpdate) (model.WebhookSettings, error) {
	var validationErrors model.ValidationErrors
	columns := map[string]any{}

	if update.WebhookURL != nil {
		webhookURL := strings.TrimSpace(*update.WebhookURL)
		switch {
		case len(webhookURL) > settingsURLMaxLength:
			validationErrors.Add(settingsFieldURL, "must have at most 2048 characters")
		case webhookURL != "" && !isAbsoluteHTTPURL(webhookURL):
			validationErrors.Add(settingsFieldURL, "must be an absolute http(s) URL")
		default:
			columns[settingsFieldURL] = webhookURL
		}
	}
	if update.WebhookSecret != nil {
		secret := strings.TrimSpace(*update.WebhookSecret)
		if len(secret) > settingsSecretMaxLength {
			validationErrors.Add(settingsFieldSecret, "must have at most 256 characters")
		} else {
			columns[settingsFieldSecret] = secret
		}
	}
	if update.WebhookEnabled != nil {
		columns[settingsFieldEnabled] = *update.WebhookEnabled
	}

	if err := validationErrors.OrNil(); err != nil {
		return model.WebhookSettings{}, err
	}
	if len(columns) == 0 {
		return model.WebhookSettings{}, ErrNothingToUpdate
	}

	transactionErr := store.database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		seed := model.WebhookSettings{ID: model.WebhookSettingsID}
		if err := transaction.Where("id = ?", model.WebhookSettingsID).FirstOrCreate(&seed).Error; err != nil {
			return err
		}
		return transaction.Model(&model.WebhookSettings{}).Where("id = ?", model.WebhookSettingsID).Updates(columns).Error
	})
	if transactionErr != nil {
		return model.WebhookSettings{}, fmt.Errorf("%s: %w", errorMessageUpdateSettings, transactionErr)
	}
	return store.Get(ctx)
}

func isAbsoluteHTTPURL(rawURL string) bool {
	parsedURL, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return false
	}
	scheme := strings.ToLower(parsedURL.Scheme)
	return (scheme == "http" || scheme == "https") && parsedURL.Host != ""
}
