package storage

import (
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

// MarkWebhookSent flips webhook_sent to true once. It reports whether this call performed the transition.
func MarkWebhookSent(database *gorm.DB, leadID string) (bool, error) {
	result := database.Model(&model.Lead{}).
		Where("id = ? AND webhook_sent = ?", leadID, false).
		Update("webhook_sent", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementWebhookAttempts adds one failed delivery attempt in a single statement.
func IncrementWebhookAttempts(database *gorm.DB, leadID string) error {
	return database.Model(&model.Lead{}).
		Where("id = ?", leadID).
		Update("webhook_attempts", gorm.Expr("webhook_attempts + ?", 1)).Error
}
