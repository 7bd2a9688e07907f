package model

import "time"

// AdminUser is an account allowed to manage page content and leads.
type AdminUser struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"not null;size:320;uniqueIndex"`
	PasswordHash string    `gorm:"not null;size:100"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
