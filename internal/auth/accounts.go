package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/storage"
)

const (
	minimumPasswordLength = 8

	errorMessageHashPassword = "auth: hash password"
	errorMessageLoadAdmin    = "auth: load admin account"
	errorMessageSaveAdmin    = "auth: save admin account"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrMissingEmail       = errors.New("auth: admin email is required")
	ErrWeakPassword       = errors.New("auth: admin password must have at least 8 characters")
)

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureAdminAccount creates the account or replaces its password hash when it already exists.
func EnsureAdminAccount(ctx context.Context, database *gorm.DB, email string, password string) (model.AdminUser, error) {
	normalizedEmail := NormalizeEmail(email)
	if normalizedEmail == "" {
		return model.AdminUser{}, ErrMissingEmail
	}
	if len(password) < minimumPasswordLength {
		return model.AdminUser{}, ErrWeakPassword
	}
	passwordHash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if hashErr != nil {
		return model.AdminUser{}, fmt.Errorf("%s: %w", errorMessageHashPassword, hashErr)
	}

	var account model.AdminUser
	transactionErr := database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		lookupErr := transaction.Where("email = ?", normalizedEmail).First(&account).Error
		switch {
		case errors.Is(lookupErr, gorm.ErrRecordNotFound):
			account = model.AdminUser{
				ID:           storage.NewID(),
				Email:        normalizedEmail,
				PasswordHash: string(passwordHash),
			}
			return transaction.Create(&account).Error
		case lookupErr != nil:
			return lookupErr
		}
		account.PasswordHash = string(passwordHash)
		return transaction.Model(&account).Update("password_hash", account.PasswordHash).Error
	})
	if transactionErr != nil {
		return model.AdminUser{}, fmt.Errorf("%s: %w", errorMessageSaveAdmin, transactionErr)
	}
	return account, nil
}

// VerifyAdminCredentials returns the account when the password matches its bcrypt hash.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func VerifyAdminCredentials(ctx context.Context, database *gorm.DB, email string, password string) (model.AdminUser, error) {
	normalizedEmail := NormalizeEmail(email)
	if normalizedEmail == "" || password == "" {
		return model.AdminUser{}, ErrInvalidCredentials
	}

	var account model.AdminUser
	lookupErr := database.WithContext(ctx).Where("email = ?", normalizedEmail).First(&account).Error
	if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		return model.AdminUser{}, ErrInvalidCredentials
	}
	if lookupErr != nil {
		return model.AdminUser{}, fmt.Errorf("%s: %w", errorMessageLoadAdmin, lookupErr)
	}

	if compareErr := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); compareErr != nil {
		return model.AdminUser{}, ErrInvalidCredentials
	}
	return account, nil
}
