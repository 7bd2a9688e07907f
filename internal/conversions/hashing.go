package conversions

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const brazilCountryCode = "55"

func hashValue(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}

// HashEmail lowercases and trims the address before hashing. Empty input yields "".
func HashEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}
	return hashValue(normalized)
}

// HashPhone keeps digits only and prefixes the Brazilian country code when it is absent.
func HashPhone(phone string) string {
	digits := model.DigitsOnly(phone)
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, brazilCountryCode) {
		digits = brazilCountryCode + digits
	}
	return hashValue(digits)
}

// HashExternalID trims the identifier before hashing.
func HashExternalID(externalID string) string {
	normalized := strings.TrimSpace(externalID)
	if normalized == "" {
		return ""
	}
	return hashValue(normalized)
}
