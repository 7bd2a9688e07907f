package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/auth"
)

const (
	SessionName = "leadpage_admin"

	contextKeyCurrentAdmin = "httpapi_current_admin"
	sessionKeyAdminEmail   = "admin_email"
	sessionMaxAge          = 7 * 24 * time.Hour
	bearerPrefix           = "Bearer "

	logEventLoadSession = "load_session"
	logEventSaveSession = "save_session"
	logEventLogin       = "admin_login"
)

// CurrentAdmin identifies the caller of an admin route.
type CurrentAdmin struct {
	Email    string
	ViaToken bool
}

// AuthConfig configures the admin session cookie and the optional automation token.
type AuthConfig struct {
	SessionSecret []byte
	BearerToken   string
	SecureCookies bool
}

type AuthManager struct {
	database     *gorm.DB
	logger       *zap.Logger
	sessionStore *sessions.CookieStore
	bearerToken  string
}

func NewAuthManager(database *gorm.DB, logger *zap.Logger, config AuthConfig) *AuthManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := sessions.NewCookieStore(config.SessionSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &AuthManager{
		database:     database,
		logger:       logger,
		sessionStore: store,
		bearerToken:  strings.TrimSpace(config.BearerToken),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (authManager *AuthManager) Login(context *gin.Context) {
	var payload loginRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
		return
	}

	account, verifyErr := auth.VerifyAdminCredentials(context.Request.Context(), authManager.database, payload.Email, payload.Password)
	if verifyErr != nil {
		if errors.Is(verifyErr, auth.ErrInvalidCredentials) {
			respondError(context, http.StatusUnauthorized, errorValueInvalidCredentials)
			return
		}
		authManager.logger.Warn(logEventLogin, zap.Error(verifyErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	sessionInstance, _ := authManager.sessionStore.Get(context.Request, SessionName)
	sessionInstance.Values[sessionKeyAdminEmail] = account.Email
	if saveErr := sessionInstance.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(saveErr))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusOK, gin.H{jsonKeyEmail: account.Email})
}

func (authManager *AuthManager) Logout(context *gin.Context) {
	sessionInstance, _ := authManager.sessionStore.Get(context.Request, SessionName)
	delete(sessionInstance.Values, sessionKeyAdminEmail)
	sessionInstance.Options.MaxAge = -1
	if saveErr := sessionInstance.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(saveErr))
	}
	context.Status(http.StatusNoContent)
}

func (authManager *AuthManager) Me(context *gin.Context) {
	currentAdmin, ok := authManager.ensureAdmin(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueUnauthorized)
		return
	}
	context.JSON(http.StatusOK, gin.H{jsonKeyEmail: currentAdmin.Email})
}

// RequireAdminJSON aborts with 401 unless the request carries an admin session or the bearer token.
func (authManager *AuthManager) RequireAdminJSON() gin.HandlerFunc {
	return func(context *gin.Context) {
		if _, ok := authManager.ensureAdmin(context); !ok {
			context.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{jsonKeyError: errorValueUnauthorized})
			return
		}
		context.Next()
	}
}

// DetectAdmin records the admin on the context when present and never aborts.
func (authManager *AuthManager) DetectAdmin() gin.HandlerFunc {
	return func(context *gin.Context) {
		authManager.ensureAdmin(context)
		context.Next()
	}
}

func CurrentAdminFromContext(context *gin.Context) (*CurrentAdmin, bool) {
	value, exists := context.Get(contextKeyCurrentAdmin)
	if !exists {
		return nil, false
	}
	currentAdmin, ok := value.(*CurrentAdmin)
	return currentAdmin, ok
}

func isAdminRequest(context *gin.Context) bool {
	_, ok := CurrentAdminFromContext(context)
	return ok
}

func (authManager *AuthManager) ensureAdmin(context *gin.Context) (*CurrentAdmin, bool) {
	if currentAdmin, exists := CurrentAdminFromContext(context); exists {
		return currentAdmin, true
	}

	if authManager.bearerMatches(context.GetHeader("Authorization")) {
		currentAdmin := &CurrentAdmin{ViaToken: true}
		context.Set(contextKeyCurrentAdmin, currentAdmin)
		return currentAdmin, true
	}

	sessionInstance, sessionErr := authManager.sessionStore.Get(context.Request, SessionName)
	if sessionErr != nil {
		authManager.logger.Warn(logEventLoadSession, zap.Error(sessionErr))
		return nil, false
	}
	email := extractString(sessionInstance.Values[sessionKeyAdminEmail])
	if email == "" {
		return nil, false
	}

	currentAdmin := &CurrentAdmin{Email: email}
	context.Set(contextKeyCurrentAdmin, currentAdmin)
	return currentAdmin, true
}

func (authManager *AuthManager) bearerMatches(authorizationHeader string) bool {
	if authManager.bearerToken == "" {
		return false
	}
	trimmedHeader := strings.TrimSpace(authorizationHeader)
	if !strings.HasPrefix(trimmedHeader, bearerPrefix) {
		return false
	}
	provided := strings.TrimSpace(strings.TrimPrefix(trimmedHeader, bearerPrefix))
	return subtle.ConstantTimeCompare([]byte(provided), []byte(authManager.bearerToken)) == 1
}

func extractString(value interface{}) string {
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}
