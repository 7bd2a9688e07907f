package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/auth"
	"github.com/MarkoPoloResearchLab/leadpage/internal/httpapi"
	"github.com/MarkoPoloResearchLab/leadpage/internal/testutil"
)

func newAuthTestRouter(testingT *testing.T, bearerToken string) (*gin.Engine, *gorm.DB) {
	testingT.Helper()
	database := testutil.NewMigratedDatabase(testingT)
	_, err := auth.EnsureAdminAccount(context.Background(), database, testAdminEmailAddress, testAdminPassword)
	require.NoError(testingT, err)

	authManager := httpapi.NewAuthManager(database, zap.NewNop(), httpapi.AuthConfig{
		SessionSecret: []byte("0123456789abcdef0123456789abcdef"),
		BearerToken:   bearerToken,
	})
	router := gin.New()
	router.POST("/api/auth/login", authManager.Login)
	router.POST("/api/auth/logout", authManager.Logout)
	router.GET("/api/auth/me", authManager.Me)
	router.GET("/api/protected", authManager.RequireAdminJSON(), func(context *gin.Context) {
		currentAdmin, _ := httpapi.CurrentAdminFromContext(context)
		context.JSON(http.StatusOK, gin.H{"via_token": currentAdmin.ViaToken})
	})
	return router, database
}

func serve(router *gin.Engine, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func loginRequest(email string, password string) *http.Request {
	_, context := newJSONContext(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
	return context.Request
}

func TestLoginEstablishesSession(testingT *testing.T) {
	router, _ := newAuthTestRouter(testingT, "")

	loginRecorder := serve(router, loginRequest("Admin@Example.com", testAdminPassword))
	require.Equal(testingT, http.StatusOK, loginRecorder.Code)
	require.Equal(testingT, testAdminEmailAddress, decodeBody(testingT, loginRecorder)["email"])

	cookies := loginRecorder.Result().Cookies()
	require.NotEmpty(testingT, cookies)
	require.Equal(testingT, httpapi.SessionName, cookies[0].Name)
	require.True(testingT, cookies[0].HttpOnly)
	require.Equal(testingT, http.SameSiteLaxMode, cookies[0].SameSite)

	meRequest := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	meRequest.AddCookie(cookies[0])
	meRecorder := serve(router, meRequest)
	require.Equal(testingT, http.StatusOK, meRecorder.Code)
	require.Equal(testingT, testAdminEmailAddress, decodeBody(testingT, meRecorder)["email"])

	protectedRequest := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	protectedRequest.AddCookie(cookies[0])
	protectedRecorder := serve(router, protectedRequest)
	require.Equal(testingT, http.StatusOK, protectedRecorder.Code)
	require.Equal(testingT, false, decodeBody(testingT, protectedRecorder)["via_token"])
}

func TestLoginRejectsInvalidCredentials(testingT *testing.T) {
	router, _ := newAuthTestRouter(testingT, "")

	testCases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: testAdminEmailAddress, password: "nope-nope-nope"},
		{name: "unknown account", email: "ghost@example.com", password: testAdminPassword},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			recorder := serve(router, loginRequest(testCase.email, testCase.password))
			require.Equal(testingT, http.StatusUnauthorized, recorder.Code)
			require.Equal(testingT, "invalid_credentials", decodeBody(testingT, recorder)["error"])
			require.Empty(testingT, recorder.Result().Cookies())
		})
	}
}

func TestLogoutExpiresSessionCookie(testingT *testing.T) {
	router, _ := newAuthTestRouter(testingT, "")
	loginRecorder := serve(router, loginRequest(testAdminEmailAddress, testAdminPassword))
	sessionCookie := loginRecorder.Result().Cookies()[0]

	logoutRequest := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	logoutRequest.AddCookie(sessionCookie)
	logoutRecorder := serve(router, logoutRequest)
	require.Equal(testingT, http.StatusNoContent, logoutRecorder.Code)

	expired := logoutRecorder.Result().Cookies()
	require.NotEmpty(testingT, expired)
	require.Less(testingT, expired[0].MaxAge, 0)
}

func TestRequireAdminJSON(testingT *testing.T) {
	testCases := []struct {
		name           string
		configured     string
		authorization  string
		expectedStatus int
	}{
		{name: "no credentials", configured: testBearerToken, authorization: "", expectedStatus: http.StatusUnauthorized},
		{name: "matching bearer", configured: testBearerToken, authorization: "Bearer " + testBearerToken, expectedStatus: http.StatusOK},
		{name: "wrong bearer", configured: testBearerToken, authorization: "Bearer other", expectedStatus: http.StatusUnauthorized},
		{name: "bearer without configured token", configured: "", authorization: "Bearer ", expectedStatus: http.StatusUnauthorized},
		{name: "basic scheme", configured: testBearerToken, authorization: "Basic " + testBearerToken, expectedStatus: http.StatusUnauthorized},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			router, _ := newAuthTestRouter(testingT, testCase.configured)
			request := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
			if testCase.authorization != "" {
				request.Header.Set("Authorization", testCase.authorization)
			}
			recorder := serve(router, request)
			require.Equal(testingT, testCase.expectedStatus, recorder.Code)
			if testCase.expectedStatus == http.StatusUnauthorized {
				require.Equal(testingT, "unauthorized", decodeBody(testingT, recorder)["error"])
			}
		})
	}
}

func TestMeWithoutSessionIsUnauthorized(testingT *testing.T) {
	router, _ := newAuthTestRouter(testingT, "")
	recorder := serve(router, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(testingT, http.StatusUnauthorized, recorder.Code)
}
