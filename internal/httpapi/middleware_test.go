package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MarkoPoloResearchLab/leadpage/internal/httpapi"
)

func TestRequestLoggerTagsRequests(testingT *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name              string
		incomingID        string
		status            int
		expectedLevel     zapcore.Level
		expectIncomingKey bool
	}{
		{name: "caller id kept", incomingID: "req-123", status: http.StatusOK, expectedLevel: zapcore.InfoLevel, expectIncomingKey: true},
		{name: "missing id generated", incomingID: "", status: http.StatusCreated, expectedLevel: zapcore.InfoLevel},
		{name: "oversized id replaced", incomingID: strings.Repeat("x", 100), status: http.StatusOK, expectedLevel: zapcore.InfoLevel},
		{name: "server error warns", incomingID: "req-500", status: http.StatusInternalServerError, expectedLevel: zapcore.WarnLevel, expectIncomingKey: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			core, observed := observer.New(zapcore.DebugLevel)
			router := gin.New()
			router.Use(httpapi.RequestLogger(zap.New(core)))
			router.GET("/api/leads/:id", func(context *gin.Context) {
				context.Status(testCase.status)
			})

			request := httptest.NewRequest(http.MethodGet, "/api/leads/42", nil)
			if testCase.incomingID != "" {
				request.Header.Set(httpapi.HeaderRequestID, testCase.incomingID)
			}
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)

			responseID := recorder.Header().Get(httpapi.HeaderRequestID)
			require.NotEmpty(testingT, responseID)
			if testCase.expectIncomingKey {
				require.Equal(testingT, testCase.incomingID, responseID)
			} else {
				require.NotEqual(testingT, testCase.incomingID, responseID)
			}

			entries := observed.All()
			require.Len(testingT, entries, 1)
			require.Equal(testingT, testCase.expectedLevel, entries[0].Level)
			fields := entries[0].ContextMap()
			require.Equal(testingT, responseID, fields["request_id"])
			require.Equal(testingT, "/api/leads/:id", fields["route"])
			require.Equal(testingT, int64(testCase.status), fields["status"])
		})
	}
}
