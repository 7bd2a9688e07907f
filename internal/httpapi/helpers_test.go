package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/leadpage/internal/httpapi"
)

const (
	testAdminEmailAddress = "admin@example.com"
	testAdminPassword     = "s3cret-passw0rd"
	testBearerToken       = "automation-token"
	testSessionContextKey = "httpapi_current_admin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJSONContext(method string, path string, body any) (*httptest.ResponseRecorder, *gin.Context) {
	recorder := httptest.NewRecorder()
	var requestBody *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		requestBody = bytes.NewReader(encoded)
	} else {
		requestBody = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, requestBody)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	context, _ := gin.CreateTestContext(recorder)
	context.Request = request
	return recorder, context
}

func newRawJSONContext(method string, path string, rawBody string) (*httptest.ResponseRecorder, *gin.Context) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	request.Header.Set("Content-Type", "application/json")
	context, _ := gin.CreateTestContext(recorder)
	context.Request = request
	return recorder, context
}

func asAdmin(context *gin.Context) {
	context.Set(testSessionContextKey, &httpapi.CurrentAdmin{Email: testAdminEmailAddress})
}

func decodeBody(testingT *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	testingT.Helper()
	var payload map[string]any
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

func detailFields(testingT *testing.T, payload map[string]any) []string {
	testingT.Helper()
	details, ok := payload["details"].([]any)
	require.True(testingT, ok, "details missing: %v", payload)
	fields := make([]string, 0, len(details))
	for _, detail := range details {
		fields = append(fields, detail.(map[string]any)["field"].(string))
	}
	return fields
}
