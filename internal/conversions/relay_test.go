package conversions_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/content"
	"github.com/MarkoPoloResearchLab/leadpage/internal/conversions"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/testutil"
)

func sha256Hex(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}

func TestHashingNormalizesBeforeDigest(testingT *testing.T) {
	testCases := []struct {
		name     string
		hash     func(string) string
		input    string
		expected string
	}{
		{name: "email lowercased and trimmed", hash: conversions.HashEmail, input: "  Ana@Example.COM ", expected: sha256Hex("ana@example.com")},
		{name: "phone gains country code", hash: conversions.HashPhone, input: "(11) 98888-7777", expected: sha256Hex("5511988887777")},
		{name: "phone keeps existing country code", hash: conversions.HashPhone, input: "+55 11 98888-7777", expected: sha256Hex("5511988887777")},
		{name: "external id trimmed", hash: conversions.HashExternalID, input: " user-42 ", expected: sha256Hex("user-42")},
		{name: "empty email omitted", hash: conversions.HashEmail, input: "   ", expected: ""},
		{name: "phone without digits omitted", hash: conversions.HashPhone, input: "n/a", expected: ""},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			require.Equal(testingT, testCase.expected, testCase.hash(testCase.input))
		})
	}
}

type capturedPlatformRequest struct {
	path          string
	authorization string
	payload       map[string]any
}

func newPlatformServer(testingT *testing.T, status int, body string, captured *capturedPlatformRequest) *httptest.Server {
	testingT.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		rawBody, _ := io.ReadAll(request.Body)
		captured.path = request.URL.Path
		captured.authorization = request.Header.Get("Authorization")
		_ = json.Unmarshal(rawBody, &captured.payload)
		responseWriter.Header().Set("Content-Type", "application/json; charset=UTF-8")
		responseWriter.WriteHeader(status)
		_, _ = responseWriter.Write([]byte(body))
	}))
	testingT.Cleanup(server.Close)
	return server
}

func configurePixel(testingT *testing.T, store *content.PixelStore) {
	testingT.Helper()
	patch, err := content.PixelFields.ParsePatchJSON([]byte(`{"name":"CAPI","type":"conversions_api","enabled":true,"pixel_id":"123456","access_token":"token-abc"}`))
	require.NoError(testingT, err)
	_, err = store.Create(context.Background(), patch)
	require.NoError(testingT, err)
}

func TestForwardHashesAndRelaysResponse(testingT *testing.T) {
	database := testutil.NewMigratedDatabase(testingT)
	store := content.NewPixelStore(database)
	configurePixel(testingT, store)

	captured := &capturedPlatformRequest{}
	server := newPlatformServer(testingT, http.StatusOK, `{"events_received":1}`, captured)
	relay := conversions.NewRelay(store, server.Client(), server.URL+"/", zap.NewNop())

	response, err := relay.Forward(context.Background(), conversions.Event{
		PixelID:   "123456",
		EventName: "Lead",
		EventTime: 1714560000,
		UserData: conversions.UserData{
			Email:      "Ana@Example.com",
			Phone:      "11 98888-7777",
			ExternalID: "lead-1",
		},
		CustomData: map[string]any{"value": 10.5},
	}, "198.51.100.4", "Mozilla/5.0")
	require.NoError(testingT, err)
	require.Equal(testingT, http.StatusOK, response.StatusCode)
	require.Equal(testingT, "application/json; charset=UTF-8", response.ContentType)
	require.JSONEq(testingT, `{"events_received":1}`, string(response.Body))

	require.Equal(testingT, "/123456/events", captured.path)
	require.Equal(testingT, "Bearer token-abc", captured.authorization)

	data, isList := captured.payload["data"].([]any)
	require.True(testingT, isList)
	require.Len(testingT, data, 1)
	event := data[0].(map[string]any)
	require.Equal(testingT, "Lead", event["event_name"])
	require.Equal(testingT, float64(1714560000), event["event_time"])
	require.Equal(testingT, conversions.DefaultActionSource, event["action_source"])
	require.Equal(testingT, map[string]any{"value": 10.5}, event["custom_data"])

	userData := event["user_data"].(map[string]any)
	require.Equal(testingT, sha256Hex("ana@example.com"), userData["em"])
	require.Equal(testingT, sha256Hex("5511988887777"), userData["ph"])
	require.Equal(testingT, sha256Hex("lead-1"), userData["external_id"])
	require.Equal(testingT, "198.51.100.4", userData["client_ip_address"])
	require.Equal(testingT, "Mozilla/5.0", userData["client_user_agent"])
	require.NotContains(testingT, userData, "email")
}

func TestForwardRelaysPlatformErrorsVerbatim(testingT *testing.T) {
	database := testutil.NewMigratedDatabase(testingT)
	store := content.NewPixelStore(database)
	configurePixel(testingT, store)

	captured := &capturedPlatformRequest{}
	server := newPlatformServer(testingT, http.StatusBadRequest, `{"error":{"message":"Invalid parameter"}}`, captured)
	relay := conversions.NewRelay(store, server.Client(), server.URL, nil)

	response, err := relay.Forward(context.Background(), conversions.Event{
		PixelID:   "123456",
		EventName: "Purchase",
		UserData:  conversions.UserData{ClientIPAddress: "203.0.113.9"},
	}, "198.51.100.4", "agent")
	require.NoError(testingT, err)
	require.Equal(testingT, http.StatusBadRequest, response.StatusCode)
	require.JSONEq(testingT, `{"error":{"message":"Invalid parameter"}}`, string(response.Body))

	event := captured.payload["data"].([]any)[0].(map[string]any)
	userData := event["user_data"].(map[string]any)
	require.Equal(testingT, "203.0.113.9", userData["client_ip_address"])
	require.NotContains(testingT, userData, "em")
	require.NotZero(testingT, event["event_time"])
}

func TestForwardRejectsUnknownPixel(testingT *testing.T) {
	database := testutil.NewMigratedDatabase(testingT)
	store := content.NewPixelStore(database)
	relay := conversions.NewRelay(store, nil, "", nil)

	_, err := relay.Forward(context.Background(), conversions.Event{PixelID: "999", EventName: "Lead"}, "", "")
	require.ErrorIs(testingT, err, conversions.ErrPixelNotConfigured)
}

func TestForwardValidatesEvent(testingT *testing.T) {
	relay := conversions.NewRelay(content.NewPixelStore(nil), nil, "", nil)

	_, err := relay.Forward(context.Background(), conversions.Event{}, "", "")
	var validationErrors model.ValidationErrors
	require.True(testingT, errors.As(err, &validationErrors))
	require.Equal(testingT, []string{"pixel_id", "event_name"}, validationErrors.Fields())
}

func TestForwardReportsNetworkFailure(testingT *testing.T) {
	database := testutil.NewMigratedDatabase(testingT)
	store := content.NewPixelStore(database)
	configurePixel(testingT, store)

	server := httptest.NewServer(http.NotFoundHandler())
	closedURL := server.URL
	server.Close()
	relay := conversions.NewRelay(store, &http.Client{}, closedURL, zap.NewNop())

	_, err := relay.Forward(context.Background(), conversions.Event{PixelID: "123456", EventName: "Lead"}, "", "")
	require.ErrorIs(testingT, err, conversions.ErrForwardFailed)
}
