package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRouteTemplate(testingT *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/leads/:id", func(context *gin.Context) {
		context.Status(http.StatusNoContent)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/leads/:id", "204"))
	for _, leadID := range []string{"a", "b"} {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/leads/"+leadID, nil))
		require.Equal(testingT, http.StatusNoContent, recorder.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/leads/:id", "204"))
	require.Equal(testingT, before+2, after)

	unmatchedBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoutePath, "404"))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(testingT, unmatchedBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoutePath, "404")))
}

func TestDomainCountersIncrement(testingT *testing.T) {
	testCases := []struct {
		name    string
		record  func()
		counter func() float64
	}{
		{
			name:    "lead created",
			record:  func() { RecordLeadCreated("lojista") },
			counter: func() float64 { return testutil.ToFloat64(leadsCreated.WithLabelValues("lojista")) },
		},
		{
			name:    "webhook delivery",
			record:  func() { RecordWebhookDelivery(WebhookResultSent) },
			counter: func() float64 { return testutil.ToFloat64(webhookDeliveries.WithLabelValues(WebhookResultSent)) },
		},
		{
			name:    "conversion",
			record:  func() { RecordConversion(ConversionResultFailed) },
			counter: func() float64 { return testutil.ToFloat64(conversionsForwarded.WithLabelValues(ConversionResultFailed)) },
		},
		{
			name:    "upload",
			record:  func() { RecordUpload(UploadModeMultiFormat) },
			counter: func() float64 { return testutil.ToFloat64(uploadsStored.WithLabelValues(UploadModeMultiFormat)) },
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			before := testCase.counter()
			testCase.record()
			require.Equal(testingT, before+1, testCase.counter())
		})
	}
}

func TestHandlerServesExposition(testingT *testing.T) {
	RecordLeadCreated("consumidor")
	server := httptest.NewServer(Handler())
	defer server.Close()

	response, err := http.Get(server.URL)
	require.NoError(testingT, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(testingT, err)
	require.True(testingT, strings.Contains(string(body), "leads_created_total"))
}
