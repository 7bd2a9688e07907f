package conversions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/content"
	"github.com/MarkoPoloResearchLab/leadpage/internal/metrics"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	DefaultBaseURL      = "https://graph.facebook.com/v19.0"
	DefaultActionSource = "website"

	eventNameMaxLength = 100
	responseBodyLimit  = 1 << 20

	logEventForwardFailed = "conversion_forward_failed"

	errorMessageLookupPixel  = "conversions: lookup pixel"
	errorMessageBuildRequest = "conversions: build request"
)

var (
	ErrPixelNotConfigured = errors.New("pixel_not_configured")
	ErrForwardFailed      = errors.New("conversion_forward_failed")
)

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// PixelFinder resolves the stored credentials for a platform pixel id.
type PixelFinder interface {
	FindConversionsPixel(ctx context.Context, platformPixelID string) (model.Pixel, error)
}

// UserData is the caller-supplied identity. Personal fields are hashed before forwarding.
type UserData struct {
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ExternalID      string `json:"external_id"`
	ClientIPAddress string `json:"client_ip_address"`
	ClientUserAgent string `json:"client_user_agent"`
}

// Event is the browser conversion submitted to the relay.
type Event struct {
	PixelID        string         `json:"pixel_id"`
	EventName      string         `json:"event_name"`
	EventTime      int64          `json:"event_time"`
	UserData       UserData       `json:"user_data"`
	CustomData     map[string]any `json:"custom_data"`
	EventSourceURL string         `json:"event_source_url"`
	ActionSource   string         `json:"action_source"`
}

// Validate reports missing identifiers as field errors.
func (event Event) Validate() error {
	var validationErrors model.ValidationErrors
	if strings.TrimSpace(event.PixelID) == "" {
		validationErrors.Add("pixel_id", "required")
	}
	eventName := strings.TrimSpace(event.EventName)
	switch {
	case eventName == "":
		validationErrors.Add("event_name", "required")
	case len(eventName) > eventNameMaxLength:
		validationErrors.Add("event_name", "must have at most 100 characters")
	}
	if event.EventTime < 0 {
		validationErrors.Add("event_time", "must be a unix timestamp")
	}
	return validationErrors.OrNil()
}

type platformUserData struct {
	Email           string `json:"em,omitempty"`
	Phone           string `json:"ph,omitempty"`
	ExternalID      string `json:"external_id,omitempty"`
	ClientIPAddress string `json:"client_ip_address,omitempty"`
	ClientUserAgent string `json:"client_user_agent,omitempty"`
}

type platformEvent struct {
	EventName      string           `json:"event_name"`
	EventTime      int64            `json:"event_time"`
	ActionSource   string           `json:"action_source"`
	EventSourceURL string           `json:"event_source_url,omitempty"`
	UserData       platformUserData `json:"user_data"`
	CustomData     map[string]any   `json:"custom_data,omitempty"`
}

type platformPayload struct {
	Data []platformEvent `json:"data"`
}

// Response is the platform answer, relayed verbatim.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Relay forwards conversion events to the Conversions API.
type Relay struct {
	pixels     PixelFinder
	httpClient HTTPClient
	baseURL    string
	logger     *zap.Logger
	now        func() time.Time
}

func NewRelay(pixels PixelFinder, httpClient HTTPClient, baseURL string, logger *zap.Logger) *Relay {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Relay{
		pixels:     pixels,
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
		now:        time.Now,
	}
}

// Forward hashes the personal data, posts the event and returns the platform response.
// clientIP and userAgent fill the matching user_data fields when the caller left them empty.
func (relay *Relay) Forward(ctx context.Context, event Event, clientIP string, userAgent string) (Response, error) {
	if err := event.Validate(); err != nil {
		return Response{}, err
	}
	platformPixelID := strings.TrimSpace(event.PixelID)

	pixel, lookupErr := relay.pixels.FindConversionsPixel(ctx, platformPixelID)
	if lookupErr != nil {
		if errors.Is(lookupErr, content.ErrPixelNotFound) {
			metrics.RecordConversion(metrics.ConversionResultRejected)
			return Response{}, ErrPixelNotConfigured
		}
		return Response{}, fmt.Errorf("%s: %w", errorMessageLookupPixel, lookupErr)
	}

	body, encodeErr := json.Marshal(platformPayload{Data: []platformEvent{relay.transform(event, clientIP, userAgent)}})
	if encodeErr != nil {
		return Response{}, fmt.Errorf("%s: %w", errorMessageBuildRequest, encodeErr)
	}

	endpoint := relay.baseURL + "/" + url.PathEscape(platformPixelID) + "/events"
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if requestErr != nil {
		return Response{}, fmt.Errorf("%s: %w", errorMessageBuildRequest, requestErr)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+pixel.AccessToken)

	response, doErr := relay.httpClient.Do(request)
	if doErr != nil {
		metrics.RecordConversion(metrics.ConversionResultFailed)
		relay.logger.Warn(logEventForwardFailed, zap.Error(doErr), zap.String("pixel_id", platformPixelID))
		return Response{}, fmt.Errorf("%w: %v", ErrForwardFailed, doErr)
	}
	defer response.Body.Close()

	responseBody, readErr := io.ReadAll(io.LimitReader(response.Body, responseBodyLimit))
	if readErr != nil {
		metrics.RecordConversion(metrics.ConversionResultFailed)
		relay.logger.Warn(logEventForwardFailed, zap.Error(readErr), zap.String("pixel_id", platformPixelID))
		return Response{}, fmt.Errorf("%w: %v", ErrForwardFailed, readErr)
	}

	metrics.RecordConversion(metrics.ConversionResultForwarded)
	return Response{
		StatusCode:  response.StatusCode,
		ContentType: response.Header.Get("Content-Type"),
		Body:        responseBody,
	}, nil
}

func (relay *Relay) transform(event Event, clientIP string, userAgent string) platformEvent {
	eventTime := event.EventTime
	if eventTime == 0 {
		eventTime = relay.now().Unix()
	}
	actionSource := strings.TrimSpace(event.ActionSource)
	if actionSource == "" {
		actionSource = DefaultActionSource
	}

	ipAddress := strings.TrimSpace(event.UserData.ClientIPAddress)
	if ipAddress == "" {
		ipAddress = clientIP
	}
	clientUserAgent := strings.TrimSpace(event.UserData.ClientUserAgent)
	if clientUserAgent == "" {
		clientUserAgent = userAgent
	}

	return platformEvent{
		EventName:      strings.TrimSpace(event.EventName),
		EventTime:      eventTime,
		ActionSource:   actionSource,
		EventSourceURL: strings.TrimSpace(event.EventSourceURL),
		UserData: platformUserData{
			Email:           HashEmail(event.UserData.Email),
			Phone:           HashPhone(event.UserData.Phone),
			ExternalID:      HashExternalID(event.UserData.ExternalID),
			ClientIPAddress: ipAddress,
			ClientUserAgent: clientUserAgent,
		},
		CustomData: event.CustomData,
	}
}
