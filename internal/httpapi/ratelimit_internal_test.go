package httpapi

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindows(testingT *testing.T) {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, 30*time.Second)
	limiter.now = func() time.Time { return current }

	require.True(testingT, limiter.Allow("198.51.100.1"))
	require.True(testingT, limiter.Allow("198.51.100.1"))
	require.False(testingT, limiter.Allow("198.51.100.1"))
	require.True(testingT, limiter.Allow("198.51.100.2"))

	current = current.Add(29 * time.Second)
	require.False(testingT, limiter.Allow("198.51.100.1"))

	current = current.Add(time.Second)
	require.True(testingT, limiter.Allow("198.51.100.1"))
}

func TestRateLimiterPrunesExpiredWindows(testingT *testing.T) {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return current }

	for index := 0; index < rateLimiterPruneThreshold; index++ {
		require.True(testingT, limiter.Allow(fmt.Sprintf("10.0.%d.%d", index/256, index%256)))
	}
	require.Len(testingT, limiter.windows, rateLimiterPruneThreshold)

	current = current.Add(2 * time.Minute)
	require.True(testingT, limiter.Allow("192.0.2.1"))
	require.Len(testingT, limiter.windows, 1)
}

func TestNewRateLimiterDefaults(testingT *testing.T) {
	limiter := NewRateLimiter(0, 0)
	require.Equal(testingT, DefaultLeadRateLimit, limiter.limit)
	require.Equal(testingT, DefaultLeadRateWindow, limiter.window)
}
