package main

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidServeMode = errors.New("invalid serve mode")

type ServeMode string

const (
	ServeModeMonolith ServeMode = "monolith"
	ServeModeAPI      ServeMode = "api"
	ServeModeWorker   ServeMode = "worker"
)

func ParseServeMode(rawInput string) (ServeMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawInput))
	if normalized == "" {
		return ServeModeMonolith, nil
	}

	mode := ServeMode(normalized)
	switch mode {
	case ServeModeMonolith, ServeModeAPI, ServeModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidServeMode, rawInput)
	}
}

// ServesHTTP reports whether the mode runs the HTTP API.
func (mode ServeMode) ServesHTTP() bool {
	return mode != ServeModeWorker
}

// RequiresQueue reports whether the mode cannot run without a broker.
func (mode ServeMode) RequiresQueue() bool {
	return mode == ServeModeAPI || mode == ServeModeWorker
}

// DeliversWebhooks reports whether the mode runs webhook delivery itself: the queue worker when a broker
// is configured and the redelivery sweep.
func (mode ServeMode) DeliversWebhooks() bool {
	return mode == ServeModeMonolith || mode == ServeModeWorker
}
