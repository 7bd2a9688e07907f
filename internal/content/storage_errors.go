package content

import (
	"fmt"
	"strings"
)

var missingTableMarkers = []string{
	"no such table",
	"sqlstate 42p01",
}

func classifyStorageError(contextMessage string, err error) error {
	if isMissingTableError(err) {
		return fmt.Errorf("%w: %v", ErrTableMissing, err)
	}
	return fmt.Errorf("%s: %w", contextMessage, err)
}

func isMissingTableError(err error) bool {
	if err == nil {
		return false
	}
	lowered := strings.ToLower(err.Error())
	for _, marker := range missingTableMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
