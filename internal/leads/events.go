package leads

import (
	"context"
	"time"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

// Event announces a captured lead to the dispatch task.
type Event struct {
	Type       string    `json:"type"`
	LeadID     string    `json:"lead_id"`
	Name       string    `json:"name"`
	WhatsApp   string    `json:"whatsapp"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IsMerchant reports whether the event carries delivery bookkeeping.
func (event Event) IsMerchant() bool {
	return event.Type == model.LeadSourceMerchant
}

// NewEvent builds the dispatch event for a persisted lead.
func NewEvent(lead model.Lead) Event {
	occurredAt := lead.CreatedAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return Event{
		Type:       lead.Source,
		LeadID:     lead.ID,
		Name:       lead.Name,
		WhatsApp:   lead.WhatsApp,
		OccurredAt: occurredAt.UTC(),
	}
}

// EventPublisher hands lead events to the background dispatch task.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type noopEventPublisher struct{}

func (noopEventPublisher) Publish(context.Context, Event) error {
	return nil
}

func resolveEventPublisher(publisher EventPublisher) EventPublisher {
	if publisher == nil {
		return noopEventPublisher{}
	}
	return publisher
}
