package webhook

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
)

const (
	DefaultDispatchTimeout = 10 * time.Second

	logEventDeliverFailed = "webhook_deliver_failed"
)

// Deliverer is satisfied by *Dispatcher.
type Deliverer interface {
	Deliver(ctx context.Context, event leads.Event) (Outcome, error)
}

// AsyncPublisher dispatches each event on its own goroutine, detached from the request.
type AsyncPublisher struct {
	deliverer Deliverer
	logger    *zap.Logger
	timeout   time.Duration
	waitGroup sync.WaitGroup
}

func NewAsyncPublisher(deliverer Deliverer, logger *zap.Logger, timeout time.Duration) *AsyncPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &AsyncPublisher{
		deliverer: deliverer,
		logger:    logger,
		timeout:   timeout,
	}
}

// Publish never blocks on the webhook and never reports its outcome.
func (publisher *AsyncPublisher) Publish(ctx context.Context, event leads.Event) error {
	publisher.waitGroup.Add(1)
	go func() {
		defer publisher.waitGroup.Done()
		dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publisher.timeout)
		defer cancel()
		if _, err := publisher.deliverer.Deliver(dispatchCtx, event); err != nil {
			publisher.logger.Warn(logEventDeliverFailed, zap.Error(err), zap.String("lead_id", event.LeadID))
		}
	}()
	return nil
}

// Wait blocks until every in-flight dispatch has finished.
func (publisher *AsyncPublisher) Wait() {
	publisher.waitGroup.Wait()
}
