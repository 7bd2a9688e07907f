package task

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

const (
	DefaultRedeliveryMaxAttempts = 5
	DefaultRedeliveryWindow      = 7 * 24 * time.Hour
	defaultRedeliveryBatchSize   = 50
)

// RedeliveryConfig bounds which failed merchant leads are retried.
type RedeliveryConfig struct {
	MaxAttempts int
	Window      time.Duration
	BatchSize   int
}

// RedeliveryJob re-dispatches merchant leads whose webhook previously failed.
type RedeliveryJob struct {
	database  *gorm.DB
	logger    *zap.Logger
	deliverer webhook.Deliverer
	config    RedeliveryConfig
	now       func() time.Time
}

func NewRedeliveryJob(database *gorm.DB, logger *zap.Logger, deliverer webhook.Deliverer, config RedeliveryConfig) *RedeliveryJob {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRedeliveryMaxAttempts
	}
	if config.Window <= 0 {
		config.Window = DefaultRedeliveryWindow
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaultRedeliveryBatchSize
	}
	return &RedeliveryJob{
		database:  database,
		logger:    logger,
		deliverer: deliverer,
		config:    config,
		now:       time.Now,
	}
}

// Run re-dispatches one batch of eligible leads, oldest first.
func (job *RedeliveryJob) Run(ctx context.Context) error {
	cutoff := job.now().Add(-job.config.Window)
	var candidates []model.Lead
	err := job.database.WithContext(ctx).
		Where("source = ? AND webhook_sent = ?", model.LeadSourceMerchant, false).
		Where("webhook_attempts >= ? AND webhook_attempts < ?", 1, job.config.MaxAttempts).
		Where("created_at >= ?", cutoff).
		Order("created_at ASC").
		Limit(job.config.BatchSize).
		Find(&candidates).Error
	if err != nil {
		return err
	}

	redelivered := 0
	for _, lead := range candidates {
		if ctx.Err() != nil {
			break
		}
		outcome, deliverErr := job.deliverer.Deliver(ctx, leads.NewEvent(lead))
		if deliverErr != nil {
			if job.logger != nil {
				job.logger.Warn("webhook_redelivery_failed", zap.Error(deliverErr), zap.String("lead_id", lead.ID))
			}
			continue
		}
		if outcome.Success {
			redelivered++
		}
	}
	if job.logger != nil && len(candidates) > 0 {
		job.logger.Info("webhook_redelivery_pass",
			zap.Int("candidates", len(candidates)),
			zap.Int("delivered", redelivered))
	}
	return nil
}

// Runner adapts the job to a Scheduler, logging pass errors.
func (job *RedeliveryJob) Runner() RunnerFunc {
	return func(ctx context.Context) {
		if err := job.Run(ctx); err != nil && job.logger != nil {
			job.logger.Warn("webhook_redelivery_query_failed", zap.Error(err))
		}
	}
}
