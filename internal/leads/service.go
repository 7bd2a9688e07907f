package leads

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/metrics"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	statsWindow     = 7 * 24 * time.Hour
	minSearchDigits = 4

	errorMessageSaveLead       = "leads: save lead"
	errorMessageListLeads      = "leads: list leads"
	errorMessageGetLead        = "leads: get lead"
	errorMessageUpdateLead     = "leads: update lead"
	errorMessageDeleteLead     = "leads: delete lead"
	errorMessageLeadStats      = "leads: stats"
	errorMessageListDeliveries = "leads: list deliveries"

	logEventPublishFailed = "lead_event_publish_failed"
)

var (
	ErrLeadNotFound    = errors.New("lead_not_found")
	ErrNothingToUpdate = errors.New("nothing_to_update")
)

// Service persists leads and hands them to the dispatch task.
type Service struct {
	database  *gorm.DB
	logger    *zap.Logger
	publisher EventPublisher
}

func NewService(database *gorm.DB, logger *zap.Logger, publisher EventPublisher) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		database:  database,
		logger:    logger,
		publisher: resolveEventPublisher(publisher),
	}
}

// CreateLead validates and stores a merchant lead, then publishes it for dispatch.
func (service *Service) CreateLead(ctx context.Context, input model.LeadInput) (model.Lead, error) {
	lead, err := model.NewLead(input)
	if err != nil {
		return model.Lead{}, err
	}
	return service.persistAndPublish(ctx, lead)
}

// CreateConsumerLead stores a consumer lead and publishes the consumer event.
func (service *Service) CreateConsumerLead(ctx context.Context, input model.ConsumerLeadInput) (model.Lead, error) {
	lead, err := model.NewConsumerLead(input)
	if err != nil {
		return model.Lead{}, err
	}
	return service.persistAndPublish(ctx, lead)
}

func (service *Service) persistAndPublish(ctx context.Context, lead model.Lead) (model.Lead, error) {
	if err := service.database.WithContext(ctx).Create(&lead).Error; err != nil {
		return model.Lead{}, fmt.Errorf("%s: %w", errorMessageSaveLead, err)
	}
	metrics.RecordLeadCreated(lead.Source)

	if publishErr := service.publisher.Publish(ctx, NewEvent(lead)); publishErr != nil {
		service.logger.Warn(logEventPublishFailed,
			zap.Error(publishErr),
			zap.String("lead_id", lead.ID),
			zap.String("lead_type", lead.Source))
	}
	return lead, nil
}

// ListQuery filters and paginates the admin lead listing.
type ListQuery struct {
	Page   int
	Limit  int
	Status string
	Type   string
	Search string
}

// Pagination describes the page returned by List.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListResult is one page of leads, newest first.
type ListResult struct {
	Leads      []model.Lead `json:"leads"`
	Pagination Pagination   `json:"pagination"`
}

func (query ListQuery) normalized() ListQuery {
	if query.Page < 1 {
		query.Page = 1
	}
	switch {
	case query.Limit < 1:
		query.Limit = DefaultPageLimit
	case query.Limit > MaxPageLimit:
		query.Limit = MaxPageLimit
	}
	query.Status = strings.ToLower(strings.TrimSpace(query.Status))
	query.Type = strings.ToLower(strings.TrimSpace(query.Type))
	query.Search = strings.TrimSpace(query.Search)
	return query
}

func (service *Service) List(ctx context.Context, query ListQuery) (ListResult, error) {
	query = query.normalized()

	filtered := service.database.WithContext(ctx).Model(&model.Lead{})
	if query.Status != "" {
		filtered = filtered.Where("status = ?", query.Status)
	}
	if query.Type != "" {
		filtered = filtered.Where("source = ?", query.Type)
	}
	if query.Search != "" {
		pattern := "%" + strings.ToLower(query.Search) + "%"
		digitPattern := pattern
		if digits := model.DigitsOnly(query.Search); len(digits) >= minSearchDigits {
			digitPattern = "%" + digits + "%"
		}
		filtered = filtered.Where("LOWER(name) LIKE ? OR whatsapp LIKE ?", pattern, digitPattern)
	}

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return ListResult{}, fmt.Errorf("%s: %w", errorMessageListLeads, err)
	}

	leads := make([]model.Lead, 0, query.Limit)
	err := filtered.Session(&gorm.Session{}).
		Order("created_at DESC").
		Limit(query.Limit).
		Offset((query.Page - 1) * query.Limit).
		Find(&leads).Error
	if err != nil {
		return ListResult{}, fmt.Errorf("%s: %w", errorMessageListLeads, err)
	}

	return ListResult{
		Leads: leads,
		Pagination: Pagination{
			Page:       query.Page,
			Limit:      query.Limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(query.Limit))),
		},
	}, nil
}

func (service *Service) Get(ctx context.Context, leadID string) (model.Lead, error) {
	var lead model.Lead
	if err := service.database.WithContext(ctx).First(&lead, "id = ?", leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Lead{}, ErrLeadNotFound
		}
		return model.Lead{}, fmt.Errorf("%s: %w", errorMessageGetLead, err)
	}
	return lead, nil
}

// LeadUpdate is the typed admin patch. Nil fields are left untouched.
type LeadUpdate struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

func (service *Service) Update(ctx context.Context, leadID string, update LeadUpdate) (model.Lead, error) {
	columns := map[string]any{}
	if update.Status != nil {
		status, err := model.NormalizeLeadStatus(*update.Status)
		if err != nil {
			return model.Lead{}, err
		}
		columns[model.LeadFieldStatus] = status
	}
	if update.Notes != nil {
		notes, err := model.NormalizeLeadNotes(*update.Notes)
		if err != nil {
			return model.Lead{}, err
		}
		columns[model.LeadFieldNotes] = notes
	}
	if len(columns) == 0 {
		return model.Lead{}, ErrNothingToUpdate
	}

	result := service.database.WithContext(ctx).Model(&model.Lead{}).Where("id = ?", leadID).Updates(columns)
	if result.Error != nil {
		return model.Lead{}, fmt.Errorf("%s: %w", errorMessageUpdateLead, result.Error)
	}
	if result.RowsAffected == 0 {
		return model.Lead{}, ErrLeadNotFound
	}
	return service.Get(ctx, leadID)
}

// Delete removes the lead together with its delivery log.
func (service *Service) Delete(ctx context.Context, leadID string) error {
	return service.database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Where("lead_id = ?", leadID).Delete(&model.WebhookDelivery{}).Error; err != nil {
			return fmt.Errorf("%s: %w", errorMessageDeleteLead, err)
		}
		result := transaction.Where("id = ?", leadID).Delete(&model.Lead{})
		if result.Error != nil {
			return fmt.Errorf("%s: %w", errorMessageDeleteLead, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrLeadNotFound
		}
		return nil
	})
}

// Deliveries returns the webhook audit log for a lead, newest first.
func (service *Service) Deliveries(ctx context.Context, leadID string) ([]model.WebhookDelivery, error) {
	if _, err := service.Get(ctx, leadID); err != nil {
		return nil, err
	}
	deliveries := make([]model.WebhookDelivery, 0)
	err := service.database.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&deliveries).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageListDeliveries, err)
	}
	return deliveries, nil
}

// WebhookStats summarises merchant delivery bookkeeping.
type WebhookStats struct {
	Sent    int64 `json:"sent"`
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
	ByType    map[string]int64 `json:"by_type"`
	Webhook   WebhookStats     `json:"webhook"`
	LastSeven int64            `json:"last_7_days"`
}

type groupCount struct {
	GroupKey   string
	GroupCount int64
}

func (service *Service) Stats(ctx context.Context) (Stats, error) {
	database := service.database.WithContext(ctx)
	stats := Stats{
		ByStatus: make(map[string]int64),
		ByType: map[string]int64{
			model.LeadSourceMerchant: 0,
			model.LeadSourceConsumer: 0,
		},
	}
	for _, status := range model.LeadStatuses() {
		stats.ByStatus[status] = 0
	}

	if err := database.Model(&model.Lead{}).Count(&stats.Total).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: %w", errorMessageLeadStats, err)
	}

	var statusCounts []groupCount
	if err := database.Model(&model.Lead{}).Select("status AS group_key, COUNT(*) AS group_count").Group("status").Scan(&statusCounts).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: %w", errorMessageLeadStats, err)
	}
	for _, statusCount := range statusCounts {
		stats.ByStatus[statusCount.GroupKey] = statusCount.GroupCount
	}

	var typeCounts []groupCount
	if err := database.Model(&model.Lead{}).Select("source AS group_key, COUNT(*) AS group_count").Group("source").Scan(&typeCounts).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: %w", errorMessageLeadStats, err)
	}
	for _, typeCount := range typeCounts {
		stats.ByType[typeCount.GroupKey] = typeCount.GroupCount
	}

	merchants := func() *gorm.DB {
		return database.Model(&model.Lead{}).Where("source = ?", model.LeadSourceMerchant)
	}
	if err := merchants().Where("webhook_sent = ?", true).Count(&stats.Webhook.Sent).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: %w", errorMessageLeadStats, err)
	}
	if err := merchants().Where("webhook_sent = ? AND webhook_attempts = ?", false, 0).Count(&stats.Webhook.Pending).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: %w", errorMessageLeadStats, err)
	}
	if err := merchants().Where("webhook_sent = ? AND webhook_attempts > ?", false, 0).Count(&stats.Webhook.Failed).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: %w", errorMessageLeadStats, err)
	}

	since := time.Now().Add(-statsWindow)
	if err := database.Model(&model.Lead{}).Where("created_at >= ?", since).Count(&stats.LastSeven).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: %w", errorMessageLeadStats, err)
	}
	return stats, nil
}
