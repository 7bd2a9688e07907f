package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/testutil"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

type recordingDeliverer struct {
	mutex   sync.Mutex
	leadIDs []string
}

func (deliverer *recordingDeliverer) Deliver(_ context.Context, event leads.Event) (webhook.Outcome, error) {
	deliverer.mutex.Lock()
	defer deliverer.mutex.Unlock()
	deliverer.leadIDs = append(deliverer.leadIDs, event.LeadID)
	return webhook.Outcome{Success: true, StatusCode: 200}, nil
}

func (deliverer *recordingDeliverer) delivered() []string {
	deliverer.mutex.Lock()
	defer deliverer.mutex.Unlock()
	return append([]string(nil), deliverer.leadIDs...)
}

func insertLead(testingT *testing.T, database *gorm.DB, name string, mutate func(*model.Lead)) model.Lead {
	testingT.Helper()
	lead, err := model.NewLead(model.LeadInput{Name: name, WhatsApp: "11999998888", HasCNPJ: model.LeadHasCNPJNo})
	require.NoError(testingT, err)
	lead.CreatedAt = time.Now().Add(-time.Hour)
	mutate(&lead)
	require.NoError(testingT, database.Create(&lead).Error)
	return lead
}

func TestRedeliveryJobSelectsFailedMerchantLeads(testingT *testing.T) {
	database := testutil.NewMigratedDatabase(testingT)

	eligible := insertLead(testingT, database, "Falhou uma vez", func(lead *model.Lead) { lead.WebhookAttempts = 1 })
	insertLead(testingT, database, "Nunca tentado", func(lead *model.Lead) {})
	insertLead(testingT, database, "Esgotado", func(lead *model.Lead) { lead.WebhookAttempts = 5 })
	insertLead(testingT, database, "Enviado", func(lead *model.Lead) {
		lead.WebhookAttempts = 2
		lead.WebhookSent = true
	})
	insertLead(testingT, database, "Antigo", func(lead *model.Lead) {
		lead.WebhookAttempts = 1
		lead.CreatedAt = time.Now().Add(-8 * 24 * time.Hour)
	})
	insertLead(testingT, database, "Consumidor", func(lead *model.Lead) {
		lead.WebhookAttempts = 1
		lead.Source = model.LeadSourceConsumer
	})

	deliverer := &recordingDeliverer{}
	job := NewRedeliveryJob(database, zap.NewNop(), deliverer, RedeliveryConfig{MaxAttempts: 5})
	require.NoError(testingT, job.Run(context.Background()))

	require.Equal(testingT, []string{eligible.ID}, deliverer.delivered())
}

func TestRedeliveryJobReportsQueryErrors(testingT *testing.T) {
	database := testutil.NewMigratedDatabase(testingT)
	sqlDatabase, err := database.DB()
	require.NoError(testingT, err)
	require.NoError(testingT, sqlDatabase.Close())

	job := NewRedeliveryJob(database, nil, &recordingDeliverer{}, RedeliveryConfig{})
	require.Error(testingT, job.Run(context.Background()))
	job.Runner()(context.Background())
}

func TestRedeliveryJobDefaults(testingT *testing.T) {
	job := NewRedeliveryJob(nil, nil, nil, RedeliveryConfig{})
	require.Equal(testingT, DefaultRedeliveryMaxAttempts, job.config.MaxAttempts)
	require.Equal(testingT, DefaultRedeliveryWindow, job.config.Window)
	require.Equal(testingT, defaultRedeliveryBatchSize, job.config.BatchSize)
}
