package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/storage"
	"github.com/MarkoPoloResearchLab/leadpage/internal/testutil"
)

const (
	testLeadNameValue                = "Maria Souza"
	testLeadWhatsAppValue            = "11988887777"
	testUnsupportedDriverName        = "unsupported-driver"
	testUnsupportedDriverDescription = "unsupported driver"
	testMissingDriverDescription     = "missing driver"
	testMissingDataSourceDescription = "missing data source"
	testHeroTitleValue               = "Custom hero"
)

func TestOpenDatabaseWithSQLiteConfiguration(t *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(t)

	database, openErr := storage.OpenDatabase(sqliteDatabase.Configuration())
	require.NoError(t, openErr)
	database = testutil.ConfigureDatabaseLogger(t, database)
	require.NotNil(t, database)

	require.NoError(t, storage.AutoMigrate(database))

	lead, leadErr := model.NewLead(model.LeadInput{
		Name:     testLeadNameValue,
		WhatsApp: testLeadWhatsAppValue,
		HasCNPJ:  model.LeadHasCNPJNo,
	})
	require.NoError(t, leadErr)
	require.NoError(t, database.Create(&lead).Error)

	var fetchedLead model.Lead
	require.NoError(t, database.First(&fetchedLead, "id = ?", lead.ID).Error)
	require.Equal(t, testLeadNameValue, fetchedLead.Name)
	require.Equal(t, model.LeadStatusNew, fetchedLead.Status)
	require.False(t, fetchedLead.WebhookSent)
	require.Zero(t, fetchedLead.WebhookAttempts)
}

func TestAutoMigrateSeedsSingletonsOnce(t *testing.T) {
	database := testutil.NewMigratedDatabase(t)

	require.NoError(t, database.Model(&model.HeroSection{}).Where("id = ?", model.DefaultSectionID).Update("title", testHeroTitleValue).Error)

	require.NoError(t, storage.AutoMigrate(database))

	var heroCount int64
	require.NoError(t, database.Model(&model.HeroSection{}).Count(&heroCount).Error)
	require.Equal(t, int64(1), heroCount)

	var hero model.HeroSection
	require.NoError(t, database.First(&hero, "id = ?", model.DefaultSectionID).Error)
	require.Equal(t, testHeroTitleValue, hero.Title)
	require.True(t, hero.IsActive)

	var settings model.WebhookSettings
	require.NoError(t, database.First(&settings, "id = ?", model.WebhookSettingsID).Error)
	require.False(t, settings.WebhookEnabled)
	require.False(t, settings.Active())
}

func TestAutoMigrateCreatesEveryTable(t *testing.T) {
	database := testutil.NewMigratedDatabase(t)
	for _, persistedModel := range storage.Models() {
		require.True(t, database.Migrator().HasTable(persistedModel))
	}
}

func TestOpenDatabaseValidation(t *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(t)

	testCases := []struct {
		name              string
		configuration     storage.Config
		expectedRootError error
	}{
		{
			name: testMissingDriverDescription,
			configuration: storage.Config{
				DriverName:     "",
				DataSourceName: sqliteDatabase.DataSourceName(),
			},
			expectedRootError: storage.ErrMissingDatabaseDriverName,
		},
		{
			name: testUnsupportedDriverDescription,
			configuration: storage.Config{
				DriverName:     testUnsupportedDriverName,
				DataSourceName: sqliteDatabase.DataSourceName(),
			},
			expectedRootError: storage.ErrUnsupportedDatabaseDriver,
		},
		{
			name: testMissingDataSourceDescription,
			configuration: storage.Config{
				DriverName:     storage.DriverNameSQLite,
				DataSourceName: "",
			},
			expectedRootError: storage.ErrMissingDataSourceName,
		},
		{
			name: "missing postgres data source",
			configuration: storage.Config{
				DriverName:     storage.DriverNamePostgres,
				DataSourceName: "  ",
			},
			expectedRootError: storage.ErrMissingDataSourceName,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingT *testing.T) {
			_, openErr := storage.OpenDatabase(testCase.configuration)
			require.Error(testingT, openErr)
			require.True(testingT, errors.Is(openErr, testCase.expectedRootError))
		})
	}
}

func TestLeadWebhookCounterIncrementsAtomically(t *testing.T) {
	database := testutil.NewMigratedDatabase(t)

	lead, leadErr := model.NewLead(model.LeadInput{
		Name:     testLeadNameValue,
		WhatsApp: testLeadWhatsAppValue,
		HasCNPJ:  model.LeadHasCNPJYes,
	})
	require.NoError(t, leadErr)
	require.NoError(t, database.Create(&lead).Error)

	for attempt := 0; attempt < 3; attempt++ {
		require.NoError(t, storage.IncrementWebhookAttempts(database, lead.ID))
	}

	var fetchedLead model.Lead
	require.NoError(t, database.First(&fetchedLead, "id = ?", lead.ID).Error)
	require.Equal(t, 3, fetchedLead.WebhookAttempts)

	marked, markErr := storage.MarkWebhookSent(database, lead.ID)
	require.NoError(t, markErr)
	require.True(t, marked)

	markedAgain, markAgainErr := storage.MarkWebhookSent(database, lead.ID)
	require.NoError(t, markAgainErr)
	require.False(t, markedAgain)
}
