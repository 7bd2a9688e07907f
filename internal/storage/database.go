package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	DriverNameSQLite   = "sqlite"
	DriverNamePostgres = "postgres"

	errorMessageOpenDatabase = "storage: open database"
	errorMessageAutoMigrate  = "storage: auto migrate"
)

var (
	ErrMissingDatabaseDriverName = errors.New("storage: missing database driver name")
	ErrUnsupportedDatabaseDriver = errors.New("storage: unsupported database driver")
	ErrMissingDataSourceName     = errors.New("storage: missing database data source name")
)

// Config selects the driver and its data source name. Both are trimmed; the driver name is case-insensitive.
type Config struct {
	DriverName     string
	DataSourceName string
}

func (configuration Config) normalized() (Config, error) {
	normalizedConfiguration := Config{
		DriverName:     strings.ToLower(strings.TrimSpace(configuration.DriverName)),
		DataSourceName: strings.TrimSpace(configuration.DataSourceName),
	}
	if normalizedConfiguration.DriverName == "" {
		return Config{}, ErrMissingDatabaseDriverName
	}
	if _, supported := dialectors[normalizedConfiguration.DriverName]; !supported {
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedDatabaseDriver, normalizedConfiguration.DriverName)
	}
	if normalizedConfiguration.DataSourceName == "" {
		return Config{}, ErrMissingDataSourceName
	}
	return normalizedConfiguration, nil
}

// OpenDatabase opens the landing page database with the configured driver.
func OpenDatabase(configuration Config) (*gorm.DB, error) {
	normalizedConfiguration, configurationErr := configuration.normalized()
	if configurationErr != nil {
		return nil, configurationErr
	}

	dialector := dialectors[normalizedConfiguration.DriverName](normalizedConfiguration.DataSourceName)
	database, openErr := gorm.Open(dialector, &gorm.Config{})
	if openErr != nil {
		return nil, fmt.Errorf("%s (%s): %w", errorMessageOpenDatabase, normalizedConfiguration.DriverName, openErr)
	}
	return database, nil
}

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&model.Lead{},
		&model.WebhookSettings{},
		&model.WebhookDelivery{},
		&model.AdminUser{},
		&model.Pixel{},
		&model.HeroSection{},
		&model.DesignSettings{},
		&model.FAQSection{},
		&model.FAQItem{},
		&model.FooterSettings{},
		&model.FooterLink{},
		&model.AboutSection{},
		&model.AboutStat{},
		&model.TestimonialsSection{},
		&model.Testimonial{},
		&model.ShowroomSection{},
		&model.ShowroomItem{},
		&model.ProductGallerySection{},
		&model.ProductGalleryItem{},
		&model.FormContent{},
		&model.SEOSettings{},
	}
}

// AutoMigrate creates or updates every table and seeds the singleton rows.
func AutoMigrate(database *gorm.DB) error {
	if err := database.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("%s: %w", errorMessageAutoMigrate, err)
	}
	return seedSingletonRows(database)
}

func NewID() string {
	return uuid.NewString()
}
