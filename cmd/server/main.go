package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/conversions"
	"github.com/MarkoPoloResearchLab/leadpage/internal/notifications"
	"github.com/MarkoPoloResearchLab/leadpage/internal/storage"
	"github.com/MarkoPoloResearchLab/leadpage/internal/task"
	"github.com/MarkoPoloResearchLab/leadpage/internal/uploads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

const (
	commandUseName               = "server"
	commandShortDescription      = "Run the landing page server"
	commandLongDescription       = "Serve the landing page content API, capture leads and dispatch them to the configured webhook"
	missingConfigurationMessage  = "missing required configuration"
	loggerCreationErrorMessage   = "logger"
	unexpectedArgumentsMessage   = "unexpected command arguments"
	commandInitializationFailure = "failed to configure command"
	flagNotDefinedMessage        = "flag %s not defined"
	environmentConfigurationErr  = "failed to apply environment configuration"
	environmentFileErrorMessage  = "failed to load environment file"
	defaultEnvironmentFile       = ".env"

	flagNameApplicationAddress    = "app-addr"
	flagNameServeMode             = "serve-mode"
	flagNameDatabaseDriver        = "db-driver"
	flagNameDatabaseDataSource    = "db-dsn"
	flagNameSessionSecret         = "session-secret"
	flagNameAdminBearerToken      = "admin-bearer-token"
	flagNameAdminEmail            = "admin-email"
	flagNameAdminPassword         = "admin-password"
	flagNameCORSOrigins           = "cors-origins"
	flagNameSecureCookies         = "secure-cookies"
	flagNameAMQPURL               = "amqp-url"
	flagNameWebhookTimeout        = "webhook-timeout"
	flagNameWebhookRetryInterval  = "webhook-retry-interval"
	flagNameWebhookMaxAttempts    = "webhook-max-attempts"
	flagNameConversionsAPIBaseURL = "conversions-api-base-url"
	flagNameUploadDirectory       = "upload-dir"
	flagNameUploadMaxBytes        = "upload-max-bytes"
	flagNameS3Bucket              = "s3-bucket"
	flagNameS3Region              = "s3-region"
	flagNameS3Endpoint            = "s3-endpoint"
	flagNameS3PublicBaseURL       = "s3-public-base-url"
	flagNameSMTPHost              = "smtp-host"
	flagNameSMTPPort              = "smtp-port"
	flagNameSMTPUsername          = "smtp-username"
	flagNameSMTPPassword          = "smtp-password"
	flagNameSMTPFrom              = "smtp-from"
	flagNameLeadAlertEmail        = "lead-alert-email"

	environmentKeyApplicationAddress    = "APP_ADDR"
	environmentKeyServeMode             = "SERVE_MODE"
	environmentKeyDatabaseDriver        = "DB_DRIVER"
	environmentKeyDatabaseDataSource    = "DB_DSN"
	environmentKeySessionSecret         = "SESSION_SECRET"
	environmentKeyAdminBearerToken      = "ADMIN_BEARER_TOKEN"
	environmentKeyAdminEmail            = "ADMIN_EMAIL"
	environmentKeyAdminPassword         = "ADMIN_PASSWORD"
	environmentKeyCORSOrigins           = "CORS_ORIGINS"
	environmentKeySecureCookies         = "SECURE_COOKIES"
	environmentKeyAMQPURL               = "AMQP_URL"
	environmentKeyWebhookTimeout        = "WEBHOOK_TIMEOUT"
	environmentKeyWebhookRetryInterval  = "WEBHOOK_RETRY_INTERVAL"
	environmentKeyWebhookMaxAttempts    = "WEBHOOK_MAX_ATTEMPTS"
	environmentKeyConversionsAPIBaseURL = "CONVERSIONS_API_BASE_URL"
	environmentKeyUploadDirectory       = "UPLOAD_DIR"
	environmentKeyUploadMaxBytes        = "UPLOAD_MAX_BYTES"
	environmentKeyS3Bucket              = "S3_BUCKET"
	environmentKeyS3Region              = "S3_REGION"
	environmentKeyS3Endpoint            = "S3_ENDPOINT"
	environmentKeyS3PublicBaseURL       = "S3_PUBLIC_BASE_URL"
	environmentKeySMTPHost              = "SMTP_HOST"
	environmentKeySMTPPort              = "SMTP_PORT"
	environmentKeySMTPUsername          = "SMTP_USERNAME"
	environmentKeySMTPPassword          = "SMTP_PASSWORD"
	environmentKeySMTPFrom              = "SMTP_FROM"
	environmentKeyLeadAlertEmail        = "LEAD_ALERT_EMAIL"

	defaultApplicationAddress = ":8080"
	defaultCORSOrigins        = corsOriginWildcard
	defaultUploadDirectory    = "uploads"
	defaultSMTPPort           = 587
)

// configurationOption ties one flag to its environment key. The default's type selects the flag type.
type configurationOption struct {
	flagName       string
	environmentKey string
	defaultValue   any
	usage          string
}

var configurationOptions = []configurationOption{
	{flagNameApplicationAddress, environmentKeyApplicationAddress, defaultApplicationAddress, "address for the HTTP server to listen on"},
	{flagNameServeMode, environmentKeyServeMode, string(ServeModeMonolith), "monolith, api or worker"},
	{flagNameDatabaseDriver, environmentKeyDatabaseDriver, storage.DriverNameSQLite, "database driver (sqlite or postgres)"},
	{flagNameDatabaseDataSource, environmentKeyDatabaseDataSource, "", "database data source name"},
	{flagNameSessionSecret, environmentKeySessionSecret, "", "secret used to sign admin session cookies"},
	{flagNameAdminBearerToken, environmentKeyAdminBearerToken, "", "optional bearer token accepted on admin routes"},
	{flagNameAdminEmail, environmentKeyAdminEmail, "", "admin account seeded at startup"},
	{flagNameAdminPassword, environmentKeyAdminPassword, "", "password for the seeded admin account"},
	{flagNameCORSOrigins, environmentKeyCORSOrigins, defaultCORSOrigins, "comma-separated allowed CORS origins"},
	{flagNameSecureCookies, environmentKeySecureCookies, false, "mark the admin session cookie as Secure"},
	{flagNameAMQPURL, environmentKeyAMQPURL, "", "RabbitMQ URL enabling queued webhook dispatch"},
	{flagNameWebhookTimeout, environmentKeyWebhookTimeout, webhook.DefaultDispatchTimeout, "timeout for outbound webhook and Conversions API calls"},
	{flagNameWebhookRetryInterval, environmentKeyWebhookRetryInterval, time.Duration(0), "interval of the failed webhook redelivery sweep (0 disables it)"},
	{flagNameWebhookMaxAttempts, environmentKeyWebhookMaxAttempts, task.DefaultRedeliveryMaxAttempts, "attempt ceiling for webhook redelivery"},
	{flagNameConversionsAPIBaseURL, environmentKeyConversionsAPIBaseURL, conversions.DefaultBaseURL, "Conversions API base URL"},
	{flagNameUploadDirectory, environmentKeyUploadDirectory, defaultUploadDirectory, "local directory for uploaded images"},
	{flagNameUploadMaxBytes, environmentKeyUploadMaxBytes, uploads.DefaultMaxBytes, "maximum upload size in bytes"},
	{flagNameS3Bucket, environmentKeyS3Bucket, "", "S3 bucket for uploads (local storage when empty)"},
	{flagNameS3Region, environmentKeyS3Region, "", "S3 region"},
	{flagNameS3Endpoint, environmentKeyS3Endpoint, "", "endpoint of an S3-compatible service"},
	{flagNameS3PublicBaseURL, environmentKeyS3PublicBaseURL, "", "public base URL of uploaded objects"},
	{flagNameSMTPHost, environmentKeySMTPHost, "", "SMTP host for lead alerts"},
	{flagNameSMTPPort, environmentKeySMTPPort, defaultSMTPPort, "SMTP port"},
	{flagNameSMTPUsername, environmentKeySMTPUsername, "", "SMTP username"},
	{flagNameSMTPPassword, environmentKeySMTPPassword, "", "SMTP password"},
	{flagNameSMTPFrom, environmentKeySMTPFrom, "", "sender address of lead alerts"},
	{flagNameLeadAlertEmail, environmentKeyLeadAlertEmail, "", "recipient of lead alerts"},
}

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress     string
	ServeMode              string
	DatabaseDriverName     string
	DatabaseDataSourceName string
	SessionSecret          string
	AdminBearerToken       string
	AdminEmail             string
	AdminPassword          string
	CORSOrigins            []string
	SecureCookies          bool
	AMQPURL                string
	WebhookTimeout         time.Duration
	WebhookRetryInterval   time.Duration
	WebhookMaxAttempts     int
	ConversionsAPIBaseURL  string
	UploadDirectory        string
	UploadMaxBytes         int64
	S3                     uploads.S3Config
	SMTP                   notifications.SMTPConfig
}

// DatabaseOpener opens a database connection for the configured driver.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
	environmentFiles    []string
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
		environmentFiles:    []string{defaultEnvironmentFile},
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// WithEnvironmentFiles replaces the dotenv files loaded before flags are configured.
func (application *ServerApplication) WithEnvironmentFiles(paths ...string) *ServerApplication {
	application.environmentFiles = paths
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	if loadErr := application.loadEnvironmentFiles(); loadErr != nil {
		return nil, loadErr
	}

	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

// loadEnvironmentFiles never overrides variables already present in the process environment.
func (application *ServerApplication) loadEnvironmentFiles() error {
	for _, path := range application.environmentFiles {
		if loadErr := godotenv.Load(path); loadErr != nil {
			if errors.Is(loadErr, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s %s: %w", environmentFileErrorMessage, path, loadErr)
		}
	}
	return nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.AutomaticEnv()
	commandFlags := command.Flags()

	for _, option := range configurationOptions {
		application.configurationLoader.SetDefault(option.environmentKey, option.defaultValue)

		switch defaultValue := option.defaultValue.(type) {
		case string:
			commandFlags.String(option.flagName, defaultValue, option.usage)
		case bool:
			commandFlags.Bool(option.flagName, defaultValue, option.usage)
		case int:
			commandFlags.Int(option.flagName, defaultValue, option.usage)
		case int64:
			commandFlags.Int64(option.flagName, defaultValue, option.usage)
		case time.Duration:
			commandFlags.Duration(option.flagName, defaultValue, option.usage)
		default:
			return fmt.Errorf(flagNotDefinedMessage, option.flagName)
		}

		if bindErr := application.bindFlag(commandFlags, option.environmentKey, option.flagName); bindErr != nil {
			return bindErr
		}
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, option.environmentKey, option.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationErr, setErr)
	}

	return nil
}

func (application *ServerApplication) loadServerConfig() ServerConfig {
	loader := application.configurationLoader
	trimmed := func(key string) string {
		return strings.TrimSpace(loader.GetString(key))
	}
	return ServerConfig{
		ApplicationAddress:     trimmed(environmentKeyApplicationAddress),
		ServeMode:              trimmed(environmentKeyServeMode),
		DatabaseDriverName:     trimmed(environmentKeyDatabaseDriver),
		DatabaseDataSourceName: trimmed(environmentKeyDatabaseDataSource),
		SessionSecret:          trimmed(environmentKeySessionSecret),
		AdminBearerToken:       trimmed(environmentKeyAdminBearerToken),
		AdminEmail:             trimmed(environmentKeyAdminEmail),
		AdminPassword:          loader.GetString(environmentKeyAdminPassword),
		CORSOrigins:            splitList(loader.GetString(environmentKeyCORSOrigins)),
		SecureCookies:          loader.GetBool(environmentKeySecureCookies),
		AMQPURL:                trimmed(environmentKeyAMQPURL),
		WebhookTimeout:         loader.GetDuration(environmentKeyWebhookTimeout),
		WebhookRetryInterval:   loader.GetDuration(environmentKeyWebhookRetryInterval),
		WebhookMaxAttempts:     loader.GetInt(environmentKeyWebhookMaxAttempts),
		ConversionsAPIBaseURL:  trimmed(environmentKeyConversionsAPIBaseURL),
		UploadDirectory:        trimmed(environmentKeyUploadDirectory),
		UploadMaxBytes:         loader.GetInt64(environmentKeyUploadMaxBytes),
		S3: uploads.S3Config{
			Bucket:        trimmed(environmentKeyS3Bucket),
			Region:        trimmed(environmentKeyS3Region),
			Endpoint:      trimmed(environmentKeyS3Endpoint),
			PublicBaseURL: trimmed(environmentKeyS3PublicBaseURL),
		},
		SMTP: notifications.SMTPConfig{
			Host:      trimmed(environmentKeySMTPHost),
			Port:      loader.GetInt(environmentKeySMTPPort),
			Username:  trimmed(environmentKeySMTPUsername),
			Password:  loader.GetString(environmentKeySMTPPassword),
			From:      trimmed(environmentKeySMTPFrom),
			Recipient: trimmed(environmentKeyLeadAlertEmail),
		},
	}
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.loadServerConfig()
	serveMode, modeErr := ParseServeMode(serverConfig.ServeMode)
	if modeErr != nil {
		return modeErr
	}

	if validationErr := application.ensureRequiredConfiguration(serverConfig, serveMode); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := application.databaseOpener(storage.Config{
		DriverName:     serverConfig.DatabaseDriverName,
		DataSourceName: serverConfig.DatabaseDataSourceName,
	})
	if databaseErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.Error(databaseErr))
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Fatal(loggerContextAutoMigrate, zap.Error(migrateErr))
	}

	parentContext := command.Context()
	if parentContext == nil {
		parentContext = context.Background()
	}
	signalContext, stop := signal.NotifyContext(parentContext, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := newLeadPageServer(serverConfig, serveMode, database, logger)
	if runErr := server.Run(signalContext); runErr != nil {
		logger.Fatal(loggerContextServer, zap.Error(runErr))
	}
	return nil
}

// ensureRequiredConfiguration reports every missing key for the selected serve mode at once.
func (application *ServerApplication) ensureRequiredConfiguration(configuration ServerConfig, serveMode ServeMode) error {
	var missingParameters []string

	if configuration.DatabaseDataSourceName == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDataSource)
	}

	if serveMode.ServesHTTP() && configuration.SessionSecret == "" {
		missingParameters = append(missingParameters, flagNameSessionSecret)
	}

	if serveMode.RequiresQueue() && configuration.AMQPURL == "" {
		missingParameters = append(missingParameters, flagNameAMQPURL)
	}

	if (configuration.AdminEmail == "") != (configuration.AdminPassword == "") {
		if configuration.AdminEmail == "" {
			missingParameters = append(missingParameters, flagNameAdminEmail)
		} else {
			missingParameters = append(missingParameters, flagNameAdminPassword)
		}
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func splitList(rawList string) []string {
	var values []string
	for _, value := range strings.Split(rawList, ",") {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
