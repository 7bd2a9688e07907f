package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/leadpage/internal/auth"
	"github.com/MarkoPoloResearchLab/leadpage/internal/content"
	"github.com/MarkoPoloResearchLab/leadpage/internal/conversions"
	"github.com/MarkoPoloResearchLab/leadpage/internal/httpapi"
	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/notifications"
	"github.com/MarkoPoloResearchLab/leadpage/internal/queue"
	"github.com/MarkoPoloResearchLab/leadpage/internal/task"
	"github.com/MarkoPoloResearchLab/leadpage/internal/uploads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

const (
	loggerContextOpenDatabase = "open_db"
	loggerContextAutoMigrate  = "migrate"
	loggerContextServer       = "server"

	logEventListening         = "listening"
	logEventShutdown          = "shutdown"
	logEventAdminSeeded       = "admin_account_seeded"
	logEventQueueConnected    = "queue_connected"
	logEventWorkerStopped     = "queue_worker_stopped"
	logEventRedeliveryPanic   = "webhook_redelivery_panic"
	logEventRedeliveryEnabled = "webhook_redelivery_enabled"
	logFieldAddress           = "addr"
	logFieldServeMode         = "mode"
	logFieldInterval          = "interval"
	logFieldEmail             = "email"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second

	errorMessageConnectQueue = "server: connect queue"
	errorMessageEmailAlerts  = "server: configure email alerts"
	errorMessageSeedAdmin    = "server: seed admin account"
	errorMessageUploadStore  = "server: configure upload store"
	errorMessageListen       = "server: listen"
	errorMessageShutdown     = "server: shutdown"
	errorMessageQueueWorker  = "server: queue worker"
)

// leadPageServer owns the long-running parts of one process: HTTP, the queue worker and the redelivery sweep.
type leadPageServer struct {
	config   ServerConfig
	mode     ServeMode
	database *gorm.DB
	logger   *zap.Logger
}

func newLeadPageServer(config ServerConfig, mode ServeMode, database *gorm.DB, logger *zap.Logger) *leadPageServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &leadPageServer{
		config:   config,
		mode:     mode,
		database: database,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled or a component fails, then shuts everything down.
func (server *leadPageServer) Run(ctx context.Context) error {
	dispatcher, dispatcherErr := server.newDispatcher()
	if dispatcherErr != nil {
		return dispatcherErr
	}

	var connection *queue.Connection
	if server.config.AMQPURL != "" {
		dialed, dialErr := queue.Dial(server.config.AMQPURL)
		if dialErr != nil {
			return fmt.Errorf("%s: %w", errorMessageConnectQueue, dialErr)
		}
		connection = dialed
		defer connection.Close()
		server.logger.Info(logEventQueueConnected)
	}

	if scheduler := server.newRedeliveryScheduler(dispatcher); scheduler != nil {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	var workerDone chan error
	if connection != nil && server.mode.DeliversWebhooks() {
		workerDone = make(chan error, 1)
		worker := queue.NewWorker(connection.Channel(), dispatcher, server.logger, server.config.WebhookTimeout)
		go func() {
			workerDone <- worker.Run(ctx)
		}()
	}

	if !server.mode.ServesHTTP() {
		workerErr := <-workerDone
		server.logger.Info(logEventWorkerStopped, zap.Error(workerErr))
		if workerErr != nil {
			return fmt.Errorf("%s: %w", errorMessageQueueWorker, workerErr)
		}
		return nil
	}

	var publisher leads.EventPublisher
	if connection != nil {
		publisher = queue.NewProducer(connection.Channel())
	} else {
		asyncPublisher := webhook.NewAsyncPublisher(dispatcher, server.logger, server.config.WebhookTimeout)
		defer asyncPublisher.Wait()
		publisher = asyncPublisher
	}

	// Startup work completes even when a signal arrives mid-way; serveHTTP then exits at once.
	router, routerErr := server.newHTTPHandler(context.WithoutCancel(ctx), dispatcher, publisher)
	if routerErr != nil {
		return routerErr
	}
	return server.serveHTTP(ctx, router, workerDone)
}

func (server *leadPageServer) serveHTTP(ctx context.Context, handler http.Handler, workerDone <-chan error) error {
	httpServer := &http.Server{
		Addr:              server.config.ApplicationAddress,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErrors := make(chan error, 1)
	go func() {
		server.logger.Info(logEventListening, zap.String(logFieldAddress, httpServer.Addr), zap.String(logFieldServeMode, string(server.mode)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrors <- err
		}
		close(serveErrors)
	}()

	var runErr error
	select {
	case serveErr := <-serveErrors:
		if serveErr != nil {
			return fmt.Errorf("%s: %w", errorMessageListen, serveErr)
		}
		return nil
	case workerErr := <-workerDone:
		server.logger.Warn(logEventWorkerStopped, zap.Error(workerErr))
		if workerErr != nil {
			runErr = fmt.Errorf("%s: %w", errorMessageQueueWorker, workerErr)
		}
	case <-ctx.Done():
	}

	server.logger.Info(logEventShutdown)
	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownContext); shutdownErr != nil && runErr == nil {
		runErr = fmt.Errorf("%s: %w", errorMessageShutdown, shutdownErr)
	}
	return runErr
}

func (server *leadPageServer) newDispatcher() (*webhook.Dispatcher, error) {
	httpClient := &http.Client{Timeout: server.config.WebhookTimeout}
	var alerters []webhook.LeadAlerter
	if server.config.SMTP.Enabled() {
		alerter, alerterErr := notifications.NewEmailAlerter(server.config.SMTP, server.logger)
		if alerterErr != nil {
			return nil, fmt.Errorf("%s: %w", errorMessageEmailAlerts, alerterErr)
		}
		alerters = append(alerters, alerter)
	}
	return webhook.NewDispatcher(server.database, server.logger, httpClient, alerters...), nil
}

// newRedeliveryScheduler returns nil when the sweep is disabled or another process owns delivery.
func (server *leadPageServer) newRedeliveryScheduler(deliverer webhook.Deliverer) *task.Scheduler {
	if server.config.WebhookRetryInterval <= 0 || !server.mode.DeliversWebhooks() {
		return nil
	}
	job := task.NewRedeliveryJob(server.database, server.logger, deliverer, task.RedeliveryConfig{
		MaxAttempts: server.config.WebhookMaxAttempts,
	})
	server.logger.Info(logEventRedeliveryEnabled, zap.Duration(logFieldInterval, server.config.WebhookRetryInterval))
	return task.NewScheduler(server.config.WebhookRetryInterval, job.Runner()).RunImmediately().OnPanic(func(recovered error) {
		server.logger.Error(logEventRedeliveryPanic, zap.Error(recovered))
	})
}

func (server *leadPageServer) newHTTPHandler(ctx context.Context, dispatcher *webhook.Dispatcher, publisher leads.EventPublisher) (*gin.Engine, error) {
	if server.config.AdminEmail != "" && server.config.AdminPassword != "" {
		account, seedErr := auth.EnsureAdminAccount(ctx, server.database, server.config.AdminEmail, server.config.AdminPassword)
		if seedErr != nil {
			return nil, fmt.Errorf("%s: %w", errorMessageSeedAdmin, seedErr)
		}
		server.logger.Info(logEventAdminSeeded, zap.String(logFieldEmail, account.Email))
	}

	uploadStore, localUploadRoot, storeErr := server.newUploadStore(ctx)
	if storeErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageUploadStore, storeErr)
	}

	catalog := content.NewCatalog(server.database)
	sectionHandlers := httpapi.NewSectionHandlers(catalog, server.logger)
	conversionClient := &http.Client{Timeout: server.config.WebhookTimeout}
	relay := conversions.NewRelay(catalog.Pixels, conversionClient, server.config.ConversionsAPIBaseURL, server.logger)

	handlers := routeHandlers{
		authManager: httpapi.NewAuthManager(server.database, server.logger, httpapi.AuthConfig{
			SessionSecret: []byte(server.config.SessionSecret),
			BearerToken:   server.config.AdminBearerToken,
			SecureCookies: server.config.SecureCookies,
		}),
		leads:           httpapi.NewLeadHandlers(leads.NewService(server.database, server.logger, publisher), dispatcher, server.logger),
		sections:        sectionHandlers,
		pixels:          httpapi.NewPixelHandlers(catalog.Pixels, server.logger),
		webhookSettings: httpapi.NewWebhookSettingsHandlers(webhook.NewSettingsStore(server.database), dispatcher, server.logger),
		conversions:     httpapi.NewConversionHandlers(relay, server.logger),
		uploads:         httpapi.NewUploadHandlers(uploads.NewPipeline(uploadStore, server.config.UploadMaxBytes), catalog.Design, server.logger),
		page:            httpapi.NewPageHandlers(sectionHandlers, catalog.Pixels, server.logger),
		leadRateLimiter: httpapi.NewRateLimiter(httpapi.DefaultLeadRateLimit, httpapi.DefaultLeadRateWindow),
		localUploadRoot: localUploadRoot,
	}
	return newRouter(server.logger, server.config.CORSOrigins, handlers), nil
}

// newUploadStore prefers S3 when a bucket is configured; the local root is returned only for the local store.
func (server *leadPageServer) newUploadStore(ctx context.Context) (uploads.Store, string, error) {
	if server.config.S3.Bucket != "" {
		s3Store, s3Err := uploads.NewS3Store(ctx, server.config.S3)
		if s3Err != nil {
			return nil, "", s3Err
		}
		return s3Store, "", nil
	}
	localStore := uploads.NewLocalStore(server.config.UploadDirectory)
	return localStore, localStore.Root(), nil
}
