package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/httpapi"
	"github.com/MarkoPoloResearchLab/leadpage/internal/metrics"
	"github.com/MarkoPoloResearchLab/leadpage/internal/uploads"
)

const (
	apiRoutePrefix              = "/api"
	apiRouteLogin               = "/api/auth/login"
	apiRouteLogout              = "/api/auth/logout"
	apiRouteMe                  = "/api/auth/me"
	apiRouteLeads               = "/api/leads"
	apiRouteConsumerLeads       = "/api/leads/consumer"
	apiRoutePixels              = "/api/pixels"
	apiRouteWebhookSettings     = "/api/webhook-settings"
	apiRouteWebhookTest         = "/api/webhook-settings/test"
	apiRouteConversions         = "/api/conversions"
	apiRouteUpload              = "/api/upload"
	apiRouteUploadMultiFormat   = "/api/upload/multi-format"
	apiRoutePage                = "/api/page"
	routeMetrics                = "/metrics"
	routeSuffixID               = "/:id"
	routeSuffixReorder          = "/reorder"
	corsOriginWildcard          = "*"
	corsHeaderAuthorization     = "Authorization"
	corsHeaderContentType       = "Content-Type"
	corsMaxAge                  = 12 * time.Hour
	logEventRoutesRegistered    = "routes_registered"
	logFieldSectionRouteCount   = "sections"
	logFieldLocalUploadsEnabled = "local_uploads"
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsAllowedHeaders = []string{corsHeaderAuthorization, corsHeaderContentType}
	corsExposedHeaders = []string{corsHeaderContentType}
)

// routeHandlers groups everything the router needs.
type routeHandlers struct {
	authManager     *httpapi.AuthManager
	leads           *httpapi.LeadHandlers
	sections        *httpapi.SectionHandlers
	pixels          *httpapi.PixelHandlers
	webhookSettings *httpapi.WebhookSettingsHandlers
	conversions     *httpapi.ConversionHandlers
	uploads         *httpapi.UploadHandlers
	page            *httpapi.PageHandlers
	leadRateLimiter *httpapi.RateLimiter
	// localUploadRoot is served under /uploads when set.
	localUploadRoot string
}

// newCORSConfig allows credentials only for an explicit origin list.
func newCORSConfig(origins []string) cors.Config {
	configuration := cors.Config{
		AllowMethods:  corsAllowedMethods,
		AllowHeaders:  corsAllowedHeaders,
		ExposeHeaders: corsExposedHeaders,
		MaxAge:        corsMaxAge,
	}
	if len(origins) == 0 || containsWildcard(origins) {
		configuration.AllowOrigins = []string{corsOriginWildcard}
		configuration.AllowCredentials = false
		return configuration
	}
	configuration.AllowOrigins = origins
	configuration.AllowCredentials = true
	return configuration
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == corsOriginWildcard {
			return true
		}
	}
	return false
}

func newRouter(logger *zap.Logger, corsOrigins []string, handlers routeHandlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))
	router.Use(metrics.Middleware())
	router.Use(cors.New(newCORSConfig(corsOrigins)))

	router.GET(routeMetrics, gin.WrapH(metrics.Handler()))
	if handlers.localUploadRoot != "" {
		router.Static(uploads.LocalPublicPrefix, handlers.localUploadRoot)
	}

	registerAuthRoutes(router, handlers.authManager)
	registerLeadRoutes(router, handlers.authManager, handlers.leads, handlers.leadRateLimiter)
	registerSectionRoutes(router, handlers.authManager, handlers.sections)
	registerPixelRoutes(router, handlers.authManager, handlers.pixels)
	registerIntegrationRoutes(router, handlers)
	router.GET(apiRoutePage, handlers.page.GetPage)

	logger.Info(logEventRoutesRegistered,
		zap.Int(logFieldSectionRouteCount, len(handlers.sections.SectionNames())),
		zap.Bool(logFieldLocalUploadsEnabled, handlers.localUploadRoot != ""))
	return router
}

func registerAuthRoutes(router *gin.Engine, authManager *httpapi.AuthManager) {
	router.POST(apiRouteLogin, authManager.Login)
	router.POST(apiRouteLogout, authManager.Logout)
	router.GET(apiRouteMe, authManager.Me)
}

func registerLeadRoutes(router *gin.Engine, authManager *httpapi.AuthManager, leadHandlers *httpapi.LeadHandlers, limiter *httpapi.RateLimiter) {
	rateLimit := httpapi.RateLimit(limiter)
	router.POST(apiRouteLeads, rateLimit, leadHandlers.CreateLead)
	router.POST(apiRouteConsumerLeads, rateLimit, leadHandlers.CreateConsumerLead)

	adminGroup := router.Group(apiRouteLeads)
	adminGroup.Use(authManager.RequireAdminJSON())
	adminGroup.GET("", leadHandlers.ListLeads)
	adminGroup.GET("/stats", leadHandlers.LeadStats)
	adminGroup.GET(routeSuffixID, leadHandlers.GetLead)
	adminGroup.PUT(routeSuffixID, leadHandlers.UpdateLead)
	adminGroup.DELETE(routeSuffixID, leadHandlers.DeleteLead)
	adminGroup.GET(routeSuffixID+"/deliveries", leadHandlers.LeadDeliveries)
	adminGroup.POST(routeSuffixID+"/resend", leadHandlers.ResendLead)
}

// registerSectionRoutes exposes GET and PUT for every section, plus child routes where the section has items.
func registerSectionRoutes(router *gin.Engine, authManager *httpapi.AuthManager, sectionHandlers *httpapi.SectionHandlers) {
	requireAdmin := authManager.RequireAdminJSON()
	for _, name := range sectionHandlers.SectionNames() {
		sectionRoute := apiRoutePrefix + "/" + name
		router.GET(sectionRoute, authManager.DetectAdmin(), sectionHandlers.GetSection(name))
		router.PUT(sectionRoute, requireAdmin, sectionHandlers.UpdateSection(name))
		if !sectionHandlers.HasItems(name) {
			continue
		}
		router.POST(sectionRoute, requireAdmin, sectionHandlers.CreateItem(name))
		router.PUT(sectionRoute+routeSuffixReorder, requireAdmin, sectionHandlers.ReorderItems(name))
		router.PUT(sectionRoute+routeSuffixID, requireAdmin, sectionHandlers.UpdateItem(name))
		router.DELETE(sectionRoute+routeSuffixID, requireAdmin, sectionHandlers.DeleteItem(name))
	}
}

func registerPixelRoutes(router *gin.Engine, authManager *httpapi.AuthManager, pixelHandlers *httpapi.PixelHandlers) {
	requireAdmin := authManager.RequireAdminJSON()
	router.GET(apiRoutePixels, authManager.DetectAdmin(), pixelHandlers.ListPixels)
	router.POST(apiRoutePixels, requireAdmin, pixelHandlers.CreatePixel)
	router.PUT(apiRoutePixels+routeSuffixID, requireAdmin, pixelHandlers.UpdatePixel)
	router.DELETE(apiRoutePixels+routeSuffixID, requireAdmin, pixelHandlers.DeletePixel)
}

func registerIntegrationRoutes(router *gin.Engine, handlers routeHandlers) {
	requireAdmin := handlers.authManager.RequireAdminJSON()
	router.GET(apiRouteWebhookSettings, requireAdmin, handlers.webhookSettings.GetSettings)
	router.PUT(apiRouteWebhookSettings, requireAdmin, handlers.webhookSettings.UpdateSettings)
	router.POST(apiRouteWebhookTest, requireAdmin, handlers.webhookSettings.TestWebhook)

	router.POST(apiRouteConversions, handlers.conversions.ForwardConversion)

	router.POST(apiRouteUpload, requireAdmin, handlers.uploads.Upload)
	router.POST(apiRouteUploadMultiFormat, requireAdmin, handlers.uploads.UploadMultiFormat)
}
