// Package router provides HTTP routing, middleware configuration, and server setup for the storefront API
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/app/handlers"
	"github.com/dropsource/storefront/app/middleware"
	"github.com/dropsource/storefront/config"
	"github.com/dropsource/storefront/utils"
)

const apiPrefix = "/api/v1"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown() error
	GetApp() *fiber.App
}

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Health  handlers.HealthHandlerInterface
	Catalog handlers.CatalogHandlerInterface
	Wallet  handlers.WalletHandlerInterface
	Deposit handlers.DepositHandlerInterface
	Order   handlers.OrderHandlerInterface
	Webhook handlers.WebhookHandlerInterface
	Admin   handlers.AdminHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ProductionConfig
	handlers Handlers
	identity *middleware.IdentityMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, identity *middleware.IdentityMiddleware) Router {
	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1024 * 1024
	}

	fiberCfg := fiber.Config{
		AppName:      "Storefront API",
		ServerHeader: "storefront",
		ErrorHandler: errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	}
	if cfg.Server.ProxyHeader != "" {
		fiberCfg.ProxyHeader = cfg.Server.ProxyHeader
	}

	return &FiberRouter{
		app:      fiber.New(fiberCfg),
		cfg:      cfg,
		handlers: h,
		identity: identity,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Info("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.metricsPath(), adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group(apiPrefix)

	// Probes (no rate limiting)
	api.Get("/health", r.handlers.Health.Health)
	api.Get("/ping", r.handlers.Health.Ping)

	api.Use(r.rateLimiter())

	// Catalog
	api.Get("/services", r.handlers.Catalog.ListServices)
	api.Get("/services/:id", r.handlers.Catalog.GetService)

	// Provider callbacks authenticate by signature
	webhooks := api.Group("/webhooks")
	webhooks.Post("/coinbase", r.handlers.Webhook.CoinbaseWebhook)
	webhooks.Post("/square", r.handlers.Webhook.SquareWebhook)

	// Operator surface
	admin := api.Group("/admin", middleware.AdminKey(r.cfg.Security.AdminAPIKeyHash))
	admin.Get("/deposits", r.handlers.Admin.ListDeposits)
	admin.Get("/deposits/export", r.handlers.Admin.ExportDeposits)
	admin.Get("/webhook-logs", r.handlers.Admin.ListWebhookLogs)
	admin.Get("/panel/balance", r.handlers.Admin.PanelBalance)
	admin.Post("/catalog/refresh", r.handlers.Admin.RefreshCatalog)
	admin.Get("/debug/db-ping", r.handlers.Admin.DBPing)
	admin.Get("/debug/env", r.handlers.Admin.EnvReport)

	// Storefront user routes
	requireIdentity := r.identity.Require()

	api.Get("/wallet", requireIdentity, r.handlers.Wallet.GetWallet)

	deposits := api.Group("/deposits", requireIdentity)
	deposits.Post("/coinbase", r.handlers.Deposit.CreateCoinbaseDeposit)
	deposits.Post("/square", r.handlers.Deposit.CreateSquareDeposit)

	orders := api.Group("/orders", requireIdentity)
	orders.Get("/", r.handlers.Order.ListOrders)
	orders.Post("/", r.handlers.Order.CreateOrder)
	orders.Get("/:id/status", r.handlers.Order.OrderStatus)
	orders.Post("/:id/cancel", r.handlers.Order.CancelOrder)
	orders.Post("/:id/refill", r.handlers.Order.RefillOrder)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Info("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics(r.metricsPath()))
	}

	// JSON API only; no documents are ever rendered
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "0",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:            "no-referrer",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(r.corsConfig()))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), apiPrefix+"/webhooks/")
		},
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return r.isProbe(c.Path())
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.WithFields(log.Fields{
				"request_id": requestid.FromContext(c),
				"event":      "panic",
				"path":       c.Path(),
				"method":     c.Method(),
				"ip":         c.IP(),
			}).Errorf("recovered panic: %v", e)
		},
	}))
}

func (r *FiberRouter) corsConfig() cors.Config {
	origins := r.cfg.Security.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := r.cfg.Security.AllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	}
	headers := r.cfg.Security.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
			"X-API-Key",
			utils.HeaderUserID,
			utils.HeaderUserEmail,
		}
	}
	maxAge := r.cfg.Security.CORSMaxAge
	if maxAge <= 0 {
		maxAge = utils.CORSMaxAge
	}

	return cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  methods,
		AllowHeaders:  headers,
		ExposeHeaders: []string{"X-Request-ID"},
		// credentials cannot be combined with a wildcard origin
		AllowCredentials: r.cfg.Security.AllowCredentials && !slices.Contains(origins, "*"),
		MaxAge:           maxAge,
	}
}

func (r *FiberRouter) rateLimiter() fiber.Handler {
	maxRequests := r.cfg.Security.GlobalRateLimit
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := r.cfg.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			// webhooks are never throttled
			return strings.HasPrefix(c.Path(), apiPrefix+"/webhooks/")
		},
	})
}

func (r *FiberRouter) metricsPath() string {
	if r.cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return r.cfg.Metrics.Path
}

func (r *FiberRouter) isProbe(path string) bool {
	return path == apiPrefix+"/health" || path == apiPrefix+"/ping" || path == r.metricsPath()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Infof("Starting server on %s", address)
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting connections and waits for in-flight requests
func (r *FiberRouter) Shutdown() error {
	timeout := r.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return r.app.ShutdownWithTimeout(timeout)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Custom 404 handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errCode = "REQUEST_ERROR"
		}
	}

	requestID := requestid.FromContext(c)
	if code >= fiber.StatusInternalServerError {
		log.WithField("request_id", requestID).Errorf("Error %d: %v", code, err)
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
