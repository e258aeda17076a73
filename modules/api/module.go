package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/taskdesk/modules/account"
	"github.com/example/taskdesk/modules/ledger"
	"github.com/example/taskdesk/modules/presence"
	"github.com/example/taskdesk/modules/taskflow"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
)

// Config holds the HTTP and WebSocket settings.
type Config struct {
	Addr        string
	CORSOrigins string

	// WebSocket tuning.
	SendBuffer        int
	MessagesPerSecond float64
	Burst             int
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		Addr:              ":3000",
		CORSOrigins:       "http://localhost:3000,http://localhost:5173",
		SendBuffer:        64,
		MessagesPerSecond: 10,
		Burst:             20,
	}
}

// APIModule serves the REST API and the WebSocket endpoint.
type APIModule struct {
	app      *fiber.App
	config   Config
	accounts account.AccountPort
	tasks    taskflow.TaskPort
	chat     ledger.ChatPort
	registry *presence.Registry
	clock    clockwork.Clock
	healthy  func(context.Context) bool
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config Config, clock clockwork.Clock, logger types.Logger) *APIModule {
	return &APIModule{
		config: config,
		clock:  clock,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"account", "taskflow", "ledger"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "account":
		m.accounts = account.NewAccountAdapter(container)
	case "taskflow":
		m.tasks = taskflow.NewTaskflowAdapter(container)
	case "ledger":
		m.chat = ledger.NewLedgerAdapter(container)
	}
}

// SetRegistry sets the presence registry (called from main.go).
func (m *APIModule) SetRegistry(registry *presence.Registry) {
	m.registry = registry
}

// SetHealthCheck sets the application-wide health probe served on /health.
func (m *APIModule) SetHealthCheck(check func(context.Context) bool) {
	m.healthy = check
}

// Start builds the Fiber app and starts listening.
func (m *APIModule) Start(_ context.Context) error {
	if m.accounts == nil {
		return errors.New("account adapter dependency not set")
	}
	if m.tasks == nil {
		return errors.New("taskflow adapter dependency not set")
	}
	if m.chat == nil {
		return errors.New("ledger adapter dependency not set")
	}
	if m.registry == nil {
		return errors.New("presence registry dependency not set")
	}

	m.app = m.newApp()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.config.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.config.Addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	// Hijacked WebSocket connections are not drained by the HTTP shutdown.
	closed := m.registry.CloseAll()
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	m.logger.Info("HTTP server stopped", "closed_connections", closed)
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"addr": m.config.Addr}
	if m.registry != nil {
		details["connected_clients"] = m.registry.Count()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "taskdesk",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(m.requestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.config.CORSOrigins,
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.registerRoutes(app)
	return app
}

// errorHandler handles errors that escape route handlers.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

func (m *APIModule) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// WebSocket sessions are logged by the socket handler.
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		start := m.clock.Now()
		err := c.Next()
		m.logger.Debug("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", m.clock.Since(start))
		return err
	}
}
