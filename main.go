package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/taskdesk/config"
	"github.com/example/taskdesk/modules/account"
	"github.com/example/taskdesk/modules/api"
	"github.com/example/taskdesk/modules/cache"
	"github.com/example/taskdesk/modules/ledger"
	"github.com/example/taskdesk/modules/notify"
	"github.com/example/taskdesk/modules/store"
	"github.com/example/taskdesk/modules/taskflow"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/jonboulle/clockwork"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== TaskDesk - Tasks, Chat and Real-Time Notifications ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()
	clock := clockwork.NewRealClock()

	db, err := store.Open(cfg.DBPath, cfg.DBDebug)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	records := store.New(db)

	// Redis is optional; without it unseen counts are always recomputed.
	var countCache ledger.CountCache
	var cacheModule *cache.CacheModule
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cacheModule, err = cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.UnseenCacheTTL, logger.With("module", "cache"))
		cancel()
		if err != nil {
			logger.Warn("Unseen count cache disabled", "redis", cfg.RedisAddr, "error", err)
		} else {
			countCache = cacheModule.Cache()
		}
	}

	jwtConfig := account.DefaultJWTConfig()
	jwtConfig.SecretKey = cfg.JWTSecret
	jwtConfig.Issuer = cfg.JWTIssuer
	jwtConfig.TokenDuration = cfg.TokenTTL

	storeModule := store.NewModule(records, cfg.DBPath, logger.With("module", "store"))
	accountModule := account.NewModule(
		records,
		jwtConfig,
		cfg.BcryptCost,
		account.AdminSeed{Name: cfg.AdminName, Email: cfg.AdminEmail, Password: cfg.AdminPassword},
		clock,
		logger.With("module", "account"),
	)
	taskflowModule := taskflow.NewModule(records, clock, cfg.FinishNotifyDelay, logger.With("module", "taskflow"))
	ledgerModule := ledger.NewModule(records, countCache, clock, logger.With("module", "ledger"))
	notifyModule := notify.NewModule(clock, logger.With("module", "notify"))
	apiModule := api.NewModule(api.Config{
		Addr:              ":" + cfg.Port,
		CORSOrigins:       cfg.CORSOrigins,
		SendBuffer:        cfg.WSSendBuffer,
		MessagesPerSecond: cfg.WSMessagesPerSecond,
		Burst:             cfg.WSBurst,
	}, clock, logger.With("module", "api"))

	// The registry is shared by reference: the api module binds sockets,
	// the notify module delivers to them.
	apiModule.SetRegistry(notifyModule.Registry())
	apiModule.SetHealthCheck(func(ctx context.Context) bool {
		return app.Health(ctx).Healthy
	})

	// Register modules with the framework.
	// Order: infrastructure first, then domain modules, then consumers and
	// the driving adapter.
	app.Register(storeModule)
	if cacheModule != nil {
		app.Register(cacheModule)
	}
	app.Register(accountModule)
	app.Register(taskflowModule)
	app.Register(ledgerModule)
	app.Register(notifyModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg, cacheModule != nil)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg *config.Config, cached bool) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("  Database: %s", cfg.DBPath)
	if cached {
		log.Printf("  Unseen count cache: redis %s (ttl %s)", cfg.RedisAddr, cfg.UnseenCacheTTL)
	} else {
		log.Println("  Unseen count cache: disabled")
	}
	log.Printf("  Finish notification delay: %s", cfg.FinishNotifyDelay)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                          - Health check")
	log.Println("  POST   /api/admin/login                 - Admin login")
	log.Println("  POST   /api/employee/login              - Employee login")
	log.Println("  POST   /api/admin/employee              - Create employee")
	log.Println("  GET    /api/admin/employees             - List employees")
	log.Println("  GET    /api/admin/employee/:id          - Employee with tasks")
	log.Println("  DELETE /api/admin/employee/:id          - Delete employee")
	log.Println("  POST   /api/admin/task                  - Assign task")
	log.Println("  GET    /api/admin/tasks                 - List tasks")
	log.Println("  PATCH  /api/admin/task/:taskId/status   - Set task status")
	log.Println("  GET    /api/employee/tasks              - Own tasks")
	log.Println("  PATCH  /api/employee/tasks/:taskId      - Update own task")
	log.Println("  GET    /api/chat/users                  - Contacts with unseen counts")
	log.Println("  GET    /api/chat/messages/:id           - Open conversation")
	log.Println("  POST   /api/chat/send/:id               - Send message")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws?token=<jwt>):", cfg.Port)
	log.Println("  Commands: sendMessage, markSeen, markConversationSeen, history, unseenCounts, ping")
	log.Println("  Events: taskAssigned, taskUpdated, newMessage, onlineUsers")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
