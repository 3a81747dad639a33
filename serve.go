package main

import (
	"context"
	"fmt"
	"log"

	"github.com/example/todo-evolution/config"
	"github.com/example/todo-evolution/modules/activity"
	"github.com/example/todo-evolution/modules/api"
	"github.com/example/todo-evolution/modules/auth"
	"github.com/example/todo-evolution/modules/cache"
	"github.com/example/todo-evolution/modules/notification"
	"github.com/example/todo-evolution/modules/ratelimit"
	"github.com/example/todo-evolution/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	addr  string
	store string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if opts.addr != "" {
				cfg.HTTP.Addr = opts.addr
			}
			if opts.store != "" {
				cfg.Store.Driver = opts.store
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&opts.store, "store", "", "storage driver: memory, sqlite or postgres (overrides STORE_DRIVER)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log.Println("=== Todo Evolution API ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.Shutdown),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	logger := app.Logger()

	rateLimitModule := ratelimit.NewModule(cfg.Redis, cfg.Limit, logger)
	cacheModule := cache.NewModule(cfg.Redis, logger)
	apiModule := api.NewModule(cfg.HTTP.Addr, logger)
	apiModule.SetRateLimitModule(rateLimitModule)
	apiModule.SetCacheModule(cacheModule)

	// Order: independent modules first, then event consumers, then the
	// driving adapter that depends on everything else.
	app.Register(rateLimitModule)
	app.Register(cacheModule)
	app.Register(task.NewModule(cfg.Store, logger))
	app.Register(auth.NewModule(cfg.Store, cfg.JWT, logger))
	app.Register(activity.NewModule(cfg.Redis, logger))
	app.Register(notification.NewModule(cfg.SMTP, logger))
	app.Register(apiModule)

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Shutdown,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	if exitCode != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", exitCode)
	}
	return nil
}

func printStartupInfo(cfg *config.Config) {
	limiter := "in-process token buckets"
	if cfg.Redis.Enabled() {
		limiter = "Redis sliding window (" + cfg.Redis.Addr + ")"
	}
	mail := "log only"
	if cfg.SMTP.Enabled() {
		mail = fmt.Sprintf("SMTP %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("  Storage:       %s", cfg.Store.Driver)
	log.Printf("  Rate limiting: %d requests / %s, %s", cfg.Limit.Requests, cfg.Limit.Window, limiter)
	log.Printf("  Welcome mail:  %s", mail)
	log.Println("")
	log.Printf("REST API Endpoints (%s):", cfg.HTTP.Addr)
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  GET    /health                          - Health check")
	log.Println("  POST   /api/v1/auth/register            - Register a new user")
	log.Println("  POST   /api/v1/auth/login               - Login and get an access token")
	log.Println("")
	log.Println("  Protected Endpoints (require Bearer token):")
	log.Println("  GET    /api/v1/users/me                 - Current user profile")
	log.Println("  PATCH  /api/v1/users/me                 - Update email, name or password")
	log.Println("  GET    /api/v1/tasks                    - List tasks (search, status, priority, tag, sort_by)")
	log.Println("  POST   /api/v1/tasks                    - Create a task")
	log.Println("  GET    /api/v1/tasks/activity           - Recent task activity")
	log.Println("  GET    /api/v1/tasks/:id                - Get a task")
	log.Println("  PUT    /api/v1/tasks/:id                - Update a task")
	log.Println("  DELETE /api/v1/tasks/:id                - Delete a task")
	log.Println("  PATCH  /api/v1/tasks/:id/toggle-status  - Toggle completion")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
