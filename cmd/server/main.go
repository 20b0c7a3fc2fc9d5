/*
main.go - Application entry point

PURPOSE:
  Builds the jottick command: the household server plus a few maintenance
  commands that work on the same document store.

COMMANDS:
  serve          Run the HTTP API (default when no command is given)
  export-ics     Write the .ics export once and exit
  import-ics     Subscribe to a calendar feed and exit
  check-config   Validate and print the effective configuration
  revisions      List or restore saved revisions (sqlite store only)

STARTUP SEQUENCE (serve):
  1. Load configuration (defaults, file, env, flags)
  2. Open the document store
  3. Connect notifiers (log, optional Redis)
  4. Load the coordinator
  5. Start the iCal refresh scheduler and the HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close notifiers and the store
  5. Exit

EXAMPLES:
  # Run with a JSONC config file
  ./jottick --config=jottick.jsonc

  # Run against sqlite on another port
  ./jottick serve --store=sqlite --store-path=./data/jottick.db --addr=:3000

  # Throwaway in-memory household
  ./jottick --store=memory

ENVIRONMENT:
  JOTTICK_ADDR, JOTTICK_STORE, JOTTICK_STORE_PATH, JOTTICK_KEEP_REVISIONS,
  JOTTICK_EXPORT_PATH, JOTTICK_TIME_ZONE, JOTTICK_ICAL_REFRESH,
  JOTTICK_REDIS_URL, JOTTICK_REDIS_CHANNEL, JOTTICK_CORS_ORIGINS

SEE ALSO:
  - config/config.go: Configuration precedence
  - api/server.go: Router configuration
  - coordinator/coordinator.go: The single writer
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/jottick/api"
	"github.com/warp/jottick/config"
	"github.com/warp/jottick/coordinator"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/generic/store"
	"github.com/warp/jottick/ical"
	"github.com/warp/jottick/notify"
	"github.com/warp/jottick/store/file"
	"github.com/warp/jottick/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// App carries the flags shared by every command.
type App struct {
	ConfigPath string

	// Overrides; only applied when the flag was given.
	Addr       string
	Backend    string
	StorePath  string
	ExportPath string
	TimeZone   string
	RedisURL   string
}

func newRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "jottick",
		Short:        "Household notes, checklists, tasks, points and calendars",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the server (same as: jottick serve)
  jottick --config=jottick.jsonc

  # Write the calendar export once
  jottick export-ics --export-path=/www/jottick.ics

  # Check what the server would run with
  jottick check-config
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => serve.
			return runServe(cmd, app)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.ConfigPath, "config", os.Getenv("JOTTICK_CONFIG"), "Path to a JSONC config file")
	flags.StringVar(&app.Addr, "addr", "", "HTTP listen address (e.g. :8080)")
	flags.StringVar(&app.Backend, "store", "", "Document store: memory, file or sqlite")
	flags.StringVar(&app.StorePath, "store-path", "", "File or database path for the store")
	flags.StringVar(&app.ExportPath, "export-path", "", "Where export-ics writes the calendar")
	flags.StringVar(&app.TimeZone, "time-zone", "", "IANA zone for dates (default: host zone)")
	flags.StringVar(&app.RedisURL, "redis-url", "", "Publish change events to this Redis (redis://host:port/db)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newCheckConfigCmd(app))
	cmd.AddCommand(newRevisionsCmd(app))

	return cmd
}

// loadConfig applies flags on top of file and env, then validates again.
func (app *App) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(app.ConfigPath, os.Environ())
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = app.Addr
	}
	if flags.Changed("store") {
		cfg.Store.Backend = app.Backend
	}
	if flags.Changed("store-path") {
		cfg.Store.Path = app.StorePath
	}
	if flags.Changed("export-path") {
		cfg.ExportPath = app.ExportPath
	}
	if flags.Changed("time-zone") {
		cfg.TimeZone = app.TimeZone
	}
	if flags.Changed("redis-url") {
		cfg.Redis.URL = app.RedisURL
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the configured backend.
func openStore(cfg config.Config) (generic.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendFile:
		return file.New(cfg.Store.Path)
	case config.BackendSQLite:
		return sqlite.New(cfg.Store.Path, sqlite.KeepRevisions(cfg.Store.KeepRevisions))
	}
	return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrConfigInvalid, cfg.Store.Backend)
}

// runtime is everything a command needs, opened from config.
type runtime struct {
	cfg    config.Config
	store  generic.Store
	coord  *coordinator.Coordinator
	closer []func() error
}

func (rt *runtime) Close() {
	for i := len(rt.closer) - 1; i >= 0; i-- {
		if err := rt.closer[i](); err != nil {
			log.Printf("Warning: close failed: %v", err)
		}
	}
}

// open builds and loads the coordinator. withRedis connects the Redis
// notifier when configured.
func (app *App) open(ctx context.Context, cmd *cobra.Command, withRedis bool) (*runtime, error) {
	cfg, err := app.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	rt := &runtime{cfg: cfg, store: st, closer: []func() error{st.Close}}

	notifiers := notify.Fanout{notify.LogNotifier{}}
	if withRedis && cfg.Redis.URL != "" {
		rn, err := notify.NewRedisNotifier(cfg.Redis.URL, cfg.Redis.Channel)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closer = append(rt.closer, rn.Close)
		notifiers = append(notifiers, rn)
		log.Printf("Publishing events to redis channel %s", rn.Channel())
	}

	rt.coord = coordinator.New(st,
		coordinator.WithNotifier(notifiers),
		coordinator.WithFetcher(ical.NewHTTPFetcher(cfg.ICal.Timeout.Std())),
		coordinator.WithParser(ical.Parser{Location: loc, MaxInstances: cfg.ICal.MaxInstances}),
		coordinator.WithExportPath(cfg.ExportPath),
	)
	if err := rt.coord.Load(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, app)
		},
	}
}

func runServe(cmd *cobra.Command, app *App) error {
	rt, err := app.open(cmd.Context(), cmd, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg

	scheduler := api.NewICalRefreshScheduler(rt.coord)
	scheduler.CheckInterval = cfg.ICal.RefreshInterval.Std()
	scheduler.Enabled = cfg.ICal.RefreshInterval > 0
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(rt.coord, cfg.Calendar)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ICal.Timeout.Std() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("🚀 Server starting on %s (%s store)", cfg.Addr, cfg.Store.Backend)
		log.Printf("📊 API available at http://localhost%s/api", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
