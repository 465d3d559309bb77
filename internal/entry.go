// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sitedesk/internal/api"
	"github.com/starford/sitedesk/internal/collection"
	"github.com/starford/sitedesk/internal/editor"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/mcpserver"
	"github.com/starford/sitedesk/internal/schema"
	"github.com/starford/sitedesk/internal/sse"
	"github.com/starford/sitedesk/internal/storage"
)

// NewLogger builds the process logger. Text output uses tint; JSON is chosen
// when format asks for it, or when format is empty and tty is false.
func NewLogger(cfg ApplicationConfig, w io.Writer, tty bool) *slog.Logger {
	format := cfg.LogFormat
	if format == "" {
		format = LogFormatJSON
		if tty {
			format = LogFormatText
		}
	}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}
	if f, ok := w.(*os.File); ok {
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: "15:04:05.000",
		NoColor:    !tty,
	}))
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// runtime is what every command needs: the resolved layout and the store
// over it.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	out    io.Writer
	root   *storage.Root
	store  *collection.Store
}

func newRuntime(opts []Option) (*runtime, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App, os.Stderr, stderrIsTerminal())
		slog.SetDefault(logger)
	}
	out := app.out
	if out == nil {
		out = os.Stdout
	}

	workDir := app.workDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working dir: %w", err)
		}
		workDir = wd
	}
	root, err := storage.Resolve(workDir)
	if err != nil {
		return nil, err
	}
	if !root.Detected {
		logger.Warn("no assets/data directory found, using local fallback",
			slog.String("data_dir", root.DataDir))
	}

	store, err := collection.Open(root,
		collection.WithRepair(cfg.Data.AutoRepair),
		collection.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, out: out, root: root, store: store}, nil
}

// openIndex opens and syncs the search index.
func (rt *runtime) openIndex() (*index.DB, error) {
	dbPath, err := rt.cfg.SQLite.ResolvePath()
	if err != nil {
		return nil, err
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, rt.store, rt.logger); err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return db, nil
}

// reindex returns a change hook that keeps the index in step with the
// editor's own writes and then calls notify, if any.
func (rt *runtime) reindex(db *index.DB, notify func(op, kind string)) editor.ChangeFunc {
	return func(op, kind string) {
		if err := index.IndexKind(db, rt.store, kind); err != nil {
			rt.logger.Warn("reindex failed", slog.String("kind", kind), slog.String("error", err.Error()))
		}
		if notify != nil {
			notify(op, kind)
		}
	}
}

// Run starts the HTTP API with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", rt.root.DataDir),
		slog.String("images_dir", rt.root.ImagesDir),
		slog.Bool("auto_repair", cfg.Data.AutoRepair),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := rt.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := editor.New(rt.store,
		editor.WithSearch(db),
		editor.WithLogger(logger),
		editor.WithChangeHook(rt.reindex(db, broker.PublishCollectionEvent)))

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := db.AllChecksums(); err != nil {
			http.Error(w, `{"status":"index unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// External edits reach the index and the SSE clients through the watcher.
	g.Go(func() error {
		return index.Watch(gCtx, db, rt.store, rt.root.DataDir, logger, broker.PublishCollectionEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been asked to stop.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until stdin closes. Logs go to
// stderr so they never mix with the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}

	db, err := rt.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := editor.New(rt.store,
		editor.WithSearch(db),
		editor.WithLogger(rt.logger),
		editor.WithChangeHook(rt.reindex(db, nil)))
	srv := mcpserver.New(svc, rt.logger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.Watch(gCtx, db, rt.store, rt.root.DataDir, rt.logger, nil)
	})
	g.Go(func() error {
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}

// ListRecords prints one line per record of kind, in file order.
func ListRecords(ctx context.Context, kind string, opts ...Option) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	c, err := editor.New(rt.store, editor.WithLogger(rt.logger)).ListCollection(ctx, kind)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(c.Records))
	for i, rec := range c.Records {
		rows = append(rows, []string{strconv.Itoa(i), rec.ID(), rec.Text(schema.KeyTitle), rec.Text(schema.KeyDate)})
	}
	_, err = fmt.Fprintln(rt.out, renderTable([]string{"#", "ID", "TITLE", "DATE"}, rows, 0))
	return err
}

// ListKinds prints every kind with its body key and whether its collection
// file exists.
func ListKinds(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	kinds, err := editor.New(rt.store, editor.WithLogger(rt.logger)).Kinds(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		cover := k.CoverKey
		if cover == "" {
			cover = "-"
		}
		rows = append(rows, []string{k.Kind, k.BodyKey, cover, strconv.FormatBool(k.Present)})
	}
	_, err = fmt.Fprintf(rt.out, "%s\ndata dir: %s\n", renderTable([]string{"KIND", "BODY", "COVER", "PRESENT"}, rows), rt.root.DataDir)
	return err
}
