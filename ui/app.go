// Package ui serves a read-only browser over persisted load runs.
package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fermload/internal"
	"fermload/internal/metrics"
	"fermload/ports"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App represents the browse API
type App struct {
	router    *chi.Mux
	repo      ports.RunRepository
	metrics   *metrics.Metrics
	log       *internal.Logger
	templates *template.Template
}

// Config holds HTTP server settings
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp creates the application; m may be nil to disable /metrics
func NewApp(repo ports.RunRepository, m *metrics.Metrics, log *internal.Logger) (*App, error) {
	if log == nil {
		log = internal.DefaultLogger
	}
	funcMap := template.FuncMap{
		"ago": func(t time.Time) string { return time.Since(t).Round(time.Second).String() },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		repo:      repo,
		metrics:   m,
		log:       log,
		templates: templates,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app, nil
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler { return a.router }

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(a.requestLogger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5, "text/html", "text/csv", "application/json", "text/markdown"))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	a.router.Route("/runs", func(r chi.Router) {
		r.Get("/", a.handleListRuns)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetRun)
			r.Get("/resources/{name}", a.handleResourceCSV)
			r.Get("/venn.png", a.handleVenn)
			r.Get("/report", a.handleReport)
			r.Get("/artifacts/{kind}", a.handleArtifact)
		})
	})

	if a.metrics != nil {
		a.router.Handle("/metrics", a.metrics.Handler())
	}
}

// requestLogger logs one line per request through the application logger
func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("%s %s %d %dB in %s", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (a *App) Start(ctx context.Context, cfg Config) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("serving load runs on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
