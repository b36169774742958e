// Package api serves the item service over HTTP. Routes under /api see every
// item; routes under /:ra are scoped to one student and refuse unknown ones.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/timada-org/todo/internal/todo"
	"go.uber.org/zap"
)

type Service interface {
	Authorize(ctx context.Context, student string) error
	List(ctx context.Context, student string) ([]todo.Item, error)
	Add(ctx context.Context, student string, raw map[string]any) (int64, error)
	Get(ctx context.Context, student string, id int64) (todo.Item, error)
	Update(ctx context.Context, student string, raw map[string]any) error
	Remove(ctx context.Context, student string, id int64) error
}

type Options struct {
	Addr           string
	Service        Service
	Log            *zap.Logger
	Auth           *Auth
	Limiter        *RateLimiter
	AllowedOrigins []string
	Registry       *prometheus.Registry
}

type App struct {
	service  Service
	log      *zap.Logger
	auth     *Auth
	limiter  *RateLimiter
	metrics  *Metrics
	api      *httprouter.Router
	students *httprouter.Router
	handler  http.Handler
	server   *http.Server
}

func New(options Options) *App {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	registry := options.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	app := &App{
		service: options.Service,
		log:     log,
		auth:    options.Auth,
		limiter: options.Limiter,
		metrics: NewMetrics(registry),
	}

	app.api = app.newRouter()
	app.api.GET("/api/list", app.instrument("api_list", app.list()))
	app.api.PUT("/api/add", app.instrument("api_add", app.add()))
	app.api.GET("/api/item/:id", app.instrument("api_item", app.item()))
	app.api.PUT("/api/update", app.instrument("api_update", app.update()))
	app.api.DELETE("/api/remove/:id", app.instrument("api_remove", app.remove()))

	app.students = app.newRouter()
	app.students.GET("/:ra/list", app.instrument("student_list", app.student(app.list())))
	app.students.POST("/:ra/add", app.instrument("student_add", app.student(app.add())))
	app.students.POST("/:ra/update", app.instrument("student_update", app.student(app.update())))
	app.students.GET("/:ra/remove/:id", app.instrument("student_remove", app.student(app.remove())))
	app.students.GET("/:ra/item/:id", app.instrument("student_item", app.student(app.item())))

	origins := options.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	var handler http.Handler = http.HandlerFunc(app.dispatch)
	if app.limiter != nil {
		handler = app.limiter.Handler(handler)
	}
	handler = app.requestLog(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(handler)

	app.handler = handler
	app.server = &http.Server{
		Addr:              options.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app
}

func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) Listen() error {
	app.log.Info("listening", zap.String("addr", app.server.Addr))

	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (app *App) Shutdown(ctx context.Context) error {
	return app.server.Shutdown(ctx)
}

func (app *App) newRouter() *httprouter.Router {
	router := httprouter.New()
	router.HandleMethodNotAllowed = false
	router.HandleOPTIONS = false
	unmatched := app.instrument("unmatched", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		failure(w, http.StatusNotFound, "Unknown operation")
	})
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unmatched(w, r, nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		app.log.Error("panic while handling request",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Any("panic", v),
			zap.Stack("stack"),
		)
		failure(w, http.StatusInternalServerError, "Something broke!")
	}

	return router
}

func (app *App) dispatch(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/metrics":
		app.metrics.Handler().ServeHTTP(w, r)
	case path == "/api" || strings.HasPrefix(path, "/api/"):
		if app.auth != nil {
			app.auth.Handler(app.api).ServeHTTP(w, r)
			return
		}
		app.api.ServeHTTP(w, r)
	default:
		app.students.ServeHTTP(w, r)
	}
}
