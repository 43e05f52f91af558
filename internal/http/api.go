package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/validation"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// API serves the publishing endpoints.
type API struct {
	service   lifecycle.Service
	validator *validation.Validator
	logger    interfaces.Logger
	failures  downstream.FailureLog
	router    chi.Router
}

// Option mutates the API configuration.
type Option func(*API)

// WithLogger sets the request logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(api *API) {
		if logger != nil {
			api.logger = logger
		}
	}
}

// WithValidator replaces the envelope validator.
func WithValidator(validator *validation.Validator) Option {
	return func(api *API) {
		if validator != nil {
			api.validator = validator
		}
	}
}

// WithFailureLog exposes abandoned downstream deliveries under /debug.
func WithFailureLog(log downstream.FailureLog) Option {
	return func(api *API) {
		api.failures = log
	}
}

// NewAPI builds the API around service.
func NewAPI(service lifecycle.Service, opts ...Option) *API {
	api := &API{
		service: service,
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	if api.validator == nil {
		api.validator = validation.MustNewValidator()
	}
	api.router = api.mount()
	return api
}

// Routes returns the router with every endpoint mounted.
func (api *API) Routes() chi.Router {
	return api.router
}

func (api *API) mount() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(api.logger))

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	if api.failures != nil {
		r.Get("/debug/delivery-failures", api.handleDeliveryFailures)
	}

	r.Route("/v2", func(r chi.Router) {
		r.Use(requirePublishingApp)

		r.Route("/content/{content_id}", func(r chi.Router) {
			r.Put("/", api.handlePutContent)
			r.Get("/", api.handleGetContent)
			r.Get("/history", api.handleHistory)
			r.Get("/history/{item_id}", api.handleHistoryItem)
			r.Post("/publish", api.handlePublish)
			r.Post("/unpublish", api.handleUnpublish)
			r.Post("/discard-draft", api.handleDiscardDraft)
			r.Post("/redraft", api.handleRedraft)
		})

		r.Patch("/links/{content_id}", api.handlePatchLinks)
		r.Get("/links/{content_id}", api.handleGetLinks)
	})

	r.Group(func(r chi.Router) {
		r.Use(optionalPublishingApp)
		r.Put("/content/*", api.handlePutContentWithLinks)
		r.Put("/paths/*", api.handleReservePath)
		r.Get("/paths/*", api.handlePathOwner)
	})

	return r
}

// ServeHTTP lets the API be mounted directly.
func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.router.ServeHTTP(w, r)
}
