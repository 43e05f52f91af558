package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// PublishingAppHeader identifies the calling publishing application.
const PublishingAppHeader = "X-Publishing-App"

type publishingAppKey struct{}

// WithPublishingApp stores the authenticated app on ctx and adds it to the
// logging fields of downstream calls.
func WithPublishingApp(ctx context.Context, app string) context.Context {
	ctx = logging.ContextWithFields(ctx, map[string]any{"publishing_app": app})
	return context.WithValue(ctx, publishingAppKey{}, app)
}

// PublishingApp returns the app stored by the middleware, or "".
func PublishingApp(ctx context.Context) string {
	app, _ := ctx.Value(publishingAppKey{}).(string)
	return app
}

func requirePublishingApp(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app := strings.TrimSpace(r.Header.Get(PublishingAppHeader))
		if app == "" {
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: errorBody{
				Code:    http.StatusUnauthorized,
				Message: PublishingAppHeader + " header is required",
			}})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPublishingApp(r.Context(), app)))
	})
}

// optionalPublishingApp forwards the header when present; legacy endpoints
// may carry the app in the body instead.
func optionalPublishingApp(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app := strings.TrimSpace(r.Header.Get(PublishingAppHeader)); app != "" {
			r = r.WithContext(WithPublishingApp(r.Context(), app))
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			if id := chimiddleware.GetReqID(r.Context()); id != "" {
				r = r.WithContext(logging.ContextWithFields(r.Context(), map[string]any{"request_id": id}))
			}
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			entry := logging.WithFields(logger, map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"request_id":  chimiddleware.GetReqID(r.Context()),
				"duration_ms": time.Since(started).Milliseconds(),
			})
			switch {
			case ww.Status() >= 500:
				entry.Error("http.request.failed")
			case ww.Status() >= 400:
				entry.Info("http.request.rejected")
			default:
				entry.Debug("http.request.completed")
			}
		})
	}
}
