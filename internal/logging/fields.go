package logging

import (
	"context"
	"maps"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// requestFieldsKey holds the fields the HTTP middleware collects for a
// request, such as request_id and publishing_app.
type requestFieldsKey struct{}

// ContextWithFields stacks fields on ctx. Keys already present are
// overwritten by the newer value.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	merged := maps.Clone(requestFields(ctx))
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return context.WithValue(ctx, requestFieldsKey{}, merged)
}

// ContextFields returns a copy of the fields stored on ctx, or nil.
func ContextFields(ctx context.Context) map[string]any {
	fields := requestFields(ctx)
	if len(fields) == 0 {
		return nil
	}
	return maps.Clone(fields)
}

// FromContext returns logger carrying the request fields stored on ctx.
func FromContext(ctx context.Context, logger interfaces.Logger) interfaces.Logger {
	return WithFields(logger, requestFields(ctx))
}

// WithFields attaches fields when logger implements interfaces.FieldsLogger
// and returns it unchanged otherwise.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	scoped, ok := logger.(interfaces.FieldsLogger)
	if !ok {
		return logger
	}
	return scoped.WithFields(maps.Clone(fields))
}

func requestFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(requestFieldsKey{}).(map[string]any)
	return fields
}
