package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

const (
	rootModule       = "publishing"
	lifecycleModule  = "publishing.lifecycle"
	downstreamModule = "publishing.downstream"
	httpModule       = "publishing.http"
)

const (
	fieldContentID = "content_id"
	fieldLocale    = "locale"
	fieldAction    = "action"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module name is attached as
// a structured field so entries can be filtered per component.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// LifecycleLogger returns the logger namespace reserved for lifecycle transitions.
func LifecycleLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, lifecycleModule)
}

// DownstreamLogger returns the logger namespace reserved for propagation workers.
func DownstreamLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, downstreamModule)
}

// HTTPLogger returns the logger namespace reserved for the API surface.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// WithContentContext enriches the logger with the content identity, locale and
// action of a lifecycle command. Empty values are skipped.
func WithContentContext(logger interfaces.Logger, contentID, locale, action string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(contentID); trimmed != "" {
		fields[fieldContentID] = trimmed
	}
	if trimmed := strings.TrimSpace(locale); trimmed != "" {
		fields[fieldLocale] = trimmed
	}
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		fields[fieldAction] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
