package commands

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// lifecycleTimeout bounds one lifecycle command. Downstream propagation runs
// on the worker and is not counted against it.
const lifecycleTimeout = 30 * time.Second

// CommandLogger returns the logger lifecycle command handlers write to. The
// target names the handler family, e.g. "lifecycle" or "links".
func CommandLogger(provider interfaces.LoggerProvider, target string) interfaces.Logger {
	target = strings.TrimSpace(target)
	if target == "" {
		target = "lifecycle"
	}
	return logging.WithFields(
		logging.ModuleLogger(provider, "publishing.commands."+target),
		map[string]any{"component": "command", "handler_family": target},
	)
}

// scoped returns ctx bounded by timeout. A nil ctx becomes Background and a
// non-positive timeout leaves the deadline untouched.
func scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func loggerOrNoOp(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
