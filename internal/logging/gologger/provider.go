package gologger

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

var levels = map[string]string{
	"trace":   glog.Trace,
	"debug":   glog.Debug,
	"info":    glog.Info,
	"warn":    glog.Warn,
	"warning": glog.Warn,
	"error":   glog.Error,
	"fatal":   glog.Fatal,
}

var formats = map[string]func() glog.Option{
	"":        glog.WithLoggerTypeJSON,
	"json":    glog.WithLoggerTypeJSON,
	"console": glog.WithLoggerTypeConsole,
	"text":    glog.WithLoggerTypeConsole,
	"pretty":  glog.WithLoggerTypePretty,
}

// Provider hands out one go-logger child per publishing module and reuses it
// for later lookups of the same name.
type Provider struct {
	root    *glog.BaseLogger
	mu      sync.Mutex
	modules map[string]interfaces.Logger
}

// FromConfig builds the root logger from the PUBLISHING_LOG_* settings.
// Unknown levels fall back to the go-logger default; unknown formats fail.
func FromConfig(cfg runtimeconfig.LoggingConfig) (*Provider, error) {
	format, ok := formats[strings.ToLower(strings.TrimSpace(cfg.Format))]
	if !ok {
		return nil, fmt.Errorf("logging: unsupported go-logger format %q", cfg.Format)
	}
	options := []glog.Option{format()}
	if level, ok := levels[strings.ToLower(strings.TrimSpace(cfg.Level))]; ok {
		options = append(options, glog.WithLevel(level))
	}
	if cfg.AddSource {
		options = append(options, glog.WithAddSource(true))
	}

	root := glog.NewLogger(options...)
	var focus []string
	for _, module := range cfg.Focus {
		if module = strings.TrimSpace(module); module != "" {
			focus = append(focus, module)
		}
	}
	if len(focus) > 0 {
		root.Focus(focus...)
	}
	return &Provider{root: root, modules: make(map[string]interfaces.Logger)}, nil
}

// GetLogger returns the logger for module, e.g. "publishing.downstream". An
// empty name returns the root logger.
func (p *Provider) GetLogger(module string) interfaces.Logger {
	if p == nil || p.root == nil {
		return logging.NoOp()
	}
	module = strings.TrimSpace(module)
	if module == "" {
		return wrap(p.root)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if logger, ok := p.modules[module]; ok {
		return logger
	}
	logger := wrap(p.root.GetLogger(module))
	p.modules[module] = logger
	return logger
}

func wrap(inner glog.Logger) interfaces.Logger {
	if inner == nil {
		return logging.NoOp()
	}
	return &entry{inner: inner}
}

// entry adapts glog.Logger to interfaces.Logger. The method sets match, only
// the WithFields and WithContext return types differ.
type entry struct {
	inner glog.Logger
}

var (
	_ interfaces.Logger       = (*entry)(nil)
	_ interfaces.FieldsLogger = (*entry)(nil)
)

func (e *entry) Trace(msg string, args ...any) { e.inner.Trace(msg, args...) }
func (e *entry) Debug(msg string, args ...any) { e.inner.Debug(msg, args...) }
func (e *entry) Info(msg string, args ...any)  { e.inner.Info(msg, args...) }
func (e *entry) Warn(msg string, args ...any)  { e.inner.Warn(msg, args...) }
func (e *entry) Error(msg string, args ...any) { e.inner.Error(msg, args...) }
func (e *entry) Fatal(msg string, args ...any) { e.inner.Fatal(msg, args...) }

func (e *entry) WithFields(fields map[string]any) interfaces.Logger {
	scoped, ok := e.inner.(glog.FieldsLogger)
	if !ok || len(fields) == 0 {
		return e
	}
	return wrap(scoped.WithFields(maps.Clone(fields)))
}

func (e *entry) WithContext(ctx context.Context) interfaces.Logger {
	if ctx == nil {
		return e
	}
	return wrap(e.inner.WithContext(ctx))
}
