package interfaces

import "context"

// Logger is the leveled logger every publishing component writes to. The
// method set matches github.com/goliatone/go-logger so its loggers plug in
// directly.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger is implemented by loggers that can carry fields such as
// content_id, locale or publishing_app on every entry.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}

// LoggerProvider hands out loggers by module name, e.g.
// "publishing.lifecycle" or "publishing.downstream".
type LoggerProvider interface {
	GetLogger(name string) Logger
}
