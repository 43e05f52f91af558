package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-publishing/internal/runtimeconfig"
)

func TestNewProviderRejectsUnknownFormat(t *testing.T) {
	if _, err := FromConfig(runtimeconfig.LoggingConfig{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestProviderReturnsModuleLoggers(t *testing.T) {
	p, err := FromConfig(runtimeconfig.LoggingConfig{Level: "debug", Format: "console", Focus: []string{" publishing.lifecycle "}})
	if err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}

	logger := p.GetLogger("publishing.lifecycle")
	if logger == nil {
		t.Fatal("expected logger, got nil")
	}
	logger.Debug("lifecycle.test", "content_id", "abc")
	if again := p.GetLogger("publishing.lifecycle"); again != logger {
		t.Fatal("expected the module logger to be reused")
	}
}

func TestNilProviderFallsBackToNoOp(t *testing.T) {
	var p *Provider
	p.GetLogger("publishing.http").Info("dropped")
}

func TestAdapterClonesFieldsAndForwardsContext(t *testing.T) {
	stub := &stubLogger{}
	adapted := wrap(stub)

	fields := map[string]any{"content_id": "c1"}
	adapted.(*entry).WithFields(fields)
	fields["content_id"] = "c2"

	if len(stub.fields) != 1 || stub.fields[0]["content_id"] != "c1" {
		t.Fatalf("expected cloned fields, got %v", stub.fields)
	}

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	adapted.WithContext(ctx)
	if len(stub.contexts) != 1 || stub.contexts[0] != ctx {
		t.Fatalf("expected context propagation, got %#v", stub.contexts)
	}

	adapted.Warn("downstream.job.suppressed")
	adapted.Error("downstream.job.failed")
	if len(stub.calls) != 2 || stub.calls[0] != "warn" || stub.calls[1] != "error" {
		t.Fatalf("unexpected calls %v", stub.calls)
	}
}

type stubLogger struct {
	calls    []string
	fields   []map[string]any
	contexts []context.Context
}

var _ glog.Logger = (*stubLogger)(nil)
var _ glog.FieldsLogger = (*stubLogger)(nil)

func (s *stubLogger) Trace(string, ...any) { s.calls = append(s.calls, "trace") }
func (s *stubLogger) Debug(string, ...any) { s.calls = append(s.calls, "debug") }
func (s *stubLogger) Info(string, ...any)  { s.calls = append(s.calls, "info") }
func (s *stubLogger) Warn(string, ...any)  { s.calls = append(s.calls, "warn") }
func (s *stubLogger) Error(string, ...any) { s.calls = append(s.calls, "error") }
func (s *stubLogger) Fatal(string, ...any) { s.calls = append(s.calls, "fatal") }

func (s *stubLogger) WithContext(ctx context.Context) glog.Logger {
	s.contexts = append(s.contexts, ctx)
	return s
}

func (s *stubLogger) WithFields(fields map[string]any) glog.Logger {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.fields = append(s.fields, copied)
	return s
}
