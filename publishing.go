package publishing

import (
	"context"
	"net/http"

	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/lifecycle"
)

// LifecycleService exports the content lifecycle contract.
type LifecycleService = lifecycle.Service

// Representation is the document returned by lifecycle operations.
type Representation = lifecycle.Representation

type (
	PutContentRequest          = lifecycle.PutContentRequest
	PublishRequest             = lifecycle.PublishRequest
	UnpublishRequest           = lifecycle.UnpublishRequest
	DiscardDraftRequest        = lifecycle.DiscardDraftRequest
	RedraftRequest             = lifecycle.RedraftRequest
	PutLinkSetRequest          = lifecycle.PutLinkSetRequest
	PutContentWithLinksRequest = lifecycle.PutContentWithLinksRequest
	ReservePathRequest         = lifecycle.ReservePathRequest
	GetContentRequest          = lifecycle.GetContentRequest
)

// Module is the top level publishing runtime.
type Module struct {
	container *di.Container
}

// New builds the runtime from cfg. Options override individual components.
func New(ctx context.Context, cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Migrate creates the schema.
func (m *Module) Migrate(ctx context.Context) error {
	return m.container.Migrate(ctx)
}

// Lifecycle returns the lifecycle service.
func (m *Module) Lifecycle() LifecycleService {
	return m.container.LifecycleService()
}

// Handler returns the HTTP API.
func (m *Module) Handler() http.Handler {
	return m.container.API().Routes()
}

// Worker returns the downstream worker; call Run to drain jobs in the background.
func (m *Module) Worker() *downstream.Worker {
	return m.container.Worker()
}

// RegisterCommands subscribes lifecycle commands with the go-command dispatcher.
func (m *Module) RegisterCommands() {
	m.container.RegisterCommands()
}

// Close releases the runtime.
func (m *Module) Close() error {
	return m.container.Close()
}
