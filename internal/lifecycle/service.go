package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/events"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/links"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/paths"
	"github.com/goliatone/go-publishing/internal/versions"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// Service drives content items through draft, published, unpublished and superseded.
type Service interface {
	PutContent(ctx context.Context, req PutContentRequest) (*Representation, error)
	Publish(ctx context.Context, req PublishRequest) (*Representation, error)
	DiscardDraft(ctx context.Context, req DiscardDraftRequest) (*Representation, error)
	Redraft(ctx context.Context, req RedraftRequest) (*Representation, error)
	Unpublish(ctx context.Context, req UnpublishRequest) (*Representation, error)
	PutLinkSet(ctx context.Context, req PutLinkSetRequest) (*LinkSetView, error)
	PutContentWithLinks(ctx context.Context, req PutContentWithLinksRequest) (*Representation, error)
	ReservePath(ctx context.Context, req ReservePathRequest) error
	GetContent(ctx context.Context, req GetContentRequest) (*Representation, error)
	GetLinkSet(ctx context.Context, contentID uuid.UUID) (*LinkSetView, error)
	History(ctx context.Context, contentID uuid.UUID, locale string) ([]*items.ContentItem, error)
	HistoryItem(ctx context.Context, contentID, itemID uuid.UUID) (*items.ContentItem, error)
	PathOwner(ctx context.Context, basePath string) (string, error)
}

// PutContentRequest replaces or creates the draft described by Attributes.
// PublishingApp is the authenticated caller and fills Attributes.PublishingApp
// when the payload leaves it out.
type PutContentRequest struct {
	Attributes      items.Attributes
	Links           map[string]any
	PreviousVersion *int
	PublishingApp   string
}

type PublishRequest struct {
	ContentID       uuid.UUID
	Locale          string
	UpdateType      string
	PreviousVersion *int
	PublishingApp   string
}

type DiscardDraftRequest struct {
	ContentID       uuid.UUID
	Locale          string
	PreviousVersion *int
	PublishingApp   string
}

type RedraftRequest struct {
	ContentID     uuid.UUID
	Locale        string
	PublishingApp string
}

type UnpublishRequest struct {
	ContentID       uuid.UUID
	Locale          string
	Type            string
	Explanation     string
	AlternativePath string
	DiscardDrafts   bool
	PreviousVersion *int
	PublishingApp   string
}

type PutLinkSetRequest struct {
	ContentID       uuid.UUID
	Links           map[string]any
	PreviousVersion *int
	PublishingApp   string
}

// PutContentWithLinksRequest is the single-call write of the legacy endpoint.
// Without a content id only the path is reserved and Body is pushed as is.
type PutContentWithLinksRequest struct {
	BasePath      string
	Attributes    items.Attributes
	Links         map[string]any
	UpdateType    string
	Body          map[string]any
	PublishingApp string
}

type ReservePathRequest struct {
	BasePath      string
	PublishingApp string
}

// GetContentRequest reads the draft when one exists, the live item otherwise.
// Set Live to skip the draft.
type GetContentRequest struct {
	ContentID uuid.UUID
	Locale    string
	Live      bool
}

// Propagator receives downstream work once a command has committed.
type Propagator interface {
	Push(ctx context.Context, push downstream.Push) error
	Message(ctx context.Context, msg downstream.Message) error
}

// Policy holds the deployment-specific rules of the lifecycle.
type Policy struct {
	ProtectedApps      []string
	ProtectedLinkTypes []string
	SupportedLocale    items.LocaleChecker
}

func (p Policy) protectedApp(app string) bool {
	for _, candidate := range p.ProtectedApps {
		if candidate == app {
			return true
		}
	}
	return false
}

// ServiceOption customises the lifecycle service.
type ServiceOption func(*service)

func WithPropagator(propagator Propagator) ServiceOption {
	return func(s *service) {
		if propagator != nil {
			s.propagator = propagator
		}
	}
}

func WithPolicy(policy Policy) ServiceOption {
	return func(s *service) {
		s.policy = policy
	}
}

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHistory serves History from a cached read repository instead of the transaction path.
func WithHistory(history *items.History) ServiceOption {
	return func(s *service) {
		s.history = history
	}
}

// WithClock overrides the timestamp source of every row the service writes.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithIDGenerator(generator func() uuid.UUID) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

type service struct {
	db         *bun.DB
	ledger     *versions.Ledger
	paths      *paths.Registry
	links      *links.Store
	items      *items.Repository
	events     *events.Log
	history    *items.History
	propagator Propagator
	policy     Policy
	logger     interfaces.Logger
	now        func() time.Time
	id         func() uuid.UUID
}

// NewService wires the lifecycle over db.
func NewService(db *bun.DB, opts ...ServiceOption) Service {
	s := &service{
		db:         db,
		propagator: noopPropagator{},
		logger:     logging.NoOp(),
		now:        func() time.Time { return time.Now().UTC() },
		id:         uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = versions.NewLedger(versions.WithClock(s.now), versions.WithIDGenerator(s.id))
	s.paths = paths.NewRegistry(paths.WithClock(s.now))
	s.links = links.NewStore(s.ledger)
	s.items = items.NewRepository(items.WithClock(s.now), items.WithIDGenerator(s.id))
	s.events = events.NewLog(s.now)
	return s
}

type noopPropagator struct{}

func (noopPropagator) Push(context.Context, downstream.Push) error       { return nil }
func (noopPropagator) Message(context.Context, downstream.Message) error { return nil }
