package paths

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// ErrOwnershipConflict is matched by every OwnershipConflictError.
	ErrOwnershipConflict = errors.New("paths: base path is reserved by another publishing app")
	// ErrInvalidPath rejects reservations for paths that are not absolute URL paths.
	ErrInvalidPath = errors.New("paths: invalid base path")
	// ErrPublishingAppRequired rejects reservations without an owner.
	ErrPublishingAppRequired = errors.New("paths: publishing app is required")
)

// Reservation records which publishing app owns a base path.
type Reservation struct {
	bun.BaseModel `bun:"table:path_reservations,alias:pr"`

	ID            uuid.UUID `bun:",pk,type:uuid" json:"id"`
	BasePath      string    `bun:"base_path,notnull" json:"base_path"`
	PublishingApp string    `bun:"publishing_app,notnull" json:"publishing_app"`
	CreatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// OwnershipConflictError reports that another app holds the path.
type OwnershipConflictError struct {
	BasePath  string
	Owner     string
	Requested string
}

func (e *OwnershipConflictError) Error() string {
	return fmt.Sprintf("paths: %s is already reserved by %s", e.BasePath, e.Owner)
}

func (e *OwnershipConflictError) Unwrap() error {
	return ErrOwnershipConflict
}

// Registry owns base path reservations.
type Registry struct {
	now func() time.Time
	id  func() uuid.UUID
}

// Option customises a Registry.
type Option func(*Registry)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewRegistry builds a registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		now: func() time.Time { return time.Now().UTC() },
		id:  uuid.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reserve claims basePath for app. Re-reserving an owned path is a no-op.
func (r *Registry) Reserve(ctx context.Context, db bun.IDB, basePath, app string) (*Reservation, error) {
	if !ValidAbsolutePath(basePath) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, basePath)
	}
	app = strings.TrimSpace(app)
	if app == "" {
		return nil, ErrPublishingAppRequired
	}

	existing, err := r.find(ctx, db, basePath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.PublishingApp != app {
			return nil, &OwnershipConflictError{BasePath: basePath, Owner: existing.PublishingApp, Requested: app}
		}
		return existing, nil
	}

	now := r.now()
	reservation := &Reservation{
		ID:            r.id(),
		BasePath:      basePath,
		PublishingApp: app,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := db.NewInsert().Model(reservation).Exec(ctx); err != nil {
		return nil, fmt.Errorf("paths: reserve %s: %w", basePath, err)
	}
	return reservation, nil
}

// Move answers whether a content identity may move from oldPath to newPath and
// records the reservation of newPath. The old reservation is kept: the old path
// remains owned by the app so a redirect can be placed there.
func (r *Registry) Move(ctx context.Context, db bun.IDB, contentID uuid.UUID, oldPath, newPath, app string) error {
	if oldPath == newPath {
		return nil
	}
	if _, err := r.Reserve(ctx, db, newPath, app); err != nil {
		return fmt.Errorf("paths: move %s from %s: %w", contentID, oldPath, err)
	}
	return nil
}

// Owner returns the app that reserved basePath, or "" when unreserved.
func (r *Registry) Owner(ctx context.Context, db bun.IDB, basePath string) (string, error) {
	existing, err := r.find(ctx, db, basePath)
	if err != nil || existing == nil {
		return "", err
	}
	return existing.PublishingApp, nil
}

func (r *Registry) find(ctx context.Context, db bun.IDB, basePath string) (*Reservation, error) {
	var reservation Reservation
	err := db.NewSelect().
		Model(&reservation).
		Where("?TableAlias.base_path = ?", basePath).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("paths: load %s: %w", basePath, err)
	}
	return &reservation, nil
}
