package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	TargetContent = "content"
	TargetLinkSet = "link_set"
)

// ErrVersionConflict is matched by every ConflictError.
var ErrVersionConflict = errors.New("versions: version conflict")

// LockVersion is one ledger entry: the current version number of an aggregate.
type LockVersion struct {
	bun.BaseModel `bun:"table:lock_versions,alias:lv"`

	ID         uuid.UUID `bun:",pk,type:uuid" json:"id"`
	TargetType string    `bun:"target_type,notnull" json:"target_type"`
	TargetID   string    `bun:"target_id,notnull" json:"target_id"`
	Number     int       `bun:"number,notnull" json:"number"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Ref names a versioned aggregate.
type Ref struct {
	Type string
	ID   string
}

func (r Ref) String() string {
	return r.Type + ":" + r.ID
}

// ContentRef is the aggregate shared by every lifecycle row of one content identity and locale.
func ContentRef(contentID uuid.UUID, locale string) Ref {
	return Ref{Type: TargetContent, ID: contentID.String() + ":" + locale}
}

// LinkSetRef is the aggregate of a content identity's link set.
func LinkSetRef(contentID uuid.UUID) Ref {
	return Ref{Type: TargetLinkSet, ID: contentID.String()}
}

// ConflictError reports a stale expected version.
type ConflictError struct {
	Ref      Ref
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("versions: %s expected version %d but current is %d", e.Ref, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error {
	return ErrVersionConflict
}

// Ledger implements compare-and-swap version numbers on top of the lock_versions table.
// Every method takes the bun.IDB of the caller so the check joins the caller's transaction.
type Ledger struct {
	now func() time.Time
	id  func() uuid.UUID
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithIDGenerator overrides the entry id generator.
func WithIDGenerator(generator func() uuid.UUID) Option {
	return func(l *Ledger) {
		if generator != nil {
			l.id = generator
		}
	}
}

// NewLedger builds a ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		now: func() time.Time { return time.Now().UTC() },
		id:  uuid.New,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Current returns the stored version, or zero when the aggregate has no entry.
func (l *Ledger) Current(ctx context.Context, db bun.IDB, ref Ref) (int, error) {
	entry, err := l.find(ctx, db, ref)
	if err != nil || entry == nil {
		return 0, err
	}
	return entry.Number, nil
}

// Check compares expected against the stored version without writing. A nil
// expected version always passes.
func (l *Ledger) Check(ctx context.Context, db bun.IDB, ref Ref, expected *int) error {
	if expected == nil {
		return nil
	}
	current, err := l.Current(ctx, db, ref)
	if err != nil {
		return err
	}
	if current != *expected {
		return &ConflictError{Ref: ref, Expected: *expected, Actual: current}
	}
	return nil
}

// CheckAndIncrement verifies expected (when supplied) and bumps the version by one.
// An absent aggregate is created at version 1; supplying a non-zero expected
// version for an absent aggregate is a conflict.
func (l *Ledger) CheckAndIncrement(ctx context.Context, db bun.IDB, ref Ref, expected *int) (int, error) {
	entry, err := l.find(ctx, db, ref)
	if err != nil {
		return 0, err
	}

	if entry == nil {
		if expected != nil && *expected != 0 {
			return 0, &ConflictError{Ref: ref, Expected: *expected, Actual: 0}
		}
		created, err := l.create(ctx, db, ref)
		if err != nil {
			return 0, err
		}
		if created {
			return 1, nil
		}
		// A concurrent writer created the entry first.
		entry, err = l.find(ctx, db, ref)
		if err != nil {
			return 0, err
		}
		if entry == nil {
			return 0, fmt.Errorf("versions: create %s: entry not visible after conflict", ref)
		}
		if expected != nil {
			return 0, &ConflictError{Ref: ref, Expected: *expected, Actual: entry.Number}
		}
	}

	if expected != nil && *expected != entry.Number {
		return 0, &ConflictError{Ref: ref, Expected: *expected, Actual: entry.Number}
	}

	res, err := db.NewUpdate().
		Model((*LockVersion)(nil)).
		Set("number = number + 1").
		Set("updated_at = ?", l.now()).
		Where("id = ?", entry.ID).
		Where("number = ?", entry.Number).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("versions: increment %s: %w", ref, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		actual, _ := l.Current(ctx, db, ref)
		return 0, &ConflictError{Ref: ref, Expected: entry.Number, Actual: actual}
	}
	return entry.Number + 1, nil
}

// create inserts ref at version 1 and reports false when the entry already exists.
func (l *Ledger) create(ctx context.Context, db bun.IDB, ref Ref) (bool, error) {
	now := l.now()
	res, err := db.NewInsert().
		Model(&LockVersion{
			ID:         l.id(),
			TargetType: ref.Type,
			TargetID:   ref.ID,
			Number:     1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}).
		On("CONFLICT (target_type, target_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("versions: create %s: %w", ref, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("versions: create %s: %w", ref, err)
	}
	return affected == 1, nil
}

// Delete drops the entry; a later write starts again at version 1.
func (l *Ledger) Delete(ctx context.Context, db bun.IDB, ref Ref) error {
	_, err := db.NewDelete().
		Model((*LockVersion)(nil)).
		Where("target_type = ?", ref.Type).
		Where("target_id = ?", ref.ID).
		Exec(ctx)
	return err
}

func (l *Ledger) find(ctx context.Context, db bun.IDB, ref Ref) (*LockVersion, error) {
	var entry LockVersion
	err := db.NewSelect().
		Model(&entry).
		Where("?TableAlias.target_type = ?", ref.Type).
		Where("?TableAlias.target_id = ?", ref.ID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("versions: load %s: %w", ref, err)
	}
	return &entry, nil
}
