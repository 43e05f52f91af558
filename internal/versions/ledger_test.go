package versions_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/storage"
	"github.com/goliatone/go-publishing/internal/versions"
	"github.com/goliatone/go-publishing/pkg/testsupport"
)

func intPtr(v int) *int { return &v }

func TestLedgerCheckAndIncrement(t *testing.T) {
	ctx := context.Background()
	db := testsupport.NewBunDB(t)
	if err := storage.CreateSchema(ctx, db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	ledger := versions.NewLedger()
	ref := versions.ContentRef(uuid.New(), "en")

	if _, err := ledger.CheckAndIncrement(ctx, db, ref, intPtr(3)); !errors.Is(err, versions.ErrVersionConflict) {
		t.Fatalf("expected conflict for absent aggregate with expected 3, got %v", err)
	}

	for want := 1; want <= 3; want++ {
		expected := want - 1
		got, err := ledger.CheckAndIncrement(ctx, db, ref, &expected)
		if err != nil {
			t.Fatalf("increment %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("expected version %d, got %d", want, got)
		}
	}

	_, err := ledger.CheckAndIncrement(ctx, db, ref, intPtr(1))
	var conflict *versions.ConflictError
	if !errors.As(err, &conflict) || conflict.Actual != 3 || conflict.Expected != 1 {
		t.Fatalf("expected conflict with actual 3, got %v", err)
	}

	got, err := ledger.CheckAndIncrement(ctx, db, ref, nil)
	if err != nil || got != 4 {
		t.Fatalf("unconditional increment: got %d, %v", got, err)
	}
}

func TestLedgerCheckDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	db := testsupport.NewBunDB(t)
	if err := storage.CreateSchema(ctx, db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	ledger := versions.NewLedger()
	ref := versions.LinkSetRef(uuid.New())

	if err := ledger.Check(ctx, db, ref, intPtr(0)); err != nil {
		t.Fatalf("absent aggregate matches version 0: %v", err)
	}
	if err := ledger.Check(ctx, db, ref, intPtr(2)); !errors.Is(err, versions.ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	current, err := ledger.Current(ctx, db, ref)
	if err != nil || current != 0 {
		t.Fatalf("expected no entry, got %d, %v", current, err)
	}

	if _, err := ledger.CheckAndIncrement(ctx, db, ref, nil); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := ledger.Delete(ctx, db, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if current, _ := ledger.Current(ctx, db, ref); current != 0 {
		t.Fatalf("expected reset after delete, got %d", current)
	}
}

func TestRefsSeparateLocales(t *testing.T) {
	id := uuid.New()
	if versions.ContentRef(id, "en") == versions.ContentRef(id, "fr") {
		t.Fatalf("locales must not share a version")
	}
	if versions.ContentRef(id, "en").String() == versions.LinkSetRef(id).String() {
		t.Fatalf("content and link set refs must differ")
	}
}

// racingWriter creates the ledger entry just before the ledger's own insert
// runs, as a concurrent command would.
type racingWriter struct {
	db    *bun.DB
	ref   versions.Ref
	fired bool
}

func (r *racingWriter) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	if r.fired || !strings.HasPrefix(event.Query, `INSERT INTO "lock_versions"`) {
		return ctx
	}
	r.fired = true
	now := time.Now().UTC()
	_, _ = r.db.NewInsert().Model(&versions.LockVersion{
		ID:         uuid.New(),
		TargetType: r.ref.Type,
		TargetID:   r.ref.ID,
		Number:     1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Exec(ctx)
	return ctx
}

func (r *racingWriter) AfterQuery(context.Context, *bun.QueryEvent) {}

func TestLedgerConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name     string
		expected *int
		version  int
		conflict bool
	}{
		{name: "expected zero conflicts", expected: intPtr(0), conflict: true},
		{name: "unconditional write increments", expected: nil, version: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := testsupport.NewBunDB(t)
			if err := storage.CreateSchema(ctx, db); err != nil {
				t.Fatalf("schema: %v", err)
			}
			ref := versions.ContentRef(uuid.New(), "en")
			writer := &racingWriter{db: db, ref: ref}
			db.AddQueryHook(writer)

			got, err := versions.NewLedger().CheckAndIncrement(ctx, db, ref, tc.expected)
			if !writer.fired {
				t.Fatalf("expected the competing insert to run")
			}
			if tc.conflict {
				var conflict *versions.ConflictError
				if !errors.As(err, &conflict) || conflict.Actual != 1 {
					t.Fatalf("expected conflict with actual 1, got %d, %v", got, err)
				}
				return
			}
			if err != nil || got != tc.version {
				t.Fatalf("expected version %d, got %d, %v", tc.version, got, err)
			}
		})
	}
}
