package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/versions"
)

// LinkSet is the join row owning the links of one content identity.
type LinkSet struct {
	bun.BaseModel `bun:"table:link_sets,alias:ls"`

	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	ContentID uuid.UUID `bun:"content_id,notnull,type:uuid" json:"content_id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Link is one ordered edge of a link set.
type Link struct {
	bun.BaseModel `bun:"table:links,alias:l"`

	ID              uuid.UUID `bun:",pk,type:uuid" json:"id"`
	LinkSetID       uuid.UUID `bun:"link_set_id,notnull,type:uuid" json:"link_set_id"`
	LinkType        string    `bun:"link_type,notnull" json:"link_type"`
	TargetContentID uuid.UUID `bun:"target_content_id,notnull,type:uuid" json:"target_content_id"`
	Position        int       `bun:"position,notnull" json:"position"`
}

// Store persists link sets. Writes go through the version ledger.
type Store struct {
	ledger *versions.Ledger
	now    func() time.Time
	id     func() uuid.UUID
}

// NewStore builds a store sharing the supplied ledger.
func NewStore(ledger *versions.Ledger) *Store {
	if ledger == nil {
		ledger = versions.NewLedger()
	}
	return &Store{
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
		id:     uuid.New,
	}
}

// Put replaces the whole link set and returns the new link set version.
func (s *Store) Put(ctx context.Context, db bun.IDB, contentID uuid.UUID, links Links, expected *int) (int, error) {
	version, err := s.ledger.CheckAndIncrement(ctx, db, versions.LinkSetRef(contentID), expected)
	if err != nil {
		return 0, err
	}

	set, err := s.ensureSet(ctx, db, contentID)
	if err != nil {
		return 0, err
	}
	if _, err := db.NewDelete().Model((*Link)(nil)).Where("link_set_id = ?", set.ID).Exec(ctx); err != nil {
		return 0, fmt.Errorf("links: clear %s: %w", contentID, err)
	}
	if err := s.insertLinks(ctx, db, set.ID, links); err != nil {
		return 0, err
	}
	if _, err := db.NewUpdate().Model((*LinkSet)(nil)).Set("updated_at = ?", s.now()).Where("id = ?", set.ID).Exec(ctx); err != nil {
		return 0, fmt.Errorf("links: touch %s: %w", contentID, err)
	}
	return version, nil
}

// Get returns the link set and its version. A missing set yields empty links and version 0.
func (s *Store) Get(ctx context.Context, db bun.IDB, contentID uuid.UUID) (Links, int, error) {
	version, err := s.ledger.Current(ctx, db, versions.LinkSetRef(contentID))
	if err != nil {
		return nil, 0, err
	}
	set, err := s.findSet(ctx, db, contentID)
	if err != nil {
		return nil, 0, err
	}
	out := Links{}
	if set == nil {
		return out, version, nil
	}

	var rows []Link
	if err := db.NewSelect().
		Model(&rows).
		Where("?TableAlias.link_set_id = ?", set.ID).
		OrderExpr("?TableAlias.link_type ASC, ?TableAlias.position ASC").
		Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("links: load %s: %w", contentID, err)
	}
	for _, row := range rows {
		out[row.LinkType] = append(out[row.LinkType], row.TargetContentID)
	}
	return out, version, nil
}

// Delete removes the link set and its ledger entry.
func (s *Store) Delete(ctx context.Context, db bun.IDB, contentID uuid.UUID) error {
	set, err := s.findSet(ctx, db, contentID)
	if err != nil {
		return err
	}
	if set != nil {
		if _, err := db.NewDelete().Model((*Link)(nil)).Where("link_set_id = ?", set.ID).Exec(ctx); err != nil {
			return fmt.Errorf("links: delete links %s: %w", contentID, err)
		}
		if _, err := db.NewDelete().Model((*LinkSet)(nil)).Where("id = ?", set.ID).Exec(ctx); err != nil {
			return fmt.Errorf("links: delete set %s: %w", contentID, err)
		}
	}
	return s.ledger.Delete(ctx, db, versions.LinkSetRef(contentID))
}

// DeleteExceptTypes removes every link whose type is not listed in keep. The
// link set version is left untouched; the caller's following Put bumps it.
func (s *Store) DeleteExceptTypes(ctx context.Context, db bun.IDB, contentID uuid.UUID, keep []string) error {
	set, err := s.findSet(ctx, db, contentID)
	if err != nil || set == nil {
		return err
	}
	query := db.NewDelete().Model((*Link)(nil)).Where("link_set_id = ?", set.ID)
	if len(keep) > 0 {
		query = query.Where("link_type NOT IN (?)", bun.In(keep))
	}
	if _, err := query.Exec(ctx); err != nil {
		return fmt.Errorf("links: reset %s: %w", contentID, err)
	}
	return nil
}

func (s *Store) ensureSet(ctx context.Context, db bun.IDB, contentID uuid.UUID) (*LinkSet, error) {
	set, err := s.findSet(ctx, db, contentID)
	if err != nil || set != nil {
		return set, err
	}
	now := s.now()
	set = &LinkSet{ID: s.id(), ContentID: contentID, CreatedAt: now, UpdatedAt: now}
	if _, err := db.NewInsert().Model(set).Exec(ctx); err != nil {
		return nil, fmt.Errorf("links: create set %s: %w", contentID, err)
	}
	return set, nil
}

func (s *Store) findSet(ctx context.Context, db bun.IDB, contentID uuid.UUID) (*LinkSet, error) {
	var set LinkSet
	err := db.NewSelect().Model(&set).Where("?TableAlias.content_id = ?", contentID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("links: load set %s: %w", contentID, err)
	}
	return &set, nil
}

func (s *Store) insertLinks(ctx context.Context, db bun.IDB, setID uuid.UUID, links Links) error {
	rows := make([]Link, 0)
	for _, linkType := range links.Types() {
		for position, target := range links[linkType] {
			rows = append(rows, Link{
				ID:              s.id(),
				LinkSetID:       setID,
				LinkType:        linkType,
				TargetContentID: target,
				Position:        position,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("links: insert: %w", err)
	}
	return nil
}
