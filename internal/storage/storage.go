package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-publishing/internal/events"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/links"
	"github.com/goliatone/go-publishing/internal/paths"
	"github.com/goliatone/go-publishing/internal/versions"
)

// Open connects to the configured database. sqlite runs on a single connection
// so that transactions serialise the same way they would on a server database.
func Open(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open sqlite: %w", err)
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		db.SetMaxOpenConns(1)
		return db, nil
	case "postgres", "pg":
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", driver)
	}
}

// Models lists every table owned by the service.
func Models() []any {
	return []any{
		(*versions.LockVersion)(nil),
		(*paths.Reservation)(nil),
		(*links.LinkSet)(nil),
		(*links.Link)(nil),
		(*items.ContentItem)(nil),
		(*items.Unpublishing)(nil),
		(*events.Event)(nil),
	}
}

var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS lock_versions_target_idx ON lock_versions (target_type, target_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS path_reservations_base_path_idx ON path_reservations (base_path)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS link_sets_content_id_idx ON link_sets (content_id)`,
	`CREATE INDEX IF NOT EXISTS links_link_set_idx ON links (link_set_id, link_type, position)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS content_items_one_draft_idx ON content_items (content_id, locale) WHERE state = 'draft'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS content_items_one_published_idx ON content_items (content_id, locale) WHERE state = 'published'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS content_items_live_path_idx ON content_items (base_path, locale) WHERE state = 'published'`,
	`CREATE INDEX IF NOT EXISTS content_items_path_idx ON content_items (base_path, locale, state)`,
	`CREATE INDEX IF NOT EXISTS unpublishings_item_idx ON unpublishings (content_item_id)`,
	`CREATE INDEX IF NOT EXISTS events_content_id_idx ON events (content_id)`,
}

// CreateSchema creates the tables and indexes when they are missing.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table for %T: %w", model, err)
		}
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: create index: %w", err)
		}
	}
	return nil
}
