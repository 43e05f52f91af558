package items

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/domain"
)

const (
	RouteExact  = "exact"
	RoutePrefix = "prefix"
)

// Route is a path served by the item's rendering app.
type Route struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Redirect is a path answered with a redirect to Destination.
type Redirect struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Destination string `json:"destination"`
}

// Description wraps the free-form description so that bare strings survive a
// round trip through JSON columns.
type Description struct {
	Value any `json:"value"`
}

// ContentItem is one lifecycle row of a content identity in a locale.
type ContentItem struct {
	bun.BaseModel `bun:"table:content_items,alias:ci"`

	ID                  uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	ContentID           uuid.UUID      `bun:"content_id,notnull,type:uuid" json:"content_id"`
	Locale              string         `bun:"locale,notnull" json:"locale"`
	State               domain.State   `bun:"state,notnull" json:"state"`
	BasePath            string         `bun:"base_path" json:"base_path"`
	Format              string         `bun:"format,notnull" json:"format"`
	PublishingApp       string         `bun:"publishing_app,notnull" json:"publishing_app"`
	RenderingApp        string         `bun:"rendering_app" json:"rendering_app,omitempty"`
	Title               string         `bun:"title" json:"title,omitempty"`
	Description         Description    `bun:"description,type:jsonb" json:"description"`
	Details             map[string]any `bun:"details,type:jsonb" json:"details"`
	Routes              []Route        `bun:"routes,type:jsonb" json:"routes"`
	Redirects           []Redirect     `bun:"redirects,type:jsonb" json:"redirects"`
	Phase               string         `bun:"phase,notnull" json:"phase"`
	AnalyticsIdentifier string         `bun:"analytics_identifier" json:"analytics_identifier,omitempty"`
	NeedIDs             []string       `bun:"need_ids,type:jsonb" json:"need_ids"`
	UpdateType          string         `bun:"update_type" json:"update_type,omitempty"`
	PublicUpdatedAt     *time.Time     `bun:"public_updated_at" json:"public_updated_at,omitempty"`
	FirstPublishedAt    *time.Time     `bun:"first_published_at" json:"first_published_at,omitempty"`
	UserFacingVersion   int            `bun:"user_facing_version,notnull" json:"user_facing_version"`
	CreatedAt           time.Time      `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt           time.Time      `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Renderable reports whether the item is served by a rendering app.
func (c *ContentItem) Renderable() bool {
	return domain.Renderable(c.Format)
}

// Clone returns a copy safe to mutate without touching c's slices and maps.
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	out := *c
	out.Routes = append([]Route{}, c.Routes...)
	out.Redirects = append([]Redirect{}, c.Redirects...)
	out.NeedIDs = append([]string{}, c.NeedIDs...)
	if c.Details != nil {
		out.Details = cloneMap(c.Details)
	}
	out.Description = Description{Value: cloneValue(c.Description.Value)}
	if c.PublicUpdatedAt != nil {
		ts := *c.PublicUpdatedAt
		out.PublicUpdatedAt = &ts
	}
	if c.FirstPublishedAt != nil {
		ts := *c.FirstPublishedAt
		out.FirstPublishedAt = &ts
	}
	return &out
}

// Unpublishing records how a published item left the live stack. Rows are insert-only.
type Unpublishing struct {
	bun.BaseModel `bun:"table:unpublishings,alias:up"`

	ID              uuid.UUID               `bun:",pk,type:uuid" json:"id"`
	ContentItemID   uuid.UUID               `bun:"content_item_id,notnull,type:uuid" json:"content_item_id"`
	Type            domain.UnpublishingType `bun:"type,notnull" json:"type"`
	Explanation     string                  `bun:"explanation" json:"explanation,omitempty"`
	AlternativePath string                  `bun:"alternative_path" json:"alternative_path,omitempty"`
	CreatedAt       time.Time               `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}
