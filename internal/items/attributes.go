package items

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
)

// Attributes is the client-supplied body of a put-content request. Routes and
// redirects stay raw so that unsupported keys can be reported.
type Attributes struct {
	ContentID           uuid.UUID        `json:"content_id"`
	Locale              string           `json:"locale"`
	BasePath            string           `json:"base_path"`
	Format              string           `json:"format"`
	PublishingApp       string           `json:"publishing_app"`
	RenderingApp        string           `json:"rendering_app"`
	Title               string           `json:"title"`
	Description         any              `json:"description"`
	Details             map[string]any   `json:"details"`
	Routes              []map[string]any `json:"routes"`
	Redirects           []map[string]any `json:"redirects"`
	Phase               string           `json:"phase"`
	AnalyticsIdentifier string           `json:"analytics_identifier"`
	NeedIDs             []string         `json:"need_ids"`
	UpdateType          string           `json:"update_type"`
	PublicUpdatedAt     *time.Time       `json:"public_updated_at"`
}

// Normalize applies column defaults to unset fields.
func (a Attributes) Normalize() Attributes {
	a.Locale = strings.TrimSpace(a.Locale)
	if a.Locale == "" {
		a.Locale = domain.DefaultLocale
	}
	a.BasePath = strings.TrimSpace(a.BasePath)
	a.Format = strings.TrimSpace(a.Format)
	if a.Phase == "" {
		a.Phase = string(domain.PhaseLive)
	}
	return a
}

// Item converts validated attributes into an unsaved draft row. Identity, state and
// version columns are left for the caller.
func (a Attributes) Item() *ContentItem {
	a = a.Normalize()
	item := &ContentItem{
		ContentID:           a.ContentID,
		Locale:              a.Locale,
		BasePath:            a.BasePath,
		Format:              a.Format,
		PublishingApp:       a.PublishingApp,
		RenderingApp:        a.RenderingApp,
		Title:               a.Title,
		Description:         Description{Value: cloneValue(a.Description)},
		Details:             map[string]any{},
		Routes:              parseRoutes(a.Routes),
		Redirects:           parseRedirects(a.Redirects),
		Phase:               a.Phase,
		AnalyticsIdentifier: a.AnalyticsIdentifier,
		NeedIDs:             append([]string{}, a.NeedIDs...),
		UpdateType:          a.UpdateType,
	}
	if a.Details != nil {
		item.Details = cloneMap(a.Details)
	}
	if a.PublicUpdatedAt != nil {
		ts := a.PublicUpdatedAt.UTC()
		item.PublicUpdatedAt = &ts
	}
	return item
}

// ReplaceFields returns next = incoming with the protected fields of current kept.
// Every other field is taken from incoming, so values left out of a request are
// reset to their defaults rather than carried over from the previous draft.
func ReplaceFields(current, incoming *ContentItem) *ContentItem {
	next := incoming.Clone()
	if current == nil {
		return next
	}
	next.ID = current.ID
	next.ContentID = current.ContentID
	next.Locale = current.Locale
	next.State = current.State
	next.CreatedAt = current.CreatedAt
	next.UserFacingVersion = current.UserFacingVersion
	next.FirstPublishedAt = current.FirstPublishedAt
	return next
}

func parseRoutes(raw []map[string]any) []Route {
	out := make([]Route, 0, len(raw))
	for _, entry := range raw {
		out = append(out, Route{
			Path: stringValue(entry["path"]),
			Type: stringValue(entry["type"]),
		})
	}
	return out
}

func parseRedirects(raw []map[string]any) []Redirect {
	out := make([]Redirect, 0, len(raw))
	for _, entry := range raw {
		out = append(out, Redirect{
			Path:        stringValue(entry["path"]),
			Type:        stringValue(entry["type"]),
			Destination: stringValue(entry["destination"]),
		})
	}
	return out
}

func stringValue(value any) string {
	str, _ := value.(string)
	return str
}
