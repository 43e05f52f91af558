package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/links"
)

// Representation is the document served to clients and sent to content stores.
type Representation struct {
	ContentID           uuid.UUID           `json:"content_id"`
	Locale              string              `json:"locale"`
	BasePath            string              `json:"base_path"`
	Format              string              `json:"format"`
	PublishingApp       string              `json:"publishing_app"`
	RenderingApp        string              `json:"rendering_app,omitempty"`
	Title               string              `json:"title,omitempty"`
	Description         any                 `json:"description,omitempty"`
	Details             map[string]any      `json:"details"`
	Routes              []items.Route       `json:"routes"`
	Redirects           []items.Redirect    `json:"redirects"`
	Phase               string              `json:"phase,omitempty"`
	AnalyticsIdentifier string              `json:"analytics_identifier,omitempty"`
	NeedIDs             []string            `json:"need_ids,omitempty"`
	UpdateType          string              `json:"update_type,omitempty"`
	PublicUpdatedAt     *time.Time          `json:"public_updated_at,omitempty"`
	FirstPublishedAt    *time.Time          `json:"first_published_at,omitempty"`
	UserFacingVersion   int                 `json:"user_facing_version,omitempty"`
	PublicationState    domain.State        `json:"publication_state,omitempty"`
	LockVersion         int                 `json:"lock_version,omitempty"`
	PayloadVersion      int64               `json:"payload_version,omitempty"`
	Links               map[string][]string `json:"links"`
	WithdrawnNotice     *WithdrawnNotice    `json:"withdrawn_notice,omitempty"`
	Unpublishing        *UnpublishingView   `json:"unpublishing,omitempty"`
}

// WithdrawnNotice is embedded in the representation of withdrawn content.
type WithdrawnNotice struct {
	Explanation string    `json:"explanation"`
	WithdrawnAt time.Time `json:"withdrawn_at"`
}

// UnpublishingView exposes the latest unpublishing record of an item.
type UnpublishingView struct {
	Type            domain.UnpublishingType `json:"type"`
	Explanation     string                  `json:"explanation,omitempty"`
	AlternativePath string                  `json:"alternative_path,omitempty"`
}

// LinkSetView is the read model of a link set.
type LinkSetView struct {
	ContentID uuid.UUID           `json:"content_id"`
	Links     map[string][]string `json:"links"`
	Version   int                 `json:"version"`
}

func presentItem(item *items.ContentItem, set links.Links, lockVersion int) *Representation {
	rep := &Representation{
		ContentID:           item.ContentID,
		Locale:              item.Locale,
		BasePath:            item.BasePath,
		Format:              item.Format,
		PublishingApp:       item.PublishingApp,
		RenderingApp:        item.RenderingApp,
		Title:               item.Title,
		Description:         item.Description.Value,
		Details:             item.Details,
		Routes:              item.Routes,
		Redirects:           item.Redirects,
		Phase:               item.Phase,
		AnalyticsIdentifier: item.AnalyticsIdentifier,
		NeedIDs:             item.NeedIDs,
		UpdateType:          item.UpdateType,
		PublicUpdatedAt:     item.PublicUpdatedAt,
		FirstPublishedAt:    item.FirstPublishedAt,
		UserFacingVersion:   item.UserFacingVersion,
		PublicationState:    item.State,
		LockVersion:         lockVersion,
		Links:               set.Strings(),
	}
	if rep.Details == nil {
		rep.Details = map[string]any{}
	}
	if rep.Routes == nil {
		rep.Routes = []items.Route{}
	}
	if rep.Redirects == nil {
		rep.Redirects = []items.Redirect{}
	}
	return rep
}

func withUnpublishing(rep *Representation, record *items.Unpublishing) *Representation {
	if record == nil {
		return rep
	}
	rep.Unpublishing = &UnpublishingView{
		Type:            record.Type,
		Explanation:     record.Explanation,
		AlternativePath: record.AlternativePath,
	}
	if record.Type == domain.UnpublishWithdrawal {
		rep.WithdrawnNotice = &WithdrawnNotice{
			Explanation: record.Explanation,
			WithdrawnAt: record.CreatedAt,
		}
	}
	return rep
}

// presentRedirect replaces an unpublished item with an exact redirect.
func presentRedirect(item *items.ContentItem, destination string, at time.Time) *Representation {
	return &Representation{
		ContentID:       item.ContentID,
		Locale:          item.Locale,
		BasePath:        item.BasePath,
		Format:          domain.FormatRedirect,
		PublishingApp:   item.PublishingApp,
		PublicUpdatedAt: &at,
		Details:         map[string]any{},
		Routes:          []items.Route{},
		Redirects: []items.Redirect{{
			Path:        item.BasePath,
			Type:        items.RouteExact,
			Destination: destination,
		}},
		Links: map[string][]string{},
	}
}

// presentGone marks the item's path as gone, optionally pointing elsewhere.
func presentGone(item *items.ContentItem, explanation, alternativePath string, at time.Time) *Representation {
	details := map[string]any{}
	if explanation != "" {
		details["explanation"] = explanation
	}
	if alternativePath != "" {
		details["alternative_path"] = alternativePath
	}
	return &Representation{
		ContentID:       item.ContentID,
		Locale:          item.Locale,
		BasePath:        item.BasePath,
		Format:          domain.FormatGone,
		PublishingApp:   item.PublishingApp,
		PublicUpdatedAt: &at,
		Details:         details,
		Routes: []items.Route{{
			Path: item.BasePath,
			Type: items.RouteExact,
		}},
		Redirects: []items.Redirect{},
		Links:     map[string][]string{},
	}
}
