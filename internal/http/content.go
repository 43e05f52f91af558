package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/validation"
)

type contentPayload struct {
	BasePath            string           `json:"base_path"`
	Format              string           `json:"format"`
	Locale              string           `json:"locale"`
	PublishingApp       string           `json:"publishing_app"`
	RenderingApp        *string          `json:"rendering_app"`
	Title               *string          `json:"title"`
	Description         any              `json:"description"`
	Details             map[string]any   `json:"details"`
	Routes              []map[string]any `json:"routes"`
	Redirects           []map[string]any `json:"redirects"`
	Phase               string           `json:"phase"`
	AnalyticsIdentifier *string          `json:"analytics_identifier"`
	NeedIDs             []string         `json:"need_ids"`
	UpdateType          string           `json:"update_type"`
	PublicUpdatedAt     *string          `json:"public_updated_at"`
	Links               map[string]any   `json:"links"`
	PreviousVersion     json.RawMessage  `json:"previous_version"`
}

func (p contentPayload) attributes() (items.Attributes, error) {
	attrs := items.Attributes{
		Locale:              p.Locale,
		BasePath:            p.BasePath,
		Format:              p.Format,
		PublishingApp:       p.PublishingApp,
		RenderingApp:        deref(p.RenderingApp),
		Title:               deref(p.Title),
		Description:         p.Description,
		Details:             p.Details,
		Routes:              p.Routes,
		Redirects:           p.Redirects,
		Phase:               p.Phase,
		AnalyticsIdentifier: deref(p.AnalyticsIdentifier),
		NeedIDs:             p.NeedIDs,
		UpdateType:          p.UpdateType,
	}
	if raw := strings.TrimSpace(deref(p.PublicUpdatedAt)); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs := domain.NewValidationError()
			errs.Add("public_updated_at", "must be an RFC 3339 timestamp")
			return attrs, errs
		}
		parsed = parsed.UTC()
		attrs.PublicUpdatedAt = &parsed
	}
	return attrs, nil
}

type publishPayload struct {
	UpdateType      string          `json:"update_type"`
	Locale          string          `json:"locale"`
	PreviousVersion json.RawMessage `json:"previous_version"`
}

type unpublishPayload struct {
	Type            string          `json:"type"`
	Explanation     *string         `json:"explanation"`
	AlternativePath *string         `json:"alternative_path"`
	DiscardDrafts   bool            `json:"discard_drafts"`
	Locale          string          `json:"locale"`
	PreviousVersion json.RawMessage `json:"previous_version"`
}

type discardPayload struct {
	Locale          string          `json:"locale"`
	PreviousVersion json.RawMessage `json:"previous_version"`
}

type historyResponse struct {
	Results []*items.ContentItem `json:"results"`
}

func (api *API) handlePutContent(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload contentPayload
	if err := api.decodeBody(r, validation.EnvelopePutContent, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	attrs, err := payload.attributes()
	if err != nil {
		writeError(w, r, err)
		return
	}
	attrs.ContentID = id
	previous, err := previousVersion(payload.PreviousVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep, err := api.service.PutContent(r.Context(), lifecycle.PutContentRequest{
		Attributes:      attrs,
		Links:           payload.Links,
		PreviousVersion: previous,
		PublishingApp:   PublishingApp(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (api *API) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	query := r.URL.Query()
	rep, err := api.service.GetContent(r.Context(), lifecycle.GetContentRequest{
		ContentID: id,
		Locale:    strings.TrimSpace(query.Get("locale")),
		Live:      parseBoolQuery(query.Get("live"), false),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (api *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := api.service.History(r.Context(), id, strings.TrimSpace(r.URL.Query().Get("locale")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(rows) == 0 {
		writeError(w, r, &domain.NotFoundError{Resource: "content item", Key: id.String()})
		return
	}
	writeJSON(w, r, http.StatusOK, historyResponse{Results: rows})
}

func (api *API) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := uuidParam(r, "item_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	row, err := api.service.HistoryItem(r.Context(), id, item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, row)
}

func (api *API) handlePublish(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload publishPayload
	if err := api.decodeBody(r, validation.EnvelopePublish, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	previous, err := previousVersion(payload.PreviousVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := api.service.Publish(r.Context(), lifecycle.PublishRequest{
		ContentID:       id,
		Locale:          payload.Locale,
		UpdateType:      payload.UpdateType,
		PreviousVersion: previous,
		PublishingApp:   PublishingApp(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (api *API) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload unpublishPayload
	if err := api.decodeBody(r, validation.EnvelopeUnpublish, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	previous, err := previousVersion(payload.PreviousVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := api.service.Unpublish(r.Context(), lifecycle.UnpublishRequest{
		ContentID:       id,
		Locale:          payload.Locale,
		Type:            payload.Type,
		Explanation:     deref(payload.Explanation),
		AlternativePath: deref(payload.AlternativePath),
		DiscardDrafts:   payload.DiscardDrafts,
		PreviousVersion: previous,
		PublishingApp:   PublishingApp(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (api *API) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload discardPayload
	if err := api.decodeBody(r, validation.EnvelopeDiscardDraft, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	previous, err := previousVersion(payload.PreviousVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := api.service.DiscardDraft(r.Context(), lifecycle.DiscardDraftRequest{
		ContentID:       id,
		Locale:          payload.Locale,
		PreviousVersion: previous,
		PublishingApp:   PublishingApp(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rep == nil {
		// Nothing was ever live, so there is no item left to show.
		writeJSON(w, r, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (api *API) handleRedraft(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload discardPayload
	if err := api.decodeBody(r, validation.EnvelopeDiscardDraft, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := api.service.Redraft(r.Context(), lifecycle.RedraftRequest{
		ContentID:     id,
		Locale:        payload.Locale,
		PublishingApp: PublishingApp(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
