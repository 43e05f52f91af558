package http

import (
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/validation"
)

type linksPayload struct {
	Links           map[string]any  `json:"links"`
	PreviousVersion json.RawMessage `json:"previous_version"`
}

func (api *API) handlePatchLinks(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload linksPayload
	if err := api.decodeBody(r, validation.EnvelopePatchLinks, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	previous, err := previousVersion(payload.PreviousVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := api.service.PutLinkSet(r.Context(), lifecycle.PutLinkSetRequest{
		ContentID:       id,
		Links:           payload.Links,
		PreviousVersion: previous,
		PublishingApp:   PublishingApp(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (api *API) handleGetLinks(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := api.service.GetLinkSet(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}
