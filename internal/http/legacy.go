package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/validation"
)

type legacyContentPayload struct {
	contentPayload
	ContentID *string `json:"content_id"`
}

type reservePathPayload struct {
	PublishingApp string `json:"publishing_app"`
}

type reservePathResponse struct {
	BasePath      string `json:"base_path"`
	PublishingApp string `json:"publishing_app"`
}

// handlePutContentWithLinks writes, links and publishes in one call. Bodies
// without a content_id only reserve the path and are forwarded unchanged.
func (api *API) handlePutContentWithLinks(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var payload legacyContentPayload
	if err := api.decodeBody(r, validation.EnvelopePutContentWithLinks, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	attrs, err := payload.attributes()
	if err != nil {
		writeError(w, r, err)
		return
	}
	basePath := wildcardPath(r)
	attrs.BasePath = basePath

	req := lifecycle.PutContentWithLinksRequest{
		BasePath:      basePath,
		Attributes:    attrs,
		Links:         payload.Links,
		UpdateType:    payload.UpdateType,
		PublishingApp: PublishingApp(r.Context()),
	}
	if rawID := strings.TrimSpace(deref(payload.ContentID)); rawID != "" {
		id, err := uuid.Parse(rawID)
		if err != nil {
			errs := domain.NewValidationError()
			errs.Add("content_id", "must be a UUID")
			writeError(w, r, errs)
			return
		}
		req.Attributes.ContentID = id
	} else {
		var body map[string]any
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				writeError(w, r, err)
				return
			}
		}
		req.Body = body
	}

	rep, err := api.service.PutContentWithLinks(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (api *API) handleReservePath(w http.ResponseWriter, r *http.Request) {
	var payload reservePathPayload
	if err := api.decodeBody(r, validation.EnvelopeReservePath, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	app := strings.TrimSpace(payload.PublishingApp)
	if app == "" {
		app = PublishingApp(r.Context())
	}
	basePath := wildcardPath(r)
	if err := api.service.ReservePath(r.Context(), lifecycle.ReservePathRequest{
		BasePath:      basePath,
		PublishingApp: app,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reservePathResponse{BasePath: basePath, PublishingApp: app})
}

func (api *API) handlePathOwner(w http.ResponseWriter, r *http.Request) {
	basePath := wildcardPath(r)
	owner, err := api.service.PathOwner(r.Context(), basePath)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reservePathResponse{BasePath: basePath, PublishingApp: owner})
}
