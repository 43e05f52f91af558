package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-publishing/internal/downstream"
)

var errBadQuery = errors.New("invalid query parameter")

type deliveryFailuresResponse struct {
	Results []downstream.Failure `json:"results"`
}

// handleDeliveryFailures lists downstream deliveries the worker gave up on.
func (api *API) handleDeliveryFailures(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := downstream.FailureFilter{
		BasePath: strings.TrimSpace(query.Get("base_path")),
	}
	switch target := downstream.Target(strings.TrimSpace(query.Get("target"))); target {
	case "", downstream.TargetDraft, downstream.TargetLive, downstream.TargetArchive:
		filter.Target = target
	default:
		writeError(w, r, errBadQuery)
		return
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, r, errBadQuery)
			return
		}
		filter.Limit = limit
	}

	failures, err := api.failures.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, deliveryFailuresResponse{Results: failures})
}
