package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/paths"
	"github.com/goliatone/go-publishing/internal/validation"
	"github.com/goliatone/go-publishing/internal/versions"
)

const maxBodyBytes = 4 << 20

type errorBody struct {
	Code    int                          `json:"code"`
	Message string                       `json:"message"`
	Fields  map[string][]string          `json:"fields,omitempty"`
	Issues  []validation.ValidationIssue `json:"issues,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

var errMalformedBody = errors.New("malformed request body")

// decodeBody reads the request body, checks it against envelope and decodes
// it into target. An empty body is treated as {}.
func (api *API) decodeBody(r *http.Request, envelope validation.Envelope, target any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var generic any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := api.validator.Validate(envelope, generic); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	render.Status(r, status)
	render.JSON(w, r, payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	writeJSON(w, r, status, errorResponse{Error: body})
}

func mapError(err error) (int, errorBody) {
	if err == nil {
		return http.StatusInternalServerError, errorBody{Code: http.StatusInternalServerError, Message: "unknown error"}
	}
	body := errorBody{Message: err.Error()}

	var fieldErrs *domain.ValidationError
	switch {
	case errors.Is(err, errMalformedBody),
		errors.Is(err, errBadQuery):
		body.Code = http.StatusBadRequest
	case errors.Is(err, validation.ErrSchemaValidation):
		body.Code = http.StatusBadRequest
		body.Issues = validation.Issues(err)
	case errors.As(err, &fieldErrs):
		body.Code = http.StatusUnprocessableEntity
		body.Fields = fieldErrs.Fields
	case errors.Is(err, versions.ErrVersionConflict),
		errors.Is(err, paths.ErrOwnershipConflict):
		body.Code = http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		body.Code = http.StatusNotFound
	case errors.Is(err, domain.ErrUnprocessable),
		errors.Is(err, paths.ErrInvalidPath),
		errors.Is(err, paths.ErrPublishingAppRequired):
		body.Code = http.StatusUnprocessableEntity
	default:
		body.Code = http.StatusInternalServerError
	}
	return body.Code, body
}

func contentID(r *http.Request) (uuid.UUID, error) {
	return uuidParam(r, "content_id")
}

// uuidParam parses a URL parameter; a malformed id is reported as not found.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &domain.NotFoundError{Resource: "content item", Key: raw}
	}
	return id, nil
}

// wildcardPath rebuilds the absolute base path captured by a "/*" route.
func wildcardPath(r *http.Request) string {
	return "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
}

// previousVersion accepts an integer or a numeric string.
func previousVersion(raw json.RawMessage) (*int, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	trimmed = strings.Trim(trimmed, `"`)
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		errs := domain.NewValidationError()
		errs.Add("previous_version", "must be an integer")
		return nil, errs
	}
	return &value, nil
}

func parseBoolQuery(value string, defaultValue bool) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return defaultValue
	}
	return parsed
}
