package links

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
)

// ReservedLinkType is computed by the service and can never be written by clients.
const ReservedLinkType = "available_translations"

var linkTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Links maps a link type to an ordered list of target content identities.
type Links map[string][]uuid.UUID

// Types returns the link types in sorted order.
func (l Links) Types() []string {
	out := make([]string, 0, len(l))
	for key := range l {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (l Links) Clone() Links {
	if l == nil {
		return nil
	}
	out := make(Links, len(l))
	for key, targets := range l {
		out[key] = append([]uuid.UUID{}, targets...)
	}
	return out
}

// Strings renders the links with string identities for JSON payloads.
func (l Links) Strings() map[string][]string {
	out := make(map[string][]string, len(l))
	for key, targets := range l {
		values := make([]string, len(targets))
		for i, target := range targets {
			values[i] = target.String()
		}
		out[key] = values
	}
	return out
}

// ValidLinkType reports whether key may be stored as a link type.
func ValidLinkType(key string) bool {
	return key != ReservedLinkType && linkTypePattern.MatchString(key)
}

// ParseLinks validates a raw links payload. Every invalid key and every invalid
// value is found before the error is returned.
func ParseLinks(raw map[string]any) (Links, error) {
	errs := domain.NewValidationError()
	out := make(Links, len(raw))

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	invalidKeys := []string{}
	badValues := false
	for _, key := range keys {
		if !ValidLinkType(key) {
			invalidKeys = append(invalidKeys, key)
		}
		targets, ok := parseTargets(raw[key])
		if !ok {
			badValues = true
			continue
		}
		out[key] = targets
	}

	if len(invalidKeys) > 0 {
		errs.Add("links", fmt.Sprintf("Invalid link types: %s", strings.Join(invalidKeys, ", ")))
	}
	if badValues {
		errs.Add("links", "must map to lists of UUIDs")
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseTargets(value any) ([]uuid.UUID, bool) {
	switch list := value.(type) {
	case []uuid.UUID:
		return append([]uuid.UUID{}, list...), true
	case []string:
		out := make([]uuid.UUID, 0, len(list))
		for _, item := range list {
			id, err := uuid.Parse(item)
			if err != nil {
				return nil, false
			}
			out = append(out, id)
		}
		return out, true
	case []any:
		out := make([]uuid.UUID, 0, len(list))
		for _, item := range list {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			id, err := uuid.Parse(str)
			if err != nil {
				return nil, false
			}
			out = append(out, id)
		}
		return out, true
	default:
		return nil, false
	}
}
