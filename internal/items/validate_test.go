package items_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/items"
)

func validGuide() items.Attributes {
	return items.Attributes{
		ContentID:     uuid.New(),
		BasePath:      "/vat-rates",
		Format:        "guide",
		PublishingApp: "publisher",
		RenderingApp:  "frontend",
		Title:         "VAT rates",
		Routes:        []map[string]any{{"path": "/vat-rates", "type": "exact"}},
	}
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	return validation.Fields
}

func hasMessage(messages []string, fragment string) bool {
	for _, msg := range messages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func TestValidateAcceptsWellFormedGuide(t *testing.T) {
	if err := items.Validate(validGuide(), nil); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	fields := fieldsOf(t, items.Validate(items.Attributes{Format: "guide"}, nil))
	for _, key := range []string{"content_id", "base_path", "publishing_app", "title", "rendering_app"} {
		if len(fields[key]) == 0 {
			t.Errorf("expected %s to be required, got %v", key, fields)
		}
	}
}

func TestValidateNonRenderableSkipsPresentationFields(t *testing.T) {
	attrs := items.Attributes{
		ContentID:     uuid.New(),
		BasePath:      "/vat-rates",
		Format:        domain.FormatGone,
		PublishingApp: "publisher",
		Routes:        []map[string]any{{"path": "/vat-rates", "type": "exact"}},
	}
	if err := items.Validate(attrs, nil); err != nil {
		t.Fatalf("gone items need no title or rendering app: %v", err)
	}
}

func TestValidateRoutesAndRedirects(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*items.Attributes)
		field    string
		fragment string
	}{
		{
			name: "route outside base path",
			mutate: func(a *items.Attributes) {
				a.Routes = append(a.Routes, map[string]any{"path": "/other", "type": "exact"})
			},
			field: "routes", fragment: "path must be below the base path",
		},
		{
			name: "duplicate routes",
			mutate: func(a *items.Attributes) {
				a.Routes = append(a.Routes, map[string]any{"path": "/vat-rates", "type": "prefix"})
			},
			field: "routes", fragment: "must have unique paths",
		},
		{
			name: "bad route type",
			mutate: func(a *items.Attributes) {
				a.Routes[0]["type"] = "fuzzy"
			},
			field: "routes", fragment: "type must be either 'exact' or 'prefix'",
		},
		{
			name: "extra keys",
			mutate: func(a *items.Attributes) {
				a.Routes[0]["handler"] = "x"
			},
			field: "routes", fragment: "unsupported keys: handler",
		},
		{
			name: "missing base route",
			mutate: func(a *items.Attributes) {
				a.Routes = []map[string]any{{"path": "/vat-rates/2024", "type": "exact"}}
			},
			field: "routes", fragment: "must include the base path",
		},
		{
			name: "redirect shadows route",
			mutate: func(a *items.Attributes) {
				a.Redirects = []map[string]any{{"path": "/vat-rates", "type": "exact", "destination": "/tax"}}
			},
			field: "redirects", fragment: "redirect path is a route path",
		},
		{
			name: "external redirect destination",
			mutate: func(a *items.Attributes) {
				a.Redirects = []map[string]any{{"path": "/vat-rates/old", "type": "exact", "destination": "https://example.com"}}
			},
			field: "redirects", fragment: "is not a valid redirect destination",
		},
		{
			name: "html rendition missing",
			mutate: func(a *items.Attributes) {
				a.Description = []any{map[string]any{"content_type": "text/govspeak", "content": "# rates"}}
			},
			field: "description", fragment: "text/html",
		},
		{
			name: "bad phase",
			mutate: func(a *items.Attributes) {
				a.Phase = "gamma"
			},
			field: "phase", fragment: "alpha, beta, or live",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attrs := validGuide()
			tc.mutate(&attrs)
			fields := fieldsOf(t, items.Validate(attrs, nil))
			if !hasMessage(fields[tc.field], tc.fragment) {
				t.Fatalf("expected %q under %s, got %v", tc.fragment, tc.field, fields)
			}
		})
	}
}

func TestValidateRedirectItem(t *testing.T) {
	attrs := items.Attributes{
		ContentID:     uuid.New(),
		BasePath:      "/vat-rates",
		Format:        domain.FormatRedirect,
		PublishingApp: "publisher",
		Routes:        []map[string]any{{"path": "/vat-rates", "type": "exact"}},
	}
	fields := fieldsOf(t, items.Validate(attrs, nil))
	if !hasMessage(fields["routes"], "redirect items cannot have routes") {
		t.Fatalf("expected routes rejected, got %v", fields)
	}
	if !hasMessage(fields["redirects"], "must include the base path") {
		t.Fatalf("expected base redirect required, got %v", fields)
	}
}

func TestValidateLocale(t *testing.T) {
	attrs := validGuide()
	attrs.Locale = "xx"
	fields := fieldsOf(t, items.Validate(attrs, func(locale string) bool { return locale == "en" }))
	if len(fields["locale"]) == 0 {
		t.Fatalf("expected locale error, got %v", fields)
	}
}

func TestReplaceFieldsKeepsIdentityColumns(t *testing.T) {
	current := validGuide().Item()
	current.ID = uuid.New()
	current.State = domain.StateDraft
	current.UserFacingVersion = 3
	current.AnalyticsIdentifier = "UA-1"

	incoming := validGuide().Item()
	incoming.Title = "New title"

	next := items.ReplaceFields(current, incoming)
	if next.ID != current.ID || next.ContentID != current.ContentID || next.UserFacingVersion != 3 {
		t.Fatalf("identity columns must be kept, got %+v", next)
	}
	if next.Title != "New title" {
		t.Fatalf("expected incoming title")
	}
	if next.AnalyticsIdentifier != "" {
		t.Fatalf("omitted fields must be reset, got %q", next.AnalyticsIdentifier)
	}
}
