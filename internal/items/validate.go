package items

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/paths"
)

const htmlContentType = "text/html"

var hostnamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*$`)

// LocaleChecker reports whether a locale is supported.
type LocaleChecker func(locale string) bool

// Validate checks a put-content payload and returns every problem at once as a
// *domain.ValidationError.
func Validate(a Attributes, supported LocaleChecker) error {
	a = a.Normalize()
	renderable := domain.Renderable(a.Format)

	err := validation.ValidateStruct(&a,
		validation.Field(&a.BasePath,
			validation.Required.Error("can't be blank"),
			validation.By(func(value any) error {
				if !paths.ValidAbsolutePath(value.(string)) {
					return validation.NewError("base_path_invalid", "is not a valid absolute URL path")
				}
				return nil
			}),
		),
		validation.Field(&a.Format, validation.Required.Error("can't be blank")),
		validation.Field(&a.PublishingApp, validation.Required.Error("can't be blank")),
		validation.Field(&a.Title, validation.When(renderable, validation.Required.Error("can't be blank"))),
		validation.Field(&a.RenderingApp,
			validation.When(renderable, validation.Required.Error("can't be blank")),
			validation.By(func(value any) error {
				str := value.(string)
				if str != "" && !hostnamePattern.MatchString(str) {
					return validation.NewError("rendering_app_invalid", "is not a valid hostname")
				}
				return nil
			}),
		),
		validation.Field(&a.Locale, validation.By(func(value any) error {
			if supported != nil && !supported(value.(string)) {
				return validation.NewError("locale_unsupported", "must be a supported locale")
			}
			return nil
		})),
		validation.Field(&a.Phase, validation.By(func(value any) error {
			if !domain.ValidPhase(value.(string)) {
				return validation.NewError("phase_invalid", "must be either alpha, beta, or live")
			}
			return nil
		})),
		validation.Field(&a.UpdateType, validation.By(func(value any) error {
			str := value.(string)
			if str != "" && !domain.ValidUpdateType(str) {
				return validation.NewError("update_type_invalid", "is not a valid update type")
			}
			return nil
		})),
	)

	errs := domain.NewValidationError()
	collectOzzo(errs, err)
	if a.ContentID == uuid.Nil {
		errs.Add("content_id", "can't be blank")
	}

	if !wellFormedContentTypes(a.Description) {
		errs.Add("description", "must include the text/html content type")
	}
	for key, value := range a.Details {
		if !wellFormedContentTypes(value) {
			errs.Add("details", fmt.Sprintf("%s must include the text/html content type", key))
		}
	}

	if paths.ValidAbsolutePath(a.BasePath) {
		for _, msg := range validateRoutes(a) {
			errs.Add("routes", msg)
		}
		for _, msg := range validateRedirects(a) {
			errs.Add("redirects", msg)
		}
	}
	return errs.OrNil()
}

func collectOzzo(errs *domain.ValidationError, err error) {
	if err == nil {
		return
	}
	fieldErrs, ok := err.(validation.Errors)
	if !ok {
		errs.Add("base", err.Error())
		return
	}
	for field, fieldErr := range fieldErrs {
		errs.Add(field, fieldErr.Error())
	}
}

// wellFormedContentTypes accepts plain values and requires lists of
// {content_type, content} entries to carry an HTML rendition.
func wellFormedContentTypes(value any) bool {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return true
	}
	typed := false
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return true
		}
		contentType, ok := obj["content_type"].(string)
		if !ok {
			return true
		}
		typed = true
		if contentType == htmlContentType {
			return true
		}
	}
	return !typed
}

func validateRoutes(a Attributes) []string {
	msgs := []string{}
	seen := map[string]bool{}
	duplicate := false
	hasBase := false
	for _, entry := range a.Routes {
		msgs = append(msgs, checkEntry(entry, a.BasePath, []string{"path", "type"})...)
		path := stringValue(entry["path"])
		if seen[path] {
			duplicate = true
		}
		seen[path] = true
		if path == a.BasePath {
			hasBase = true
		}
	}
	if duplicate {
		msgs = append(msgs, "must have unique paths")
	}
	if a.Format == domain.FormatRedirect {
		if len(a.Routes) > 0 {
			msgs = append(msgs, "redirect items cannot have routes")
		}
	} else if !hasBase {
		msgs = append(msgs, "must include the base path")
	}
	return uniq(msgs)
}

func validateRedirects(a Attributes) []string {
	msgs := []string{}
	seen := map[string]bool{}
	duplicate := false
	hasBase := false
	routePaths := map[string]bool{}
	for _, route := range a.Routes {
		routePaths[stringValue(route["path"])] = true
	}
	for _, entry := range a.Redirects {
		msgs = append(msgs, checkEntry(entry, a.BasePath, []string{"path", "type", "destination"})...)
		path := stringValue(entry["path"])
		if seen[path] {
			duplicate = true
		}
		seen[path] = true
		if path == a.BasePath {
			hasBase = true
		}
		if routePaths[path] {
			msgs = append(msgs, "redirect path is a route path")
		}
		destination := stringValue(entry["destination"])
		switch stringValue(entry["type"]) {
		case RouteExact:
			if !paths.ValidRedirectDestination(destination) {
				msgs = append(msgs, "is not a valid redirect destination")
			}
		case RoutePrefix:
			if !paths.ValidAbsolutePath(destination) {
				msgs = append(msgs, "is not a valid absolute URL path")
			}
		}
	}
	if duplicate {
		msgs = append(msgs, "must have unique paths")
	}
	if a.Format == domain.FormatRedirect && !hasBase {
		msgs = append(msgs, "must include the base path")
	}
	return uniq(msgs)
}

func checkEntry(entry map[string]any, basePath string, allowed []string) []string {
	msgs := []string{}
	extra := []string{}
	for key := range entry {
		if !contains(allowed, key) {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		msgs = append(msgs, "unsupported keys: "+strings.Join(extra, ", "))
	}

	path, _ := entry["path"].(string)
	switch {
	case path == "":
		msgs = append(msgs, "path is required")
	case !paths.ValidAbsolutePath(path):
		msgs = append(msgs, "is not a valid absolute URL path")
	case !paths.IsBelow(path, basePath):
		msgs = append(msgs, "path must be below the base path")
	}

	switch kind, _ := entry["type"].(string); kind {
	case RouteExact, RoutePrefix:
	default:
		msgs = append(msgs, "type must be either 'exact' or 'prefix'")
	}
	return msgs
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func uniq(msgs []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if seen[msg] {
			continue
		}
		seen[msg] = true
		out = append(out, msg)
	}
	return out
}
