package lifecycle

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-publishing/internal/domain"
)

var (
	ErrNoLocation           = errors.New("lifecycle: content has no location")
	ErrDraftPresent         = errors.New("lifecycle: draft present")
	ErrInvalidUnpublishType = errors.New("lifecycle: invalid unpublishing type")
	ErrNoDraftToDiscard     = errors.New("lifecycle: no draft to discard")
	ErrServiceNotConfigured = errors.New("lifecycle: database is not configured")
)

func noLocation() error {
	return &domain.UnprocessableError{Reason: ErrNoLocation, Message: "Cannot unpublish content with no location"}
}

func draftPresent() error {
	return &domain.UnprocessableError{Reason: ErrDraftPresent, Message: "Cannot unpublish with a draft present"}
}

func invalidUnpublishType(kind string) error {
	return &domain.UnprocessableError{
		Reason:  ErrInvalidUnpublishType,
		Message: fmt.Sprintf("%s is not a valid unpublishing type", kind),
	}
}

func noDraftToDiscard() error {
	return &domain.UnprocessableError{
		Reason:  ErrNoDraftToDiscard,
		Message: "There is not a draft content item to discard, only a published one",
	}
}

func notFound(resource, key string) error {
	return &domain.NotFoundError{Resource: resource, Key: key}
}

func fieldError(field, message string) error {
	errs := domain.NewValidationError()
	errs.Add(field, message)
	return errs
}
