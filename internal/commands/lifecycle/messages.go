package lifecyclecmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
)

const (
	publishMessageType      = "publishing.content.publish"
	unpublishMessageType    = "publishing.content.unpublish"
	discardDraftMessageType = "publishing.content.discard_draft"
	redraftMessageType      = "publishing.content.redraft"
)

// PublishCommand promotes the draft of ContentID in Locale.
type PublishCommand struct {
	ContentID       uuid.UUID `json:"content_id"`
	Locale          string    `json:"locale,omitempty"`
	UpdateType      string    `json:"update_type"`
	PreviousVersion *int      `json:"previous_version,omitempty"`
	PublishingApp   string    `json:"publishing_app"`
}

// Type implements command.Message.
func (PublishCommand) Type() string { return publishMessageType }

func (m PublishCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ContentID, validation.By(requiredUUID("publish"))),
		validation.Field(&m.UpdateType, validation.Required, validation.By(func(value any) error {
			if !domain.ValidUpdateType(value.(string)) {
				return validation.NewError("publishing.content.publish.update_type_invalid", "update_type must be major, minor, republish or links")
			}
			return nil
		})),
		validation.Field(&m.PublishingApp, validation.By(requiredText("publish", "publishing_app"))),
	)
}

// UnpublishCommand withdraws, redirects or removes the live item.
type UnpublishCommand struct {
	ContentID       uuid.UUID `json:"content_id"`
	Locale          string    `json:"locale,omitempty"`
	Kind            string    `json:"type"`
	Explanation     string    `json:"explanation,omitempty"`
	AlternativePath string    `json:"alternative_path,omitempty"`
	DiscardDrafts   bool      `json:"discard_drafts,omitempty"`
	PreviousVersion *int      `json:"previous_version,omitempty"`
	PublishingApp   string    `json:"publishing_app"`
}

func (UnpublishCommand) Type() string { return unpublishMessageType }

// Validate checks presence only; the service owns the per-type rules so the
// ordering of its error responses is preserved.
func (m UnpublishCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ContentID, validation.By(requiredUUID("unpublish"))),
		validation.Field(&m.Kind, validation.By(requiredText("unpublish", "type"))),
		validation.Field(&m.PublishingApp, validation.By(requiredText("unpublish", "publishing_app"))),
	)
}

// DiscardDraftCommand deletes the draft of ContentID in Locale.
type DiscardDraftCommand struct {
	ContentID       uuid.UUID `json:"content_id"`
	Locale          string    `json:"locale,omitempty"`
	PreviousVersion *int      `json:"previous_version,omitempty"`
	PublishingApp   string    `json:"publishing_app"`
}

func (DiscardDraftCommand) Type() string { return discardDraftMessageType }

func (m DiscardDraftCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ContentID, validation.By(requiredUUID("discard_draft"))),
		validation.Field(&m.PublishingApp, validation.By(requiredText("discard_draft", "publishing_app"))),
	)
}

// RedraftCommand opens a new draft from the live item.
type RedraftCommand struct {
	ContentID     uuid.UUID `json:"content_id"`
	Locale        string    `json:"locale,omitempty"`
	PublishingApp string    `json:"publishing_app"`
}

func (RedraftCommand) Type() string { return redraftMessageType }

func (m RedraftCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ContentID, validation.By(requiredUUID("redraft"))),
		validation.Field(&m.PublishingApp, validation.By(requiredText("redraft", "publishing_app"))),
	)
}

func requiredUUID(action string) validation.RuleFunc {
	return func(value any) error {
		if id, _ := value.(uuid.UUID); id == uuid.Nil {
			return validation.NewError("publishing.content."+action+".content_id_required", "content_id is required")
		}
		return nil
	}
}

func requiredText(action, field string) validation.RuleFunc {
	return func(value any) error {
		if text, _ := value.(string); strings.TrimSpace(text) == "" {
			return validation.NewError("publishing.content."+action+"."+field+"_required", field+" is required")
		}
		return nil
	}
}
