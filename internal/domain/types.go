package domain

// State is the lifecycle state stored on every content item row.
type State string

const (
	// StateDraft is the editable copy; at most one per content identity and locale.
	StateDraft State = "draft"
	// StatePublished is the live copy; at most one per content identity and locale.
	StatePublished State = "published"
	// StateUnpublished is a former live copy that was withdrawn, redirected or gone.
	StateUnpublished State = "unpublished"
	// StateSuperseded is a former live copy replaced at the same base path.
	StateSuperseded State = "superseded"
)

// UnpublishingType enumerates the ways a published item can leave the live stack.
type UnpublishingType string

const (
	UnpublishWithdrawal UnpublishingType = "withdrawal"
	UnpublishRedirect   UnpublishingType = "redirect"
	UnpublishGone       UnpublishingType = "gone"
)

// Phase is the maturity label shown by rendering apps.
type Phase string

const (
	PhaseAlpha Phase = "alpha"
	PhaseBeta  Phase = "beta"
	PhaseLive  Phase = "live"
)

// UpdateType classifies a publish for downstream consumers.
type UpdateType string

const (
	UpdateMajor     UpdateType = "major"
	UpdateMinor     UpdateType = "minor"
	UpdateRepublish UpdateType = "republish"
	UpdateLinks     UpdateType = "links"
)

const (
	FormatRedirect = "redirect"
	FormatGone     = "gone"
)

// DefaultLocale is applied when a command omits the locale.
const DefaultLocale = "en"
