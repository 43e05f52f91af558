package domain

import "strings"

// ParseState normalises a stored state value. Unknown values return false.
func ParseState(value string) (State, bool) {
	switch State(strings.ToLower(strings.TrimSpace(value))) {
	case StateDraft:
		return StateDraft, true
	case StatePublished:
		return StatePublished, true
	case StateUnpublished:
		return StateUnpublished, true
	case StateSuperseded:
		return StateSuperseded, true
	default:
		return "", false
	}
}

// IsLive reports whether the state belongs on the live content store.
func (s State) IsLive() bool {
	return s == StatePublished || s == StateUnpublished
}

// ParseUnpublishingType returns false for unknown kinds.
func ParseUnpublishingType(value string) (UnpublishingType, bool) {
	switch UnpublishingType(strings.TrimSpace(value)) {
	case UnpublishWithdrawal:
		return UnpublishWithdrawal, true
	case UnpublishRedirect:
		return UnpublishRedirect, true
	case UnpublishGone:
		return UnpublishGone, true
	default:
		return "", false
	}
}

// ValidPhase reports whether phase is one of alpha, beta or live.
func ValidPhase(phase string) bool {
	switch Phase(phase) {
	case PhaseAlpha, PhaseBeta, PhaseLive:
		return true
	}
	return false
}

// ValidUpdateType reports whether value names a known update type.
func ValidUpdateType(value string) bool {
	switch UpdateType(value) {
	case UpdateMajor, UpdateMinor, UpdateRepublish, UpdateLinks:
		return true
	}
	return false
}

// Renderable reports whether items of this format are rendered by a frontend.
// Redirect and gone items only exist to answer routing requests.
func Renderable(format string) bool {
	switch strings.TrimSpace(format) {
	case FormatRedirect, FormatGone:
		return false
	}
	return true
}
