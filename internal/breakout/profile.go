package breakout

import (
	"fmt"
	"net/http"
	"strings"
)

type Mode string

const (
	ModeTwoStage Mode = "two-stage"
	ModeDirect   Mode = "direct"
	ModeRelay    Mode = "relay"
)

type Landing string

const (
	LandingRedirect Landing = "redirect"
	LandingDocument Landing = "document"
)

type ErrorFormat string

const (
	ErrorFormatText ErrorFormat = "text"
	ErrorFormatJSON ErrorFormat = "json"
)

// Profile is the per-endpoint behaviour of the sequencer.
type Profile struct {
	Name           string
	Path           string
	Mode           Mode
	Landing        Landing
	RedirectStatus int
	ErrorFormat    ErrorFormat
	// RefreshDelay is the meta refresh delay, in seconds, on breakout documents.
	RefreshDelay int
	// Techniques overrides DefaultTechniques(Mode) per platform; a nil
	// list keeps the mode's default for that platform.
	Techniques Techniques
}

// WithDefaults fills zero fields.
func (p Profile) WithDefaults() Profile {
	if p.Mode == "" {
		p.Mode = ModeTwoStage
	}
	if p.Landing == "" {
		p.Landing = LandingRedirect
	}
	if p.RedirectStatus == 0 {
		p.RedirectStatus = http.StatusFound
	}
	if p.ErrorFormat == "" {
		p.ErrorFormat = ErrorFormatText
	}
	if p.RefreshDelay < 0 {
		p.RefreshDelay = 0
	}
	defaults := DefaultTechniques(p.Mode)
	if p.Techniques.IOS == nil {
		p.Techniques.IOS = defaults.IOS
	}
	if p.Techniques.Android == nil {
		p.Techniques.Android = defaults.Android
	}
	if p.Techniques.Other == nil {
		p.Techniques.Other = defaults.Other
	}
	return p
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTwoStage, ModeDirect, ModeRelay:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

func ParseLanding(s string) (Landing, error) {
	switch l := Landing(strings.ToLower(strings.TrimSpace(s))); l {
	case LandingRedirect, LandingDocument:
		return l, nil
	default:
		return "", fmt.Errorf("unknown landing %q", s)
	}
}

func ParseErrorFormat(s string) (ErrorFormat, error) {
	switch f := ErrorFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ErrorFormatText, ErrorFormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown error format %q", s)
	}
}

// DefaultProfiles mirrors the endpoints the service has always exposed.
func DefaultProfiles() []Profile {
	return []Profile{
		Profile{Name: "unwrap", Path: "/unwrap", Mode: ModeTwoStage}.WithDefaults(),
		Profile{Name: "direct", Path: "/direct", Mode: ModeDirect}.WithDefaults(),
		Profile{Name: "breakout", Path: "/breakout", Mode: ModeRelay, RefreshDelay: 2}.WithDefaults(),
		Profile{Name: "api", Path: "/api/redirect", Mode: ModeDirect, Landing: LandingDocument, ErrorFormat: ErrorFormatJSON}.WithDefaults(),
	}
}
