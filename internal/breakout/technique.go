package breakout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/angeloszaimis/link-unwrapper/internal/classify"
)

// Method is the browser API a navigation attempt uses.
type Method string

const (
	MethodTop     Method = "top"
	MethodAssign  Method = "assign"
	MethodReplace Method = "replace"
	MethodOpen    Method = "open"
	MethodClick   Method = "click"
)

// Target names what an attempt navigates to; it is resolved server side.
type Target string

const (
	TargetNext     Target = "next"
	TargetBlank    Target = "blank"
	TargetIntent   Target = "intent"
	TargetDeepLink Target = "deeplink"
)

// Attempt is one timed navigation step executed by the visitor's browser.
type Attempt struct {
	Method  Method
	Target  Target
	DelayMS int
}

// Techniques holds the ordered attempts per platform.
type Techniques struct {
	IOS     []Attempt
	Android []Attempt
	Other   []Attempt
}

func (t Techniques) For(p classify.Platform) []Attempt {
	switch p {
	case classify.PlatformIOS:
		return t.IOS
	case classify.PlatformAndroid:
		return t.Android
	default:
		return t.Other
	}
}

func ParseAttemptMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodTop, MethodAssign, MethodReplace, MethodOpen, MethodClick:
		return m, nil
	default:
		return "", fmt.Errorf("unknown navigation method %q", s)
	}
}

func ParseAttemptTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetNext, TargetBlank, TargetIntent, TargetDeepLink:
		return t, nil
	default:
		return "", fmt.Errorf("unknown navigation target %q", s)
	}
}

// DefaultTechniques returns the built-in attempt lists for a mode.
func DefaultTechniques(mode Mode) Techniques {
	switch mode {
	case ModeDirect:
		return Techniques{
			IOS: []Attempt{
				{MethodAssign, TargetNext, 0},
				{MethodAssign, TargetDeepLink, 100},
				{MethodAssign, TargetNext, 400},
			},
			Android: []Attempt{
				{MethodAssign, TargetNext, 0},
				{MethodAssign, TargetDeepLink, 100},
				{MethodOpen, TargetIntent, 300},
			},
			Other: []Attempt{
				{MethodAssign, TargetNext, 0},
			},
		}
	case ModeRelay:
		return Techniques{
			IOS: []Attempt{
				{MethodReplace, TargetBlank, 0},
				{MethodReplace, TargetNext, 500},
			},
			Android: []Attempt{{MethodReplace, TargetNext, 0}},
			Other:   []Attempt{{MethodReplace, TargetNext, 0}},
		}
	default:
		return Techniques{
			IOS: []Attempt{
				{MethodTop, TargetNext, 0},
				{MethodAssign, TargetNext, 100},
				{MethodReplace, TargetNext, 300},
				{MethodAssign, TargetNext, 600},
			},
			Android: []Attempt{
				{MethodTop, TargetNext, 0},
				{MethodOpen, TargetIntent, 200},
				{MethodAssign, TargetNext, 500},
			},
			Other: []Attempt{
				{MethodTop, TargetNext, 0},
				{MethodReplace, TargetNext, 250},
			},
		}
	}
}

// landingAttempts drive the document landing page for regular browsers.
var landingAttempts = []Attempt{
	{MethodTop, TargetNext, 0},
	{MethodClick, TargetNext, 0},
}

// step is an attempt with its target resolved to a concrete URL; it is the
// JSON payload read by the page script.
type step struct {
	Method Method `json:"method"`
	URL    string `json:"url"`
	Delay  int    `json:"delay"`
}

type links struct {
	next     string
	deepLink string
}

func resolve(attempts []Attempt, l links) []step {
	steps := make([]step, 0, len(attempts))
	for _, a := range attempts {
		var target string
		switch a.Target {
		case TargetNext:
			target = l.next
		case TargetBlank:
			target = "about:blank"
		case TargetIntent:
			target = intentURL(l.next)
		case TargetDeepLink:
			target = l.deepLink
		}
		if target == "" {
			continue
		}
		delay := a.DelayMS
		if delay < 0 {
			delay = 0
		}
		steps = append(steps, step{Method: a.Method, URL: target, Delay: delay})
	}
	return steps
}

// intentURL rewrites an http(s) URL into the Android intent form that asks
// the system to open it in Chrome, falling back to the plain URL.
func intentURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	rest := strings.TrimPrefix(raw, u.Scheme+"://")
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	return "intent://" + rest +
		"#Intent;scheme=" + u.Scheme +
		";package=com.android.chrome" +
		";S.browser_fallback_url=" + url.QueryEscape(raw) +
		";end"
}
