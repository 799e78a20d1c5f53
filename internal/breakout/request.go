package breakout

import (
	"net/url"
	"strings"
)

// Query parameters understood by every profile.
const (
	ParamURL      = "url"
	ParamStage    = "stage"
	ParamForceWeb = "forceweb"
	ParamDest     = "dest"
	ParamAndroid  = "android"
	ParamIOS      = "ios"
)

const (
	StageBreakout = "1"
	StageLand     = "2"
)

// Request is everything the sequencer needs from one inbound request.
type Request struct {
	Target string
	// TargetMalformed is set when a url parameter was present but could not
	// be query-decoded. Such a request is invalid, not missing its target.
	TargetMalformed bool
	Stage           string
	ForceWeb        bool
	Dest            string
	IOSLink         string
	AndroidLink     string
	UserAgent       string
	// Self is the absolute URL of the current request. The stage-2 hop is
	// built from it.
	Self *url.URL
}

// RequestFromURL reads the recognised parameters from self's query string.
func RequestFromURL(self *url.URL, userAgent string) Request {
	var (
		q         url.Values
		malformed map[string]bool
	)
	if self != nil {
		q, malformed = queryValues(self.RawQuery)
	}
	stage := strings.TrimSpace(q.Get(ParamStage))
	if stage == "" {
		stage = StageBreakout
	}
	return Request{
		Target:          q.Get(ParamURL),
		TargetMalformed: malformed[ParamURL] && !q.Has(ParamURL),
		Stage:           stage,
		ForceWeb:        parseFlag(q.Get(ParamForceWeb)),
		Dest:            q.Get(ParamDest),
		IOSLink:         q.Get(ParamIOS),
		AndroidLink:     q.Get(ParamAndroid),
		UserAgent:       userAgent,
		Self:            self,
	}
}

// queryValues parses rawQuery like url.ParseQuery and also names the keys
// whose pairs were dropped because they did not decode.
func queryValues(rawQuery string) (url.Values, map[string]bool) {
	q, err := url.ParseQuery(rawQuery)
	if err == nil {
		return q, nil
	}

	malformed := make(map[string]bool)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if i := strings.IndexByte(key, ';'); i >= 0 {
			key = key[:i]
		}
		name, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}
		if strings.Contains(pair, ";") {
			malformed[name] = true
			continue
		}
		if _, err := url.QueryUnescape(value); err != nil {
			malformed[name] = true
		}
	}
	return q, malformed
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
