package breakout

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angeloszaimis/link-unwrapper/internal/classify"
	"github.com/angeloszaimis/link-unwrapper/internal/rewrite"
)

const (
	titleBreakout   = "Opening in your browser..."
	titleRedirect   = "Redirecting..."
	messageBreakout = "Opening in your browser..."
	messageRedirect = "Redirecting..."
)

// Relay configures the relay mode. Dest values whose host is not listed in
// AllowedHosts are replaced by DefaultDest. A DefaultDest without a host,
// such as "/direct", is resolved against the current request.
type Relay struct {
	DefaultDest  *url.URL
	AllowedHosts []string
}

type Options struct {
	Classifier *classify.Classifier
	Rewriter   *rewrite.Table
	Relay      Relay
}

// Sequencer is safe for concurrent use; it holds only read-only tables.
type Sequencer struct {
	classifier   *classify.Classifier
	rewriter     *rewrite.Table
	relayDefault *url.URL
	relayAllowed map[string]struct{}
}

// New falls back to the built-in classifier and rewrite table for nil
// options.
func New(opts Options) *Sequencer {
	s := &Sequencer{
		classifier:   opts.Classifier,
		rewriter:     opts.Rewriter,
		relayDefault: opts.Relay.DefaultDest,
		relayAllowed: make(map[string]struct{}, len(opts.Relay.AllowedHosts)+1),
	}
	if s.classifier == nil {
		s.classifier = classify.NewClassifier(nil)
	}
	if s.rewriter == nil {
		s.rewriter = rewrite.Default()
	}
	for _, host := range opts.Relay.AllowedHosts {
		s.relayAllowed[strings.ToLower(host)] = struct{}{}
	}
	if s.relayDefault != nil && s.relayDefault.Host != "" {
		s.relayAllowed[strings.ToLower(s.relayDefault.Hostname())] = struct{}{}
	}
	return s
}

// Handle computes the response for one request. It is a pure function of
// its arguments.
func (s *Sequencer) Handle(p Profile, req Request) Response {
	p = p.WithDefaults()

	if req.TargetMalformed {
		return rejected(p.ErrorFormat, fmt.Errorf("%w: undecodable url parameter", ErrInvalidURL))
	}

	raw, target, err := parseTarget(req.Target)
	if err != nil {
		return rejected(p.ErrorFormat, err)
	}

	client := s.classifier.Classify(req.UserAgent)

	// Crawlers fetching link previews get the destination itself.
	if client.Bot {
		return s.land(p, req, raw, target, client)
	}

	switch p.Mode {
	case ModeRelay:
		return s.relay(p, req, raw, client)
	case ModeDirect:
		if client.InApp {
			final := s.destination(req, raw, target)
			return s.document(OutcomeLandingDocument, p.ErrorFormat, client, page{
				Title:   titleRedirect,
				Message: messageRedirect,
				Next:    final,
				Steps: resolve(p.Techniques.For(client.Platform), links{
					next:     final,
					deepLink: deepLinkFor(client, req),
				}),
			})
		}
		return s.land(p, req, raw, target, client)
	default:
		if client.InApp && req.Stage != StageLand {
			return s.breakout(p, req, client)
		}
		return s.land(p, req, raw, target, client)
	}
}

// breakout sends an embedded browser back to this endpoint with stage=2.
func (s *Sequencer) breakout(p Profile, req Request, client classify.Client) Response {
	next := stageTwoURL(req.Self)
	return s.document(OutcomeBreakout, p.ErrorFormat, client, page{
		Title:        titleBreakout,
		Message:      messageBreakout,
		RefreshDelay: p.RefreshDelay,
		Next:         next,
		Steps: resolve(p.Techniques.For(client.Platform), links{
			next:     next,
			deepLink: deepLinkFor(client, req),
		}),
	})
}

func (s *Sequencer) relay(p Profile, req Request, raw string, client classify.Client) Response {
	dest := s.relayDest(req.Dest, req.Self)
	if dest == nil {
		return ErrorResponse(p.ErrorFormat, http.StatusInternalServerError, msgInternal)
	}

	q := dest.Query()
	q.Set(ParamURL, raw)
	if req.ForceWeb {
		q.Set(ParamForceWeb, "true")
	}
	dest.RawQuery = q.Encode()
	next := dest.String()

	return s.document(OutcomeBreakout, p.ErrorFormat, client, page{
		Title:        titleBreakout,
		Message:      messageBreakout,
		RefreshDelay: p.RefreshDelay,
		Next:         next,
		Steps: resolve(p.Techniques.For(client.Platform), links{
			next:     next,
			deepLink: deepLinkFor(client, req),
		}),
	})
}

func (s *Sequencer) land(p Profile, req Request, raw string, target *url.URL, client classify.Client) Response {
	final := s.destination(req, raw, target)
	if p.Landing == LandingDocument {
		return s.document(OutcomeLandingDocument, p.ErrorFormat, client, page{
			Title:   titleRedirect,
			Message: messageRedirect,
			Next:    final,
			Steps:   resolve(landingAttempts, links{next: final}),
		})
	}
	return redirectResponse(p.RedirectStatus, final, client)
}

// destination is the decoded target, rewritten when force-web applies.
func (s *Sequencer) destination(req Request, raw string, target *url.URL) string {
	if !req.ForceWeb {
		return raw
	}
	if out, changed := s.rewriter.Rewrite(target); changed {
		return out.String()
	}
	return raw
}

// relayDest returns a copy of the requested relay when allowed, otherwise
// a copy of the default. Nil means no usable relay is configured.
func (s *Sequencer) relayDest(raw string, self *url.URL) *url.URL {
	if raw = strings.TrimSpace(raw); raw != "" {
		if u, err := url.Parse(raw); err == nil && isWebURL(u) {
			if _, ok := s.relayAllowed[strings.ToLower(u.Hostname())]; ok {
				return u
			}
		}
	}
	if s.relayDefault == nil {
		return nil
	}
	if s.relayDefault.Host == "" {
		if self == nil {
			return nil
		}
		return self.ResolveReference(s.relayDefault)
	}
	dest := *s.relayDefault
	return &dest
}

func (s *Sequencer) document(outcome Outcome, format ErrorFormat, client classify.Client, pg page) Response {
	body, err := renderPage(pg)
	if err != nil {
		resp := ErrorResponse(format, http.StatusInternalServerError, msgInternal)
		resp.Client = client
		resp.Err = fmt.Errorf("render page: %w", err)
		return resp
	}
	return htmlResponse(body, outcome, client, pg.Next)
}

// stageTwoURL keeps every query parameter of self and sets stage=2.
func stageTwoURL(self *url.URL) string {
	var next url.URL
	if self != nil {
		next = *self
	}
	q := next.Query()
	q.Set(ParamStage, StageLand)
	next.RawQuery = q.Encode()
	next.Fragment = ""
	return next.String()
}

func deepLinkFor(client classify.Client, req Request) string {
	var raw string
	switch client.Platform {
	case classify.PlatformIOS:
		raw = req.IOSLink
	case classify.PlatformAndroid:
		raw = req.AndroidLink
	}
	link, ok := SafeDeepLink(raw)
	if !ok {
		return ""
	}
	return link
}

func isWebURL(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}
