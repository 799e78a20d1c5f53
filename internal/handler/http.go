package handler

import (
	"net/http"
	"net/url"

	"github.com/angeloszaimis/link-unwrapper/internal/breakout"
)

// ForwardTrust decides whether a request's X-Forwarded-* headers came from
// a proxy we run.
type ForwardTrust interface {
	Trusts(r *http.Request) bool
}

type RedirectHandler struct {
	endpoint   *Endpoint
	publicBase *url.URL
	trust      ForwardTrust
}

// NewRedirectHandler serves one profile. Forwarded scheme and host are used
// only when trust accepts the peer; a nil trust ignores them.
func NewRedirectHandler(endpoint *Endpoint, publicBase *url.URL, trust ForwardTrust) *RedirectHandler {
	return &RedirectHandler{
		endpoint:   endpoint,
		publicBase: publicBase,
		trust:      trust,
	}
}

func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.endpoint.Respond(r.Context(), r.Method, h.requestURL(r), r.UserAgent())
	writeResponse(w, r.Method, resp)
}

func (h *RedirectHandler) requestURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if h.trust != nil && h.trust.Trusts(r) {
		if proto := firstForwarded(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
			scheme = proto
		}
		if fwd := firstForwarded(r.Header.Get("X-Forwarded-Host")); fwd != "" {
			host = fwd
		}
	}

	return selfURL(h.publicBase, scheme, host, r.URL.Path, r.URL.RawQuery)
}

func writeResponse(w http.ResponseWriter, method string, resp breakout.Response) {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.Status)
	if method == http.MethodHead || len(resp.Body) == 0 {
		return
	}
	_, _ = w.Write(resp.Body)
}
