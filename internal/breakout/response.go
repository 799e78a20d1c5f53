package breakout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/angeloszaimis/link-unwrapper/internal/classify"
)

type Outcome string

const (
	OutcomeBreakout        Outcome = "breakout"
	OutcomeLandingRedirect Outcome = "landing_redirect"
	OutcomeLandingDocument Outcome = "landing_document"
	OutcomeRejected        Outcome = "rejected"
)

// Response is a transport-neutral description of what to send back.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	Outcome Outcome
	Client  classify.Client
	// Location is the next hop of a breakout document or the final
	// destination of a landing. Empty when the request was rejected.
	Location string
	Err      error
}

const (
	msgMissingText = "No URL parameter provided"
	msgMissingJSON = "URL parameter is required"
	msgInvalid     = "Invalid URL provided"
	msgInternal    = "Internal server error"
)

func noCache(h http.Header) {
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

func redirectResponse(status int, location string, client classify.Client) Response {
	h := make(http.Header)
	h.Set("Location", location)
	noCache(h)
	return Response{
		Status:   status,
		Header:   h,
		Outcome:  OutcomeLandingRedirect,
		Client:   client,
		Location: location,
	}
}

func htmlResponse(body []byte, outcome Outcome, client classify.Client, location string) Response {
	h := make(http.Header)
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "frame-ancestors 'none'")
	h.Set("Referrer-Policy", "no-referrer")
	noCache(h)
	return Response{
		Status:   http.StatusOK,
		Header:   h,
		Body:     body,
		Outcome:  outcome,
		Client:   client,
		Location: location,
	}
}

func rejected(format ErrorFormat, err error) Response {
	msg := msgInvalid
	if errors.Is(err, ErrMissingURL) {
		msg = msgMissingText
		if format == ErrorFormatJSON {
			msg = msgMissingJSON
		}
	}
	resp := ErrorResponse(format, http.StatusBadRequest, msg)
	resp.Err = err
	return resp
}

// ErrorResponse renders msg in the profile's error format. Transports use
// it for failures that happen before the sequencer runs.
func ErrorResponse(format ErrorFormat, status int, msg string) Response {
	h := make(http.Header)
	h.Set("X-Content-Type-Options", "nosniff")

	var body []byte
	if format == ErrorFormatJSON {
		h.Set("Content-Type", "application/json")
		body, _ = json.Marshal(map[string]string{"error": msg})
	} else {
		h.Set("Content-Type", "text/plain; charset=utf-8")
		body = []byte(msg)
	}

	return Response{
		Status:  status,
		Header:  h,
		Body:    body,
		Outcome: OutcomeRejected,
	}
}
