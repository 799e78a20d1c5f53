package breakout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var blockedDeepLinkSchemes = map[string]struct{}{
	"javascript": {},
	"data":       {},
	"vbscript":   {},
	"file":       {},
}

// ParseTarget validates the url parameter. The value has already been
// query-decoded once; callers that encoded it twice get one more decoding
// pass. The result is always an absolute http or https URL with a host.
func ParseTarget(raw string) (*url.URL, error) {
	_, u, err := parseTarget(raw)
	return u, err
}

// parseTarget also returns the decoded string so that an unmodified
// destination is echoed back byte for byte.
func parseTarget(raw string) (string, *url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, ErrMissingURL
	}

	candidate, err := decodeOnce(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if err := validation.Validate(candidate,
		validation.Required,
		validation.By(absoluteWebURL),
	); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return candidate, u, nil
}

// SafeDeepLink decodes a caller supplied app URI (ios= / android=) and
// reports whether it may be embedded in a navigation attempt.
func SafeDeepLink(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	candidate, err := decodeOnce(raw)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	if _, blocked := blockedDeepLinkSchemes[strings.ToLower(u.Scheme)]; blocked {
		return "", false
	}
	return candidate, true
}

func decodeOnce(raw string) (string, error) {
	if strings.Contains(raw, ":") {
		return raw, nil
	}
	return url.PathUnescape(raw)
}

func absoluteWebURL(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	u, err := url.Parse(s)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if !u.IsAbs() {
		return validation.NewError("validation_not_absolute", "must be an absolute URL")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}
	if u.Hostname() == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}
	return nil
}

// IsMissing reports whether err came from an absent or empty url parameter.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissingURL)
}
