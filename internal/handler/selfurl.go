package handler

import (
	"net/url"
	"strings"
)

// selfURL rebuilds the absolute URL of the current request. A configured
// public base overrides scheme and host and prefixes its path, which is
// needed when a proxy or API stage rewrites the path.
func selfURL(publicBase *url.URL, scheme, host, path, rawQuery string) *url.URL {
	u := &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: rawQuery,
	}
	if publicBase != nil && publicBase.Host != "" {
		u.Scheme = publicBase.Scheme
		u.Host = publicBase.Host
		u.Path = strings.TrimSuffix(publicBase.Path, "/") + path
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u
}

func firstForwarded(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
