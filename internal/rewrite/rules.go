package rewrite

import (
	"net/url"
	"strings"
)

const youtubeHost = "www.youtube.com"

// youtu.be/<id>?t=42 -> https://www.youtube.com/watch?v=<id>&t=42&app=desktop
func youtubeShortLink(u *url.URL) *url.URL {
	id := firstSegment(u.Path)
	if id == "" {
		return nil
	}
	q := u.Query()
	q.Del("si")
	q.Set("v", id)
	q.Set("app", "desktop")
	return &url.URL{Scheme: "https", Host: youtubeHost, Path: "/watch", RawQuery: q.Encode(), Fragment: u.Fragment}
}

func youtubeWatch(u *url.URL) *url.URL {
	q := u.Query()
	path := u.Path
	if rest, ok := strings.CutPrefix(path, "/shorts/"); ok {
		if id := firstSegment(rest); id != "" {
			q.Set("v", id)
			path = "/watch"
		}
	}
	q.Set("app", "desktop")
	return &url.URL{Scheme: "https", Host: youtubeHost, Path: path, RawQuery: q.Encode(), Fragment: u.Fragment}
}

// nd=1 ("no deep link") keeps the Spotify web player from bouncing to the app.
func spotifyNoDeepLink(u *url.URL) *url.URL {
	q := u.Query()
	q.Set("nd", "1")
	u.Scheme = "https"
	u.RawQuery = q.Encode()
	return u
}

func redditOld(u *url.URL) *url.URL {
	u.Scheme = "https"
	u.Host = "old.reddit.com"
	return u
}

func twitterDesktop(u *url.URL) *url.URL {
	u.Scheme = "https"
	u.Host = "x.com"
	return u
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
