package rewrite

import (
	"net/url"
	"sort"
	"strings"
)

// Rule returns the rewritten URL, or nil when the input has nothing to
// rewrite (for example a short link without an identifier).
type Rule func(u *url.URL) *url.URL

type Table struct {
	rules map[string]Rule
}

// New builds a table keyed by lower-cased hostname.
func New(rules map[string]Rule) *Table {
	t := &Table{rules: make(map[string]Rule, len(rules))}
	for host, rule := range rules {
		t.rules[strings.ToLower(host)] = rule
	}
	return t
}

// Default returns the built-in table.
func Default() *Table {
	return New(map[string]Rule{
		"youtu.be":           youtubeShortLink,
		"youtube.com":        youtubeWatch,
		"www.youtube.com":    youtubeWatch,
		"m.youtube.com":      youtubeWatch,
		"open.spotify.com":   spotifyNoDeepLink,
		"reddit.com":         redditOld,
		"www.reddit.com":     redditOld,
		"m.reddit.com":       redditOld,
		"mobile.twitter.com": twitterDesktop,
	})
}

// Rewrite applies the rule registered for u's host. The second result
// reports whether anything changed; when it is false the returned URL is u.
func (t *Table) Rewrite(u *url.URL) (*url.URL, bool) {
	if u == nil {
		return nil, false
	}
	rule, ok := t.rules[strings.ToLower(u.Hostname())]
	if !ok {
		return u, false
	}

	clone := *u
	out := rule(&clone)
	if out == nil {
		return u, false
	}
	return out, true
}

// Hosts lists the hostnames with a rule, sorted.
func (t *Table) Hosts() []string {
	hosts := make([]string, 0, len(t.rules))
	for host := range t.rules {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}
