// Package breakout implements the redirect sequencer behind every unwrap
// endpoint.
//
// A Sequencer turns one Request into one Response without touching the
// network, the clock or any shared state, so the same value can be served by
// net/http, by a serverless adapter or straight from a test.
//
// The interesting path is the two-stage breakout. A visitor inside a known
// in-app browser first receives a small HTML document that navigates back to
// the same endpoint with stage=2, using a per-platform list of navigation
// attempts (top-frame reassignment, delayed location changes, Android intent
// hand-off). The second request lands on the destination, optionally
// rewritten by the force-web table. Visitors in a regular browser skip
// straight to landing.
//
// Profiles select between the endpoint flavours:
//
//	two-stage  in-app -> breakout document -> self?stage=2 -> land
//	direct     in-app -> landing document with platform attempts; others land
//	relay      everyone -> breakout document -> <dest>?url=<target>
//
// Landing is either an HTTP redirect or a document with a meta refresh and a
// top-frame navigation script, chosen per profile.
package breakout
