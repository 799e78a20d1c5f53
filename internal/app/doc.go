// Package app turns a validated config.Config into the running pieces of
// the service: the sequencer, one endpoint per profile, the metrics
// collector and the optional rate limiter. Both binaries build an App and
// differ only in the transport they put in front of it.
package app
