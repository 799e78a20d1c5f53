// Package handler exposes the redirect profiles over HTTP and over API
// Gateway proxy events.
//
// Both transports build an absolute self URL, hand it to an Endpoint and
// copy the resulting breakout.Response onto the wire, so a profile behaves
// the same whether it runs behind net/http or inside a Lambda function.
// Endpoint is also where per-request logging and metric events happen.
package handler
