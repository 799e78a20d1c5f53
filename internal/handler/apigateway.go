package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/angeloszaimis/link-unwrapper/internal/middleware"
)

// APIGatewayHandler routes API Gateway proxy events to endpoints by path.
type APIGatewayHandler struct {
	logger     *slog.Logger
	endpoints  map[string]*Endpoint
	publicBase *url.URL
}

func NewAPIGatewayHandler(logger *slog.Logger, endpoints []*Endpoint, publicBase *url.URL) *APIGatewayHandler {
	byPath := make(map[string]*Endpoint, len(endpoints))
	for _, e := range endpoints {
		byPath[e.Profile().Path] = e
	}
	return &APIGatewayHandler{
		logger:     logger,
		endpoints:  byPath,
		publicBase: publicBase,
	}
}

// Handle never returns an error; failures are expressed as responses so the
// gateway does not turn them into a generic 502.
func (h *APIGatewayHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := headerValue(req.Headers, req.MultiValueHeaders, middleware.RequestIDHeader)
	if requestID == "" {
		requestID = req.RequestContext.RequestID
	}
	if requestID == "" {
		requestID = middleware.NewRequestID()
	}
	ctx = middleware.WithRequestID(ctx, requestID)

	method := strings.ToUpper(req.HTTPMethod)
	if method == "" {
		method = http.MethodGet
	}

	if req.Path == "/healthz" {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers: map[string]string{
				"Content-Type":             "application/json",
				middleware.RequestIDHeader: requestID,
			},
			Body: `{"status":"UP"}`,
		}, nil
	}

	endpoint, ok := h.endpoints[req.Path]
	if !ok {
		h.logger.InfoContext(ctx, "No profile for path", slog.String("path", req.Path))
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusNotFound,
			Headers: map[string]string{
				"Content-Type":             "text/plain; charset=utf-8",
				middleware.RequestIDHeader: requestID,
			},
			Body: "Not found",
		}, nil
	}

	scheme := firstForwarded(headerValue(req.Headers, req.MultiValueHeaders, "X-Forwarded-Proto"))
	if scheme != "http" {
		scheme = "https"
	}
	host := headerValue(req.Headers, req.MultiValueHeaders, "Host")
	if host == "" {
		host = req.RequestContext.DomainName
	}
	self := selfURL(h.publicBase, scheme, host, req.Path, encodeQuery(req))

	resp := endpoint.Respond(ctx, method, self, headerValue(req.Headers, req.MultiValueHeaders, "User-Agent"))

	out := events.APIGatewayProxyResponse{
		StatusCode:        resp.Status,
		Headers:           make(map[string]string, len(resp.Header)+1),
		MultiValueHeaders: make(map[string][]string, len(resp.Header)+1),
	}
	for key, values := range resp.Header {
		if len(values) == 0 {
			continue
		}
		out.Headers[key] = values[0]
		out.MultiValueHeaders[key] = append([]string(nil), values...)
	}
	out.Headers[middleware.RequestIDHeader] = requestID
	out.MultiValueHeaders[middleware.RequestIDHeader] = []string{requestID}
	if method != http.MethodHead {
		out.Body = string(resp.Body)
	}

	return out, nil
}

// encodeQuery re-encodes the already decoded gateway parameters. Multi-value
// parameters win when present since they carry repeated keys.
func encodeQuery(req events.APIGatewayProxyRequest) string {
	values := url.Values{}
	if len(req.MultiValueQueryStringParameters) > 0 {
		for key, vs := range req.MultiValueQueryStringParameters {
			values[key] = append([]string(nil), vs...)
		}
	} else {
		keys := make([]string, 0, len(req.QueryStringParameters))
		for key := range req.QueryStringParameters {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values.Set(key, req.QueryStringParameters[key])
		}
	}
	return values.Encode()
}

// headerValue looks a header up case-insensitively; gateway header maps keep
// whatever casing the client sent.
func headerValue(single map[string]string, multi map[string][]string, name string) string {
	for key, v := range single {
		if strings.EqualFold(key, name) {
			return v
		}
	}
	for key, vs := range multi {
		if strings.EqualFold(key, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}
