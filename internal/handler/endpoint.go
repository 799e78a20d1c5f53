package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angeloszaimis/link-unwrapper/internal/breakout"
	"github.com/angeloszaimis/link-unwrapper/internal/metrics"
	"github.com/angeloszaimis/link-unwrapper/internal/middleware"
)

const allowedMethods = "GET, HEAD"

// Endpoint serves one profile.
type Endpoint struct {
	logger    *slog.Logger
	sequencer *breakout.Sequencer
	profile   breakout.Profile
	collector *metrics.Collector
}

// NewEndpoint accepts a nil collector.
func NewEndpoint(logger *slog.Logger, seq *breakout.Sequencer, profile breakout.Profile, collector *metrics.Collector) *Endpoint {
	return &Endpoint{
		logger:    logger,
		sequencer: seq,
		profile:   profile.WithDefaults(),
		collector: collector,
	}
}

func (e *Endpoint) Profile() breakout.Profile {
	return e.profile
}

// Respond runs the sequencer for one request. self must be the absolute URL
// the client used, including the query string.
func (e *Endpoint) Respond(ctx context.Context, method string, self *url.URL, userAgent string) breakout.Response {
	start := time.Now()
	e.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: start,
		Profile:   e.profile.Name,
	})

	req := breakout.RequestFromURL(self, userAgent)

	var resp breakout.Response
	if method != http.MethodGet && method != http.MethodHead {
		resp = breakout.ErrorResponse(e.profile.ErrorFormat, http.StatusMethodNotAllowed, "Method not allowed")
		resp.Header.Set("Allow", allowedMethods)
	} else {
		resp = e.sequencer.Handle(e.profile, req)
	}

	duration := time.Since(start)
	e.collector.Emit(metrics.MetricEvent{
		Type:    metrics.EventResponseServed,
		Profile: e.profile.Name,
		Outcome: string(resp.Outcome),
		Client: metrics.ClientLabels{
			Platform: string(resp.Client.Platform),
			App:      resp.Client.App,
			Browser:  resp.Client.Browser,
			Device:   resp.Client.Device,
			Bot:      resp.Client.Bot,
		},
		Duration:   duration,
		StatusCode: resp.Status,
	})
	e.log(ctx, req, resp, duration)

	return resp
}

func (e *Endpoint) log(ctx context.Context, req breakout.Request, resp breakout.Response, duration time.Duration) {
	attrs := []slog.Attr{
		slog.String("request_id", middleware.RequestIDFromContext(ctx)),
		slog.String("profile", e.profile.Name),
		slog.String("stage", req.Stage),
		slog.String("outcome", string(resp.Outcome)),
		slog.Int("status", resp.Status),
		slog.Bool("in_app", resp.Client.InApp),
		slog.String("platform", string(resp.Client.Platform)),
		slog.String("app", resp.Client.App),
		slog.String("browser", resp.Client.Browser),
		slog.String("device", resp.Client.Device),
		slog.Bool("bot", resp.Client.Bot),
		slog.Duration("duration", duration),
	}

	switch {
	case resp.Status >= http.StatusInternalServerError:
		e.logger.LogAttrs(ctx, slog.LevelError, "Failed to build response", append(attrs, slog.Any("err", resp.Err))...)
	case resp.Err != nil:
		e.logger.LogAttrs(ctx, slog.LevelWarn, "Rejected request", append(attrs, slog.String("reason", resp.Err.Error()))...)
	default:
		e.logger.LogAttrs(ctx, slog.LevelInfo, "Served request", attrs...)
	}

	e.logDroppedDeepLinks(ctx, req)
}

func (e *Endpoint) logDroppedDeepLinks(ctx context.Context, req breakout.Request) {
	for param, raw := range map[string]string{
		breakout.ParamIOS:     req.IOSLink,
		breakout.ParamAndroid: req.AndroidLink,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, ok := breakout.SafeDeepLink(raw); !ok {
			e.logger.DebugContext(ctx, "Dropped deep link",
				slog.String("profile", e.profile.Name),
				slog.String("param", param))
		}
	}
}
