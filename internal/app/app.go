package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/angeloszaimis/link-unwrapper/config"
	"github.com/angeloszaimis/link-unwrapper/internal/breakout"
	"github.com/angeloszaimis/link-unwrapper/internal/classify"
	"github.com/angeloszaimis/link-unwrapper/internal/handler"
	"github.com/angeloszaimis/link-unwrapper/internal/metrics"
	"github.com/angeloszaimis/link-unwrapper/internal/middleware"
	"github.com/angeloszaimis/link-unwrapper/internal/rewrite"
)

// ReservedPaths are served next to the profiles; a profile may not claim
// them.
var ReservedPaths = map[string]bool{
	"/healthz":            true,
	"/metrics":            true,
	"/metrics/prometheus": true,
}

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Collector   *metrics.Collector
	Sequencer   *breakout.Sequencer
	Endpoints   []*handler.Endpoint
	PublicBase  *url.URL
	Proxies     *middleware.TrustedProxies
	RateLimiter *middleware.RateLimiter
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	signatures, err := Signatures(cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	profiles, err := Profiles(cfg.Profiles)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}

	relayDefault, err := url.Parse(cfg.Relay.DefaultDest)
	if err != nil {
		return nil, fmt.Errorf("relay default_dest: %w", err)
	}

	var publicBase *url.URL
	if cfg.Server.PublicBaseURL != "" {
		if publicBase, err = url.Parse(cfg.Server.PublicBaseURL); err != nil {
			return nil, fmt.Errorf("public_base_url: %w", err)
		}
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted_proxies: %w", err)
	}

	classifier := classify.NewClassifier(signatures)
	seq := breakout.New(breakout.Options{
		Classifier: classifier,
		Rewriter:   rewrite.Default(),
		Relay: breakout.Relay{
			DefaultDest:  relayDefault,
			AllowedHosts: cfg.Relay.AllowedHosts,
		},
	})

	a := &App{
		Config:     cfg,
		Logger:     log,
		Collector:  metrics.NewCollector(cfg.Metrics.BufferSize, log),
		Sequencer:  seq,
		PublicBase: publicBase,
		Proxies:    proxies,
	}

	profileByPath := make(map[string]string, len(profiles))
	for _, p := range profiles {
		a.Endpoints = append(a.Endpoints, handler.NewEndpoint(log, seq, p, a.Collector))
		profileByPath[p.Path] = p.Name
	}

	if cfg.RateLimit.Enabled {
		a.RateLimiter = middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerSecond,
			cfg.RateLimit.Burst,
			config.Duration(cfg.RateLimit.ClientTTL),
			middleware.WithTrustedProxies(proxies),
			middleware.WithOnLimited(func(r *http.Request) {
				a.Collector.Emit(metrics.MetricEvent{
					Type:    metrics.EventRateLimited,
					Profile: profileByPath[r.URL.Path],
				})
			}),
		)
	}

	log.Info("Application initialized",
		slog.Int("profiles", len(a.Endpoints)),
		slog.Bool("rate_limit", a.RateLimiter != nil),
		slog.Int("trusted_proxies", len(cfg.Server.TrustedProxies)),
		slog.Int("in_app_signatures", len(classifier.Apps())),
		slog.String("relay_default", relayDefault.String()))

	return a, nil
}

// Start launches the background workers. They stop when ctx is done.
func (a *App) Start(ctx context.Context) {
	a.Collector.Start(ctx)
	if a.RateLimiter != nil {
		a.RateLimiter.StartCleanup(ctx)
	}
}

func (a *App) APIGateway() *handler.APIGatewayHandler {
	return handler.NewAPIGatewayHandler(a.Logger, a.Endpoints, a.PublicBase)
}
