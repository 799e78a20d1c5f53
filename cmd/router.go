package main

import (
	"net/http"

	"github.com/angeloszaimis/link-unwrapper/internal/app"
	"github.com/angeloszaimis/link-unwrapper/internal/handler"
	"github.com/angeloszaimis/link-unwrapper/internal/middleware"
)

func setupRouter(a *app.App) http.Handler {
	mux := http.NewServeMux()

	for _, e := range a.Endpoints {
		var h http.Handler = handler.NewRedirectHandler(e, a.PublicBase, a.Proxies)
		if a.RateLimiter != nil {
			h = a.RateLimiter.Middleware(h)
		}
		mux.Handle(e.Profile().Path, h)
	}

	mux.HandleFunc("GET /healthz", handler.Health)
	mux.HandleFunc("GET /metrics", a.Collector.Handler())
	mux.Handle("GET /metrics/prometheus", a.Collector.PrometheusHandler())

	return middleware.Chain(mux, middleware.RequestID, middleware.AccessLog(a.Logger, a.Proxies))
}
