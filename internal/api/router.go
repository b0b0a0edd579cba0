package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Market-Dashboard-Backend/internal/api/middleware"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
)

// Services bundles the services the router dispatches to.
type Services struct {
	System   *service.SystemService
	Assets   *service.AssetService
	Sync     *service.SyncService
	Batch    *service.BatchService
	Reindex  *service.ReindexService
	Analysis *service.AnalysisService
	Prices   *service.PriceService
	Docs     *service.DocsService
}

// NewRouter creates and configures the HTTP router. metrics serves /metrics
// and may be nil.
func NewRouter(svc Services, cfg *config.Config, logger *slog.Logger, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	requireKey := custommiddleware.APIKey(cfg.Server.APIKey)

	systemHandler := handlers.NewSystemHandler(svc.System, svc.Batch)
	assetHandler := handlers.NewAssetHandler(svc.Assets, svc.Sync, svc.Batch)
	reindexHandler := handlers.NewReindexHandler(svc.Reindex)
	analysisHandler := handlers.NewAnalysisHandler(svc.Analysis)
	priceHandler := handlers.NewPriceHandler(svc.Prices)
	docsHandler := handlers.NewDocsHandler(svc.Docs)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.Get("/refresh", systemHandler.LastRefresh)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", assetHandler.Assets)
			r.With(requireKey).Post("/refresh", assetHandler.RefreshAll)

			r.Route("/{asset}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateAssetNameMiddleware)
				r.Get("/", assetHandler.Asset)
				r.With(requireKey).Post("/refresh", assetHandler.RefreshAsset)
				r.Get("/failures", assetHandler.Failures)
				r.With(requireKey).Delete("/failures", assetHandler.ClearFailures)
				r.Get("/reindex", reindexHandler.Reindex)
				r.Get("/prices", priceHandler.Prices)
				r.Get("/docs", docsHandler.Docs)
				r.With(requireKey).Post("/docs/{type}", docsHandler.SaveDocs)
			})
		})

		r.Route("/analysis/{asset}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateAssetNameMiddleware)
			r.Get("/stats", analysisHandler.Stats)
		})
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}
