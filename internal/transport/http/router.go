package transporthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hearth/internal/directory"
	"hearth/internal/household/service"
	"hearth/internal/platform/metrics"
	"hearth/internal/platform/middleware"
	"hearth/internal/tenancy"
)

const requestTimeout = 30 * time.Second

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.JWTValidator
	Directory directory.Directory
	Service   *service.Service
}

// NewRouter assembles the full middleware chain and mounts the household
// subtree behind authentication and tenancy enforcement.
func NewRouter(deps RouterDeps) http.Handler {
	h := NewHandler(deps.Service)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/households/{householdID}", func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		r.Use(tenancy.Enforce(deps.Directory, deps.Logger))

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{entityID}", h.GetMember)
			r.Put("/{entityID}", h.UpdateMember)
			r.Delete("/{entityID}", h.DeleteMember)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", h.ListAssets)
			r.Post("/", h.CreateAsset)
			r.Get("/{entityID}", h.GetAsset)
			r.Put("/{entityID}", h.UpdateAsset)
			r.Delete("/{entityID}", h.DeleteAsset)
		})

		r.Route("/finance-accounts", func(r chi.Router) {
			r.Get("/", h.ListFinanceAccounts)
			r.Post("/", h.CreateFinanceAccount)
			r.Get("/{entityID}", h.GetFinanceAccount)
			r.Put("/{entityID}", h.UpdateFinanceAccount)
			r.Delete("/{entityID}", h.DeleteFinanceAccount)
		})

		r.Get("/activity", h.ActivitySummary)
		r.Get("/activity/recent", h.RecentActivity)
	})

	return r
}
