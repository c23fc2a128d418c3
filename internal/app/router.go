package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/loans"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/customers"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/employees"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/suppliers"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/purchases"
	"github.com/meridian-erp/meridian-erp/internal/sales"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	AuthHandler      *auth.Handler
	CustomerHandler  *customers.Handler
	SupplierHandler  *suppliers.Handler
	ProductHandler   *products.Handler
	EmployeeHandler  *employees.Handler
	PurchaseHandler  *purchases.Handler
	SalesHandler     *sales.Handler
	LoanHandler      *loans.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config != nil && params.Config.RateLimitRequests > 0 {
		r.Use(httprate.LimitByIP(params.Config.RateLimitRequests, params.Config.RateLimitWindow))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(RequireSession)

			r.Route("/customers", params.CustomerHandler.MountRoutes)
			r.Route("/suppliers", params.SupplierHandler.MountRoutes)
			r.Route("/products", params.ProductHandler.MountRoutes)
			r.Route("/employees", params.EmployeeHandler.MountRoutes)
			r.Route("/purchases", params.PurchaseHandler.MountRoutes)
			r.Route("/sales", params.SalesHandler.MountRoutes)
			r.Route("/loans", params.LoanHandler.MountRoutes)
			if params.JobsHandler != nil {
				r.Route("/jobs", params.JobsHandler.MountRoutes)
			}
		})
	})

	return r
}
