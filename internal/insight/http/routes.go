package insighthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(60, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/finance/overview", h.handleOverview)
		gr.Get("/finance/chart", h.handleChart)
		gr.Get("/finance/dashboard", h.handleDashboard)
		gr.Get("/customers/ranking", h.handleCustomerRanking)
		gr.Get("/customers/{id}/summary", h.handleCustomerSummary)
		gr.Get("/customers/{id}/hidden-payments", h.handleHiddenPayments)
		gr.Get("/items/top", h.handleTopItems)
		gr.Get("/items/top-by-period", h.handleTopItemsByPeriod)
	})
}
