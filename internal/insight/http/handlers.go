package insighthttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tallybook/tallybook/internal/billing"
	"github.com/tallybook/tallybook/internal/insight"
)

const requestTimeout = 5 * time.Second

// ReportService defines the report data contract used by the handler.
type ReportService interface {
	Overview(ctx context.Context, f insight.OverviewFilter) (insight.FinancialOverview, error)
	CustomerSummary(ctx context.Context, customerID uuid.UUID, from, to time.Time) (insight.CustomerFinancialSummary, error)
	CustomerRanking(ctx context.Context, f insight.RankingFilter) ([]insight.CustomerFinancialSummary, error)
	FinanceSeries(ctx context.Context, f insight.SeriesFilter) ([]insight.FinancePoint, error)
	TopItems(ctx context.Context, f insight.ItemsFilter) ([]insight.ItemStat, error)
	TopItemsByPeriod(ctx context.Context, f insight.ItemsFilter) ([]insight.PeriodItems, error)
	HiddenPayments(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]insight.ReconciliationEvent, error)
}

// Handler coordinates HTTP requests for the financial reports.
type Handler struct {
	logger  *slog.Logger
	service ReportService
}

// NewHandler constructs the insight HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	from, to, err := parseRange(r)
	if err != nil {
		h.respondError(w, "parse range", err)
		return
	}
	customerID, err := parseOptionalUUID(r.URL.Query().Get("customerId"))
	if err != nil {
		h.respondError(w, "parse customer id", err)
		return
	}

	overview, err := h.service.Overview(ctx, insight.OverviewFilter{From: from, To: to, CustomerID: customerID})
	if err != nil {
		h.respondError(w, "load overview", err)
		return
	}
	h.respondJSON(w, http.StatusOK, overview)
}

// handleDashboard loads the overview and the finance series concurrently,
// the combined payload the reporting UI renders on its landing view.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	from, to, err := parseRange(r)
	if err != nil {
		h.respondError(w, "parse range", err)
		return
	}
	granularity := insight.Granularity(r.URL.Query().Get("groupBy"))

	var (
		overview insight.FinancialOverview
		series   []insight.FinancePoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview, err = h.service.Overview(gctx, insight.OverviewFilter{From: from, To: to})
		return err
	})
	g.Go(func() error {
		var err error
		series, err = h.service.FinanceSeries(gctx, insight.SeriesFilter{From: from, To: to, Granularity: granularity})
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondError(w, "load dashboard", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"overview": overview,
		"chart":    series,
	})
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	from, to, err := parseRange(r)
	if err != nil {
		h.respondError(w, "parse range", err)
		return
	}
	customerID, err := parseOptionalUUID(r.URL.Query().Get("customerId"))
	if err != nil {
		h.respondError(w, "parse customer id", err)
		return
	}

	points, err := h.service.FinanceSeries(ctx, insight.SeriesFilter{
		From:        from,
		To:          to,
		Granularity: insight.Granularity(r.URL.Query().Get("groupBy")),
		CustomerID:  customerID,
	})
	if err != nil {
		h.respondError(w, "load finance series", err)
		return
	}
	h.respondJSON(w, http.StatusOK, points)
}

func (h *Handler) handleCustomerRanking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	from, to, err := parseRange(r)
	if err != nil {
		h.respondError(w, "parse range", err)
		return
	}
	top, err := parseTop(r)
	if err != nil {
		h.respondError(w, "parse top", err)
		return
	}

	ranking, err := h.service.CustomerRanking(ctx, insight.RankingFilter{
		From:   from,
		To:     to,
		SortBy: r.URL.Query().Get("sortBy"),
		Top:    top,
	})
	if err != nil {
		h.respondError(w, "load customer ranking", err)
		return
	}
	h.respondJSON(w, http.StatusOK, ranking)
}

func (h *Handler) handleCustomerSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		h.respondError(w, "parse range", err)
		return
	}

	summary, err := h.service.CustomerSummary(ctx, customerID, from, to)
	if err != nil {
		h.respondError(w, "load customer summary", err)
		return
	}
	h.respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleHiddenPayments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		h.respondError(w, "parse range", err)
		return
	}

	events, err := h.service.HiddenPayments(ctx, customerID, from, to)
	if err != nil {
		h.respondError(w, "load hidden payments", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"customerId": customerID,
		"results":    events,
	})
}

func (h *Handler) handleTopItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	filter, err := parseItemsFilter(r)
	if err != nil {
		h.respondError(w, "parse items filter", err)
		return
	}

	items, err := h.service.TopItems(ctx, filter)
	if err != nil {
		h.respondError(w, "load top items", err)
		return
	}
	h.respondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleTopItemsByPeriod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	filter, err := parseItemsFilter(r)
	if err != nil {
		h.respondError(w, "parse items filter", err)
		return
	}
	filter.Granularity = insight.Granularity(r.URL.Query().Get("groupBy"))

	periods, err := h.service.TopItemsByPeriod(ctx, filter)
	if err != nil {
		h.respondError(w, "load top items by period", err)
		return
	}
	h.respondJSON(w, http.StatusOK, periods)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logError("encode response", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, context string, err error) {
	switch {
	case errors.Is(err, insight.ErrInvalidRange),
		errors.Is(err, insight.ErrInvalidGranularity),
		errors.Is(err, insight.ErrMissingParameter),
		errors.Is(err, insight.ErrInvalidMetric),
		errors.Is(err, errBadDate),
		errors.Is(err, errBadQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, billing.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	default:
		h.logError(context, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

var (
	errBadDate  = errors.New("insight: invalid date parameter")
	errBadQuery = errors.New("insight: invalid query parameter")
)

// parseDate accepts plain dates and RFC 3339 timestamps.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, errBadDate
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}

func parseTop(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("top"))
	if raw == "" {
		return 0, nil
	}
	top, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadQuery
	}
	return top, nil
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errBadQuery
	}
	return &id, nil
}

func parseItemsFilter(r *http.Request) (insight.ItemsFilter, error) {
	from, to, err := parseRange(r)
	if err != nil {
		return insight.ItemsFilter{}, err
	}
	top, err := parseTop(r)
	if err != nil {
		return insight.ItemsFilter{}, err
	}
	return insight.ItemsFilter{
		From:   from,
		To:     to,
		SortBy: r.URL.Query().Get("sortBy"),
		Top:    top,
	}, nil
}
