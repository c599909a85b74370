package insighthttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallybook/tallybook/internal/insight"
)

type stubService struct {
	overview      insight.FinancialOverview
	overviewErr   error
	summary       insight.CustomerFinancialSummary
	ranking       []insight.CustomerFinancialSummary
	rankingFilter insight.RankingFilter
	series        []insight.FinancePoint
	seriesFilter  insight.SeriesFilter
	items         []insight.ItemStat
	periods       []insight.PeriodItems
	events        []insight.ReconciliationEvent
	eventsID      uuid.UUID
}

func (s *stubService) Overview(ctx context.Context, f insight.OverviewFilter) (insight.FinancialOverview, error) {
	return s.overview, s.overviewErr
}

func (s *stubService) CustomerSummary(ctx context.Context, customerID uuid.UUID, from, to time.Time) (insight.CustomerFinancialSummary, error) {
	return s.summary, nil
}

func (s *stubService) CustomerRanking(ctx context.Context, f insight.RankingFilter) ([]insight.CustomerFinancialSummary, error) {
	s.rankingFilter = f
	return s.ranking, nil
}

func (s *stubService) FinanceSeries(ctx context.Context, f insight.SeriesFilter) ([]insight.FinancePoint, error) {
	s.seriesFilter = f
	return s.series, nil
}

func (s *stubService) TopItems(ctx context.Context, f insight.ItemsFilter) ([]insight.ItemStat, error) {
	return s.items, nil
}

func (s *stubService) TopItemsByPeriod(ctx context.Context, f insight.ItemsFilter) ([]insight.PeriodItems, error) {
	return s.periods, nil
}

func (s *stubService) HiddenPayments(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]insight.ReconciliationEvent, error) {
	s.eventsID = customerID
	return s.events, nil
}

func newTestRouter(service ReportService) http.Handler {
	handler := NewHandler(slog.Default(), service)
	r := chi.NewRouter()
	r.Route("/insight", handler.MountRoutes)
	return r
}

func TestHandleOverviewReturnsJSON(t *testing.T) {
	stub := &stubService{overview: insight.FinancialOverview{BillCount: 3, TotalSpent: 450}}
	router := newTestRouter(stub)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insight/finance/overview?from=2024-01-01&to=2024-12-31", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var got insight.FinancialOverview
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BillCount != 3 || got.TotalSpent != 450 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestHandleOverviewRejectsBadDate(t *testing.T) {
	router := newTestRouter(&stubService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insight/finance/overview?from=notadate", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleOverviewMapsEngineErrors(t *testing.T) {
	stub := &stubService{overviewErr: insight.ErrInvalidRange}
	router := newTestRouter(stub)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insight/finance/overview", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleCustomerRankingForwardsQuery(t *testing.T) {
	stub := &stubService{ranking: []insight.CustomerFinancialSummary{}}
	router := newTestRouter(stub)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/insight/customers/ranking?from=2024-01-01&to=2024-06-30&sortBy=-totalDebt&top=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	if stub.rankingFilter.SortBy != "-totalDebt" || stub.rankingFilter.Top != 5 {
		t.Fatalf("filter not forwarded: %+v", stub.rankingFilter)
	}
	if stub.rankingFilter.From.IsZero() || stub.rankingFilter.To.IsZero() {
		t.Fatalf("range not forwarded: %+v", stub.rankingFilter)
	}
}

func TestHandleRankingRejectsBadTop(t *testing.T) {
	router := newTestRouter(&stubService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insight/customers/ranking?top=ten", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleChartForwardsGranularity(t *testing.T) {
	stub := &stubService{series: []insight.FinancePoint{}}
	router := newTestRouter(stub)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insight/finance/chart?groupBy=quarter", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	if stub.seriesFilter.Granularity != insight.GranularityQuarter {
		t.Fatalf("granularity not forwarded: %+v", stub.seriesFilter)
	}
}

func TestHandleHiddenPaymentsParsesCustomerID(t *testing.T) {
	stub := &stubService{events: []insight.ReconciliationEvent{{ImpliedPayment: 20}}}
	router := newTestRouter(stub)
	id := uuid.New()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insight/customers/"+id.String()+"/hidden-payments", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	if stub.eventsID != id {
		t.Fatalf("customer id not forwarded: %s", stub.eventsID)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insight/customers/not-a-uuid/hidden-payments", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleDashboardCombinesReports(t *testing.T) {
	stub := &stubService{
		overview: insight.FinancialOverview{BillCount: 2},
		series:   []insight.FinancePoint{{Bucket: insight.PeriodBucket{Year: 2024, Month: 3}}},
	}
	router := newTestRouter(stub)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insight/finance/dashboard", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var payload struct {
		Overview insight.FinancialOverview `json:"overview"`
		Chart    []insight.FinancePoint    `json:"chart"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Overview.BillCount != 2 || len(payload.Chart) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
