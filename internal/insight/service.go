package insight

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tallybook/tallybook/internal/billing"
)

// Store is the read-only data contract the engine requires. Both calls must
// reflect a single consistent snapshot for the duration of one invocation;
// that is the store's responsibility, not the engine's.
type Store interface {
	QueryBills(ctx context.Context, f billing.BillFilter) ([]billing.Bill, error)
	QueryCustomers(ctx context.Context) ([]billing.Customer, error)
}

// Reconciliation across customers is independent work; below this many
// customer groups the fan-out overhead outweighs the win.
const parallelThreshold = 16

// Service computes financial reports from the current ledger snapshot.
// Every call is a pure function of the fetched data; nothing is retained
// between calls.
type Service struct {
	store Store
	cfg   Config
	cache *Cache
}

// NewService wires the engine with its store, configuration, and an
// optional report cache.
func NewService(store Store, cfg Config, cache *Cache) *Service {
	if cfg.DefaultGranularity == "" {
		cfg.DefaultGranularity = GranularityMonth
	}
	return &Service{store: store, cfg: cfg, cache: cache}
}

// OverviewFilter scopes the overview report. Zero times leave that side of
// the range open; a nil CustomerID covers the whole ledger.
type OverviewFilter struct {
	From       time.Time
	To         time.Time
	CustomerID *uuid.UUID
}

// RankingFilter scopes and orders the customer ranking.
type RankingFilter struct {
	From   time.Time
	To     time.Time
	SortBy string
	Top    int
}

// SeriesFilter scopes the time-bucketed finance series.
type SeriesFilter struct {
	From        time.Time
	To          time.Time
	Granularity Granularity
	CustomerID  *uuid.UUID
}

// ItemsFilter scopes and orders item rankings.
type ItemsFilter struct {
	From        time.Time
	To          time.Time
	SortBy      string
	Top         int
	Granularity Granularity
}

// Overview reports the ledger-wide financial totals for the scope,
// including payments only visible through reconciliation.
func (s *Service) Overview(ctx context.Context, f OverviewFilter) (FinancialOverview, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		bills, err := s.fetchBills(ctx, rangeFilter(f.From, f.To, f.CustomerID))
		if err != nil {
			return nil, err
		}
		events, err := s.reconcileGroups(ctx, groupByCustomer(bills))
		if err != nil {
			return nil, err
		}
		return overviewOf(bills, events, s.cfg.Names), nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return FinancialOverview{}, err
		}
		return value.(FinancialOverview), nil
	}

	key, err := s.cache.BuildKey(ctx, keyOverview(f.From, f.To, f.CustomerID))
	if err != nil {
		return FinancialOverview{}, err
	}
	var overview FinancialOverview
	if err := s.cache.FetchJSON(ctx, key, &overview, loader); err != nil {
		return FinancialOverview{}, err
	}
	return overview, nil
}

// CustomerSummary reports the same totals scoped to one customer.
func (s *Service) CustomerSummary(ctx context.Context, customerID uuid.UUID, from, to time.Time) (CustomerFinancialSummary, error) {
	if customerID == uuid.Nil {
		return CustomerFinancialSummary{}, fmt.Errorf("%w: customer id", ErrMissingParameter)
	}
	bills, err := s.fetchBills(ctx, rangeFilter(from, to, &customerID))
	if err != nil {
		return CustomerFinancialSummary{}, err
	}
	events := Reconcile(bills, s.cfg.Names)
	name, err := s.customerName(ctx, customerID)
	if err != nil {
		return CustomerFinancialSummary{}, err
	}
	group := customerBills{customerID: &customerID, bills: bills}
	return summarizeCustomer(group, events, name, s.cfg.Names), nil
}

// CustomerRanking ranks customers over a required date range using the
// "+metric" ascending / "metric" descending convention. Bills never assigned
// to a customer are left out; there is nobody to rank them under.
func (s *Service) CustomerRanking(ctx context.Context, f RankingFilter) ([]CustomerFinancialSummary, error) {
	if f.From.IsZero() || f.To.IsZero() {
		return nil, fmt.Errorf("%w: date range", ErrMissingParameter)
	}
	bills, err := s.fetchBills(ctx, rangeFilter(f.From, f.To, nil))
	if err != nil {
		return nil, err
	}
	customers, err := s.fetchCustomers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}

	groups := groupByCustomer(bills)
	eventsByGroup, err := s.reconcileByGroup(ctx, groups)
	if err != nil {
		return nil, err
	}

	summaries := make([]CustomerFinancialSummary, 0, len(groups))
	for i, group := range groups {
		if group.customerID == nil {
			continue
		}
		summaries = append(summaries, summarizeCustomer(group, eventsByGroup[i], names[*group.customerID], s.cfg.Names))
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "+totalSpent"
	}
	return RankSummaries(summaries, sortBy, f.Top)
}

// FinanceSeries reports per-bucket totals for the chosen granularity, most
// recent bucket first.
func (s *Service) FinanceSeries(ctx context.Context, f SeriesFilter) ([]FinancePoint, error) {
	g := f.Granularity
	if g == "" {
		g = s.cfg.DefaultGranularity
	}
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}

	loader := func(ctx context.Context) (interface{}, error) {
		bills, err := s.fetchBills(ctx, rangeFilter(f.From, f.To, f.CustomerID))
		if err != nil {
			return nil, err
		}
		return FinanceSeries(bills, g, s.cfg.Names)
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return value.([]FinancePoint), nil
	}

	key, err := s.cache.BuildKey(ctx, keySeries(f.From, f.To, g, f.CustomerID))
	if err != nil {
		return nil, err
	}
	var points []FinancePoint
	if err := s.cache.FetchJSON(ctx, key, &points, loader); err != nil {
		return nil, err
	}
	return points, nil
}

// TopItems ranks line items across the whole scope by quantity or revenue.
func (s *Service) TopItems(ctx context.Context, f ItemsFilter) ([]ItemStat, error) {
	if f.From.IsZero() || f.To.IsZero() {
		return nil, fmt.Errorf("%w: date range", ErrMissingParameter)
	}
	bills, err := s.fetchBills(ctx, rangeFilter(f.From, f.To, nil))
	if err != nil {
		return nil, err
	}
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "quantity"
	}
	return RankItems(ItemStats(bills), sortBy, f.Top)
}

// TopItemsByPeriod ranks line items inside each calendar bucket, applying
// the top cap per bucket.
func (s *Service) TopItemsByPeriod(ctx context.Context, f ItemsFilter) ([]PeriodItems, error) {
	if f.From.IsZero() || f.To.IsZero() {
		return nil, fmt.Errorf("%w: date range", ErrMissingParameter)
	}
	g := f.Granularity
	if g == "" {
		g = s.cfg.DefaultGranularity
	}
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}
	bills, err := s.fetchBills(ctx, rangeFilter(f.From, f.To, nil))
	if err != nil {
		return nil, err
	}
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "quantity"
	}
	periods, err := itemStatsByBucket(bills, g)
	if err != nil {
		return nil, err
	}
	for i := range periods {
		ranked, err := RankItems(periods[i].Items, sortBy, f.Top)
		if err != nil {
			return nil, err
		}
		periods[i].Items = ranked
	}
	return periods, nil
}

// HiddenPayments returns the reconciliation events for one customer's bill
// history in the range.
func (s *Service) HiddenPayments(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]ReconciliationEvent, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id", ErrMissingParameter)
	}
	bills, err := s.fetchBills(ctx, rangeFilter(from, to, &customerID))
	if err != nil {
		return nil, err
	}
	return Reconcile(bills, s.cfg.Names), nil
}

// fetchBills validates the filter, queries the store, and re-establishes the
// projection order.
func (s *Service) fetchBills(ctx context.Context, f billing.BillFilter) ([]billing.Bill, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	bills, err := s.store.QueryBills(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("insight: fetch bills: %w", err)
	}
	sortBills(bills)
	return bills, nil
}

func (s *Service) fetchCustomers(ctx context.Context) ([]billing.Customer, error) {
	customers, err := s.store.QueryCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("insight: fetch customers: %w", err)
	}
	return customers, nil
}

func (s *Service) customerName(ctx context.Context, id uuid.UUID) (string, error) {
	customers, err := s.fetchCustomers(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range customers {
		if c.ID == id {
			return c.Name, nil
		}
	}
	return "", nil
}

// reconcileGroups reconciles every customer group and concatenates the
// events in group order. Bills never assigned to a customer are not a
// sequence; walking them together would infer payments between unrelated
// bills, so the unassigned group is skipped.
func (s *Service) reconcileGroups(ctx context.Context, groups []customerBills) ([]ReconciliationEvent, error) {
	assigned := make([]customerBills, 0, len(groups))
	for _, group := range groups {
		if group.customerID == nil {
			continue
		}
		assigned = append(assigned, group)
	}
	byGroup, err := s.reconcileByGroup(ctx, assigned)
	if err != nil {
		return nil, err
	}
	var events []ReconciliationEvent
	for _, groupEvents := range byGroup {
		events = append(events, groupEvents...)
	}
	return events, nil
}

// reconcileByGroup runs Reconcile per customer, fanning out across
// goroutines once the customer set is large. Each goroutine writes only its
// own slot, and the merge is a plain concatenation, so ordering stays
// deterministic.
func (s *Service) reconcileByGroup(ctx context.Context, groups []customerBills) ([][]ReconciliationEvent, error) {
	results := make([][]ReconciliationEvent, len(groups))
	if len(groups) < parallelThreshold {
		for i, group := range groups {
			results[i] = Reconcile(group.bills, s.cfg.Names)
		}
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Reconcile(group.bills, s.cfg.Names)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func rangeFilter(from, to time.Time, customerID *uuid.UUID) billing.BillFilter {
	f := billing.BillFilter{CustomerID: customerID}
	if !from.IsZero() {
		fromCopy := from
		f.DateFrom = &fromCopy
	}
	if !to.IsZero() {
		toCopy := to
		f.DateTo = &toCopy
	}
	return f
}
