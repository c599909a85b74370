package insight

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tallybook/tallybook/internal/billing"
)

func withItems(b billing.Bill, items ...billing.LineItem) billing.Bill {
	b.LineItems = items
	return b
}

func item(name string, price, qty float64) billing.LineItem {
	return billing.LineItem{Name: name, UnitPrice: price, Quantity: qty}
}

func TestTotalSpentIgnoresStoredLineTotal(t *testing.T) {
	id := uuid.New()
	bills := []billing.Bill{
		withItems(testBill(&id, date(2024, time.March, 1), nil),
			billing.LineItem{Name: "gạo", UnitPrice: 10, Quantity: 2, LineTotal: 999},
			billing.LineItem{Name: "muối", UnitPrice: 5, Quantity: 1},
		),
	}
	if got := TotalSpent(bills); got != 25 {
		t.Fatalf("TotalSpent = %v, want 25", got)
	}
}

func TestDeclaredPaidSumsPaymentAdjustments(t *testing.T) {
	id := uuid.New()
	bills := []billing.Bill{
		testBill(&id, date(2024, time.March, 1), nil, payment(30), payment(20)),
		testBill(&id, date(2024, time.April, 1), nil,
			billing.Adjustment{Name: testNames.Payment, Kind: billing.AdjustmentAdd, Amount: 500}),
	}
	// The add-kind entry under the payment name does not count.
	if got := DeclaredPaid(bills, testNames); got != 50 {
		t.Fatalf("DeclaredPaid = %v, want 50", got)
	}
}

func TestLatestDebtTakesOneBillPerCustomer(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	bills := []billing.Bill{
		testBill(&alice, date(2024, time.January, 1), fptr(100)),
		testBill(&alice, date(2024, time.March, 1), fptr(40)),
		testBill(&bob, date(2024, time.February, 1), fptr(70)),
		// Unassigned bills form their own group.
		testBill(nil, date(2024, time.January, 15), fptr(5)),
		testBill(nil, date(2024, time.February, 15), fptr(12)),
	}
	if got := LatestDebt(bills); got != 40+70+12 {
		t.Fatalf("LatestDebt = %v, want 122", got)
	}
}

func TestLatestDebtBreaksDateTiesByCreatedAt(t *testing.T) {
	id := uuid.New()
	day := date(2024, time.March, 1)
	early := testBill(&id, day, fptr(100))
	early.CreatedAt = day.Add(1 * time.Hour)
	late := testBill(&id, day, fptr(25))
	late.CreatedAt = day.Add(2 * time.Hour)

	if got := LatestDebt([]billing.Bill{late, early}); got != 25 {
		t.Fatalf("LatestDebt = %v, want 25", got)
	}
}

func TestFinanceSeriesBucketsIndependently(t *testing.T) {
	id := uuid.New()
	bills := []billing.Bill{
		withItems(testBill(&id, date(2024, time.January, 10), fptr(100)), item("gạo", 10, 10)),
		withItems(testBill(&id, date(2024, time.February, 10), fptr(150), payment(30)), item("gạo", 10, 8)),
	}
	points, err := FinanceSeries(bills, GranularityMonth, testNames)
	if err != nil {
		t.Fatalf("FinanceSeries: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	// Most recent bucket first.
	if points[0].Bucket != (PeriodBucket{Year: 2024, Month: 2}) {
		t.Fatalf("expected February first, got %+v", points[0].Bucket)
	}
	if points[0].TotalSpent != 80 || points[0].TotalDeclaredPaid != 30 || points[0].TotalDebt != 150 {
		t.Fatalf("unexpected February point: %+v", points[0])
	}
	if points[1].TotalDebt != 100 {
		t.Fatalf("unexpected January point: %+v", points[1])
	}

	// Each bucket reports the running balance as of its own latest bill, so
	// the series does not sum to the whole-range figure.
	whole := LatestDebt(bills)
	if points[0].TotalDebt+points[1].TotalDebt == whole {
		t.Fatalf("bucketed debts should not be additive: %v + %v vs %v", points[0].TotalDebt, points[1].TotalDebt, whole)
	}
}

func TestOverviewOfCombinesScopeAndEvents(t *testing.T) {
	id := uuid.New()
	bills := []billing.Bill{
		withItems(testBill(&id, date(2024, time.January, 1), fptr(100)), item("gạo", 10, 10)),
		withItems(testBill(&id, date(2024, time.February, 1), fptr(120), carryOver(80), payment(40)), item("gạo", 10, 6)),
	}
	events := Reconcile(bills, testNames)

	got := overviewOf(bills, events, testNames)
	if got.BillCount != 2 {
		t.Fatalf("BillCount = %d", got.BillCount)
	}
	if got.TotalSpent != 160 {
		t.Fatalf("TotalSpent = %v, want 160", got.TotalSpent)
	}
	if got.TotalDeclaredPaid != 40 {
		t.Fatalf("TotalDeclaredPaid = %v, want 40", got.TotalDeclaredPaid)
	}
	if got.TotalHiddenPaid != 20 {
		t.Fatalf("TotalHiddenPaid = %v, want 20", got.TotalHiddenPaid)
	}
	if got.ActualPaid != 60 {
		t.Fatalf("ActualPaid = %v, want 60", got.ActualPaid)
	}
	if got.TotalDebt != 120 {
		t.Fatalf("TotalDebt = %v, want 120", got.TotalDebt)
	}
	if got.LedgerDebt != 120 {
		t.Fatalf("LedgerDebt = %v, want 120", got.LedgerDebt)
	}
}

func TestOverviewOfEmptyScopeIsAllZeros(t *testing.T) {
	got := overviewOf(nil, nil, testNames)
	if got != (FinancialOverview{}) {
		t.Fatalf("expected zero overview, got %+v", got)
	}
}

func TestItemStatsGroupsByName(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	bills := []billing.Bill{
		withItems(testBill(&a, date(2024, time.March, 1), nil), item("gạo", 10, 2), item("muối", 5, 1)),
		withItems(testBill(&b, date(2024, time.March, 2), nil), item("gạo", 12, 3)),
	}
	stats := ItemStats(bills)
	if len(stats) != 2 {
		t.Fatalf("expected 2 item groups, got %d", len(stats))
	}
	// Sorted by name; "gạo" < "muối".
	rice := stats[0]
	if rice.Name != "gạo" || rice.LineCount != 2 || rice.TotalQuantity != 5 || rice.TotalRevenue != 56 {
		t.Fatalf("unexpected rice stats: %+v", rice)
	}
}

func TestItemStatsByBucketOrdersRecentFirst(t *testing.T) {
	id := uuid.New()
	bills := []billing.Bill{
		withItems(testBill(&id, date(2024, time.January, 5), nil), item("gạo", 10, 1)),
		withItems(testBill(&id, date(2024, time.March, 5), nil), item("muối", 5, 2)),
	}
	periods, err := itemStatsByBucket(bills, GranularityMonth)
	if err != nil {
		t.Fatalf("itemStatsByBucket: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if periods[0].Bucket.Month != 3 || periods[1].Bucket.Month != 1 {
		t.Fatalf("expected March before January, got %+v", periods)
	}
}
