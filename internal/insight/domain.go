package insight

import (
	"time"

	"github.com/google/uuid"
)

// Granularity enumerates the calendar units reports can be bucketed by.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// ParseGranularity validates a granularity string.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear:
		return g, nil
	default:
		return "", ErrInvalidGranularity
	}
}

// AdjustmentNames identifies the two adjustments the reconciliation engine
// recognises. The merchant's ledger records these under locale-specific
// labels, so they are injected rather than hardcoded.
type AdjustmentNames struct {
	// CarryOver is the name of the kind=add adjustment declaring the
	// balance brought forward onto a bill.
	CarryOver string
	// Payment is the name of the kind=subtract adjustment recording money
	// received from the customer.
	Payment string
}

// Config carries the per-deployment engine settings.
type Config struct {
	Names              AdjustmentNames
	DefaultTop         int
	DefaultGranularity Granularity
}

// ReconciliationEvent quantifies a payment the ledger never recorded: the
// previous bill closed at PreviousFinalResult, but the next bill only carried
// DeclaredCarryOver forward, so the difference must have been settled out of
// band. Derived, never persisted.
type ReconciliationEvent struct {
	CustomerID          *uuid.UUID `json:"customerId,omitempty"`
	CurrentBillID       uuid.UUID  `json:"currentBill"`
	PreviousBillID      uuid.UUID  `json:"previousBill"`
	CurrentDate         time.Time  `json:"currentDate"`
	PreviousDate        time.Time  `json:"lastDate"`
	DeclaredCarryOver   float64    `json:"currentBillDebt"`
	PreviousFinalResult float64    `json:"lastFinalResult"`
	ImpliedPayment      float64    `json:"paid"`
}

// PeriodBucket identifies one calendar bucket. Only the fields relevant to
// the granularity are set; buckets order descending by year then finer field.
type PeriodBucket struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter,omitempty"`
	Month   int `json:"month,omitempty"`
	Week    int `json:"week,omitempty"`
	Day     int `json:"day,omitempty"`
}

// FinancialOverview aggregates the whole in-scope ledger.
type FinancialOverview struct {
	BillCount         int     `json:"billCount"`
	TotalSpent        float64 `json:"totalSpent"`
	TotalDeclaredPaid float64 `json:"totalPaid"`
	TotalHiddenPaid   float64 `json:"totalHiddenPayment"`
	// TotalDebt sums each customer's most recent in-scope closing balance.
	TotalDebt float64 `json:"actualLatestBillDebt"`
	// LedgerDebt is the naive spent-minus-paid figure the merchant sees on
	// paper; it ignores hidden payments and latest-bill semantics.
	LedgerDebt float64 `json:"totalDebt"`
	ActualPaid float64 `json:"actualPaid"`
}

// CustomerFinancialSummary is the per-customer aggregate used for rankings.
type CustomerFinancialSummary struct {
	CustomerID        uuid.UUID             `json:"customerId"`
	CustomerName      string                `json:"customerName"`
	BillCount         int                   `json:"billCount"`
	TotalSpent        float64               `json:"totalSpent"`
	TotalDeclaredPaid float64               `json:"totalPaid"`
	TotalHiddenPaid   float64               `json:"totalHiddenPayment"`
	TotalDebt         float64               `json:"actualLatestBillDebt"`
	LedgerDebt        float64               `json:"totalDebt"`
	ActualPaid        float64               `json:"actualPaid"`
	HiddenPayments    []ReconciliationEvent `json:"hiddenPaymentList,omitempty"`
}

// FinancePoint is one bucket of the time-bucketed finance series.
type FinancePoint struct {
	Bucket            PeriodBucket `json:"bucket"`
	TotalSpent        float64      `json:"totalSpent"`
	TotalDeclaredPaid float64      `json:"totalPaid"`
	TotalDebt         float64      `json:"actualBillDebt"`
}

// ItemStat aggregates one line-item name across bills.
type ItemStat struct {
	Name          string  `json:"name"`
	LineCount     int     `json:"totalBills"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// PeriodItems holds the ranked items of one bucket.
type PeriodItems struct {
	Bucket PeriodBucket `json:"bucket"`
	Items  []ItemStat   `json:"items"`
}
