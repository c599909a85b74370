package insight

import (
	"sort"

	"github.com/tallybook/tallybook/internal/billing"
)

// TotalSpent sums quantity times unit price over every line item in scope.
// The stored lineTotal is deliberately ignored: upstream validation is
// supposed to keep it consistent, but reports must not trust it.
func TotalSpent(bills []billing.Bill) float64 {
	var total float64
	for _, b := range bills {
		for _, item := range b.LineItems {
			total += item.Quantity * item.UnitPrice
		}
	}
	return total
}

// DeclaredPaid sums the recorded payment adjustments over all bills in scope.
func DeclaredPaid(bills []billing.Bill, names AdjustmentNames) float64 {
	var total float64
	for _, b := range bills {
		total += declaredPayments(b, names)
	}
	return total
}

// LatestDebt sums, across customers, the closing balance of each customer's
// most recent in-scope bill. finalResult is a running balance, so summing
// every bill's figure would count the same debt repeatedly.
func LatestDebt(bills []billing.Bill) float64 {
	latest := make(map[string]billing.Bill)
	for _, b := range bills {
		key := ""
		if b.CustomerID != nil {
			key = b.CustomerID.String()
		}
		prev, ok := latest[key]
		if !ok || laterBill(b, prev) {
			latest[key] = b
		}
	}
	var total float64
	for _, b := range latest {
		total += b.FinalBalance()
	}
	return total
}

// laterBill reports whether a comes after b under the projection order.
func laterBill(a, b billing.Bill) bool {
	if !a.BillDate.Equal(b.BillDate) {
		return a.BillDate.After(b.BillDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// sumImplied totals the hidden payments across reconciliation events.
func sumImplied(events []ReconciliationEvent) float64 {
	var total float64
	for _, ev := range events {
		total += ev.ImpliedPayment
	}
	return total
}

// overviewOf rolls a bill scope and its reconciliation events into the
// global overview figures.
func overviewOf(bills []billing.Bill, events []ReconciliationEvent, names AdjustmentNames) FinancialOverview {
	spent := TotalSpent(bills)
	declared := DeclaredPaid(bills, names)
	hidden := sumImplied(events)
	return FinancialOverview{
		BillCount:         len(bills),
		TotalSpent:        spent,
		TotalDeclaredPaid: declared,
		TotalHiddenPaid:   hidden,
		TotalDebt:         LatestDebt(bills),
		LedgerDebt:        spent - declared,
		ActualPaid:        declared + hidden,
	}
}

// summarizeCustomer builds the ranking row for one customer's bill group.
func summarizeCustomer(group customerBills, events []ReconciliationEvent, name string, names AdjustmentNames) CustomerFinancialSummary {
	spent := TotalSpent(group.bills)
	declared := DeclaredPaid(group.bills, names)
	hidden := sumImplied(events)
	summary := CustomerFinancialSummary{
		CustomerName:      name,
		BillCount:         len(group.bills),
		TotalSpent:        spent,
		TotalDeclaredPaid: declared,
		TotalHiddenPaid:   hidden,
		TotalDebt:         LatestDebt(group.bills),
		LedgerDebt:        spent - declared,
		ActualPaid:        declared + hidden,
		HiddenPayments:    events,
	}
	if group.customerID != nil {
		summary.CustomerID = *group.customerID
	}
	return summary
}

// FinanceSeries partitions the scope into calendar buckets and aggregates
// each independently. Per-bucket debt uses each customer's latest bill
// within that bucket only, so a balance never leaks across buckets; summing
// the series therefore does not reproduce the whole-range figure, and that
// is intentional.
func FinanceSeries(bills []billing.Bill, g Granularity, names AdjustmentNames) ([]FinancePoint, error) {
	buckets := make(map[PeriodBucket][]billing.Bill)
	for _, b := range bills {
		bucket, err := BucketOf(b.BillDate, g)
		if err != nil {
			return nil, err
		}
		buckets[bucket] = append(buckets[bucket], b)
	}
	points := make([]FinancePoint, 0, len(buckets))
	for bucket, scoped := range buckets {
		points = append(points, FinancePoint{
			Bucket:            bucket,
			TotalSpent:        TotalSpent(scoped),
			TotalDeclaredPaid: DeclaredPaid(scoped, names),
			TotalDebt:         LatestDebt(scoped),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return compareBuckets(points[i].Bucket, points[j].Bucket) > 0
	})
	return points, nil
}

// ItemStats groups line items by name, summing quantity and revenue.
func ItemStats(bills []billing.Bill) []ItemStat {
	byName := make(map[string]*ItemStat)
	for _, b := range bills {
		for _, item := range b.LineItems {
			stat, ok := byName[item.Name]
			if !ok {
				stat = &ItemStat{Name: item.Name}
				byName[item.Name] = stat
			}
			stat.LineCount++
			stat.TotalQuantity += item.Quantity
			stat.TotalRevenue += item.Quantity * item.UnitPrice
		}
	}
	stats := make([]ItemStat, 0, len(byName))
	for _, stat := range byName {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// itemStatsByBucket computes per-bucket item groupings for the chosen
// granularity, buckets most recent first.
func itemStatsByBucket(bills []billing.Bill, g Granularity) ([]PeriodItems, error) {
	buckets := make(map[PeriodBucket][]billing.Bill)
	for _, b := range bills {
		bucket, err := BucketOf(b.BillDate, g)
		if err != nil {
			return nil, err
		}
		buckets[bucket] = append(buckets[bucket], b)
	}
	periods := make([]PeriodItems, 0, len(buckets))
	for bucket, scoped := range buckets {
		periods = append(periods, PeriodItems{Bucket: bucket, Items: ItemStats(scoped)})
	}
	sort.Slice(periods, func(i, j int) bool {
		return compareBuckets(periods[i].Bucket, periods[j].Bucket) > 0
	})
	return periods, nil
}
