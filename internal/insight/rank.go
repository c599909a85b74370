package insight

import (
	"sort"
	"strings"
)

// ParseSort splits the caller sort convention: a "+" prefix asks for
// ascending order, anything else sorts descending on the named metric.
func ParseSort(sortBy string) (metric string, ascending bool) {
	switch {
	case strings.HasPrefix(sortBy, "+"):
		return sortBy[1:], true
	case strings.HasPrefix(sortBy, "-"):
		return sortBy[1:], false
	default:
		return sortBy, false
	}
}

// applyLimit caps a ranked slice. Zero or negative means unbounded; the cap
// is applied strictly after sorting.
func applyLimit[T any](rows []T, limit int) []T {
	if limit > 0 && limit < len(rows) {
		return rows[:limit]
	}
	return rows
}

func summaryMetric(metric string) (func(CustomerFinancialSummary) float64, error) {
	switch metric {
	case "totalSpent":
		return func(s CustomerFinancialSummary) float64 { return s.TotalSpent }, nil
	case "totalPaid":
		return func(s CustomerFinancialSummary) float64 { return s.TotalDeclaredPaid }, nil
	case "totalHiddenPayment":
		return func(s CustomerFinancialSummary) float64 { return s.TotalHiddenPaid }, nil
	case "actualPaid":
		return func(s CustomerFinancialSummary) float64 { return s.ActualPaid }, nil
	case "totalDebt":
		return func(s CustomerFinancialSummary) float64 { return s.LedgerDebt }, nil
	case "actualLatestBillDebt":
		return func(s CustomerFinancialSummary) float64 { return s.TotalDebt }, nil
	case "billCount":
		return func(s CustomerFinancialSummary) float64 { return float64(s.BillCount) }, nil
	default:
		return nil, ErrInvalidMetric
	}
}

// RankSummaries orders customer summaries by the chosen metric with a stable
// customer-id tie-break, then applies the limit.
func RankSummaries(rows []CustomerFinancialSummary, sortBy string, limit int) ([]CustomerFinancialSummary, error) {
	metric, ascending := ParseSort(sortBy)
	value, err := summaryMetric(metric)
	if err != nil {
		return nil, err
	}
	ranked := make([]CustomerFinancialSummary, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := value(ranked[i]), value(ranked[j])
		if vi != vj {
			if ascending {
				return vi < vj
			}
			return vi > vj
		}
		return ranked[i].CustomerID.String() < ranked[j].CustomerID.String()
	})
	return applyLimit(ranked, limit), nil
}

func itemMetric(metric string) (func(ItemStat) float64, error) {
	switch metric {
	case "quantity":
		return func(s ItemStat) float64 { return s.TotalQuantity }, nil
	case "revenue":
		return func(s ItemStat) float64 { return s.TotalRevenue }, nil
	default:
		return nil, ErrInvalidMetric
	}
}

// RankItems orders item stats by the chosen metric with a stable name
// tie-break, then applies the limit.
func RankItems(rows []ItemStat, sortBy string, limit int) ([]ItemStat, error) {
	metric, ascending := ParseSort(sortBy)
	value, err := itemMetric(metric)
	if err != nil {
		return nil, err
	}
	ranked := make([]ItemStat, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := value(ranked[i]), value(ranked[j])
		if vi != vj {
			if ascending {
				return vi < vj
			}
			return vi > vj
		}
		return ranked[i].Name < ranked[j].Name
	})
	return applyLimit(ranked, limit), nil
}
