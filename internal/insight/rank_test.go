package insight

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParseSort(t *testing.T) {
	for _, tc := range []struct {
		in        string
		metric    string
		ascending bool
	}{
		{"+totalSpent", "totalSpent", true},
		{"-totalSpent", "totalSpent", false},
		{"totalSpent", "totalSpent", false},
	} {
		metric, ascending := ParseSort(tc.in)
		if metric != tc.metric || ascending != tc.ascending {
			t.Fatalf("ParseSort(%q) = (%q, %v), want (%q, %v)", tc.in, metric, ascending, tc.metric, tc.ascending)
		}
	}
}

func namedSummary(name string, spent float64) CustomerFinancialSummary {
	return CustomerFinancialSummary{CustomerID: uuid.New(), CustomerName: name, TotalSpent: spent}
}

func TestRankSummariesAscendingWithPlusPrefix(t *testing.T) {
	rows := []CustomerFinancialSummary{
		namedSummary("b", 300),
		namedSummary("a", 100),
		namedSummary("c", 200),
	}
	ranked, err := RankSummaries(rows, "+totalSpent", 0)
	if err != nil {
		t.Fatalf("RankSummaries: %v", err)
	}
	if ranked[0].TotalSpent != 100 || ranked[1].TotalSpent != 200 || ranked[2].TotalSpent != 300 {
		t.Fatalf("unexpected ascending order: %+v", ranked)
	}
	// Input order untouched.
	if rows[0].TotalSpent != 300 {
		t.Fatalf("input slice mutated")
	}
}

func TestRankSummariesDefaultsDescending(t *testing.T) {
	rows := []CustomerFinancialSummary{
		namedSummary("a", 100),
		namedSummary("b", 300),
	}
	ranked, err := RankSummaries(rows, "totalSpent", 0)
	if err != nil {
		t.Fatalf("RankSummaries: %v", err)
	}
	if ranked[0].TotalSpent != 300 {
		t.Fatalf("expected descending order, got %+v", ranked)
	}
}

func TestRankSummariesLimitAppliesAfterSort(t *testing.T) {
	rows := []CustomerFinancialSummary{
		namedSummary("a", 100),
		namedSummary("b", 300),
		namedSummary("c", 200),
	}
	ranked, err := RankSummaries(rows, "totalSpent", 2)
	if err != nil {
		t.Fatalf("RankSummaries: %v", err)
	}
	if len(ranked) != 2 || ranked[0].TotalSpent != 300 || ranked[1].TotalSpent != 200 {
		t.Fatalf("limit must cap the sorted ranking, got %+v", ranked)
	}
}

func TestRankSummariesTieBreaksByCustomerID(t *testing.T) {
	low := CustomerFinancialSummary{CustomerID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), TotalSpent: 50}
	high := CustomerFinancialSummary{CustomerID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), TotalSpent: 50}

	ranked, err := RankSummaries([]CustomerFinancialSummary{high, low}, "totalSpent", 0)
	if err != nil {
		t.Fatalf("RankSummaries: %v", err)
	}
	if ranked[0].CustomerID != low.CustomerID {
		t.Fatalf("expected id tie-break, got %+v", ranked)
	}
	// Same result regardless of input order.
	ranked, err = RankSummaries([]CustomerFinancialSummary{low, high}, "totalSpent", 0)
	if err != nil {
		t.Fatalf("RankSummaries: %v", err)
	}
	if ranked[0].CustomerID != low.CustomerID {
		t.Fatalf("ranking depends on input order: %+v", ranked)
	}
}

func TestRankSummariesSupportsEveryMetric(t *testing.T) {
	rows := []CustomerFinancialSummary{{CustomerID: uuid.New()}}
	for _, metric := range []string{
		"totalSpent", "totalPaid", "totalHiddenPayment", "actualPaid",
		"totalDebt", "actualLatestBillDebt", "billCount",
	} {
		if _, err := RankSummaries(rows, metric, 0); err != nil {
			t.Fatalf("metric %q rejected: %v", metric, err)
		}
	}
}

func TestRankSummariesRejectsUnknownMetric(t *testing.T) {
	if _, err := RankSummaries(nil, "shoeSize", 0); !errors.Is(err, ErrInvalidMetric) {
		t.Fatalf("expected ErrInvalidMetric, got %v", err)
	}
}

func TestRankItemsByRevenue(t *testing.T) {
	rows := []ItemStat{
		{Name: "gạo", TotalQuantity: 5, TotalRevenue: 50},
		{Name: "muối", TotalQuantity: 20, TotalRevenue: 40},
	}
	ranked, err := RankItems(rows, "revenue", 0)
	if err != nil {
		t.Fatalf("RankItems: %v", err)
	}
	if ranked[0].Name != "gạo" {
		t.Fatalf("expected revenue order, got %+v", ranked)
	}
	ranked, err = RankItems(rows, "quantity", 1)
	if err != nil {
		t.Fatalf("RankItems: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Name != "muối" {
		t.Fatalf("expected top quantity item, got %+v", ranked)
	}
}

func TestApplyLimitTreatsNonPositiveAsUnbounded(t *testing.T) {
	rows := []int{1, 2, 3}
	if got := applyLimit(rows, 0); len(got) != 3 {
		t.Fatalf("limit 0 must keep everything")
	}
	if got := applyLimit(rows, -5); len(got) != 3 {
		t.Fatalf("negative limit must keep everything")
	}
	if got := applyLimit(rows, 10); len(got) != 3 {
		t.Fatalf("oversized limit must keep everything")
	}
}
