package insight

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tallybook/tallybook/internal/billing"
)

func TestValidateFilterRejectsEqWithRange(t *testing.T) {
	eq := date(2024, time.March, 1)
	from := date(2024, time.January, 1)
	err := validateFilter(billing.BillFilter{DateEq: &eq, DateFrom: &from})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestValidateFilterRejectsInvertedRange(t *testing.T) {
	from := date(2024, time.March, 1)
	to := date(2024, time.January, 1)
	err := validateFilter(billing.BillFilter{DateFrom: &from, DateTo: &to})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestValidateFilterAllowsOpenAndClosedRanges(t *testing.T) {
	from := date(2024, time.January, 1)
	to := date(2024, time.March, 1)
	eq := from
	for _, f := range []billing.BillFilter{
		{},
		{DateFrom: &from},
		{DateTo: &to},
		{DateFrom: &from, DateTo: &to},
		{DateEq: &eq},
	} {
		if err := validateFilter(f); err != nil {
			t.Fatalf("filter %+v rejected: %v", f, err)
		}
	}
}

func TestSortBillsOrdersByDateThenCreatedAtThenID(t *testing.T) {
	id := uuid.New()
	day := date(2024, time.March, 1)

	a := testBill(&id, date(2024, time.February, 1), nil)
	b := testBill(&id, day, nil)
	b.CreatedAt = day.Add(1 * time.Hour)
	c := testBill(&id, day, nil)
	c.CreatedAt = day.Add(2 * time.Hour)
	d := testBill(&id, day, nil)
	d.CreatedAt = c.CreatedAt
	if d.ID.String() < c.ID.String() {
		c, d = d, c
	}

	bills := []billing.Bill{d, c, b, a}
	sortBills(bills)
	want := []uuid.UUID{a.ID, b.ID, c.ID, d.ID}
	for i, bill := range bills {
		if bill.ID != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, bill.ID, want[i])
		}
	}
}

func TestGroupByCustomerPreservesBillOrder(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	bills := []billing.Bill{
		testBill(&alice, date(2024, time.January, 1), nil),
		testBill(&bob, date(2024, time.January, 2), nil),
		testBill(nil, date(2024, time.January, 3), nil),
		testBill(&alice, date(2024, time.January, 4), nil),
	}
	sortBills(bills)

	groups := groupByCustomer(bills)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	// The unassigned group sorts first on its empty key.
	if groups[0].customerID != nil {
		t.Fatalf("expected unassigned group first, got %+v", groups[0].customerID)
	}
	for _, g := range groups {
		if g.customerID != nil && *g.customerID == alice {
			if len(g.bills) != 2 || !g.bills[0].BillDate.Before(g.bills[1].BillDate) {
				t.Fatalf("group order lost: %+v", g.bills)
			}
		}
	}
}

func TestGroupByCustomerDeterministicOrder(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	bills := []billing.Bill{
		testBill(&b, date(2024, time.January, 1), nil),
		testBill(&a, date(2024, time.January, 2), nil),
	}
	groups := groupByCustomer(bills)
	if *groups[0].customerID != a || *groups[1].customerID != b {
		t.Fatalf("groups not sorted by customer id: %+v", groups)
	}
}
