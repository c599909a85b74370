package insight

import (
	"sort"

	"github.com/google/uuid"

	"github.com/tallybook/tallybook/internal/billing"
)

// validateFilter enforces the projection contract: a single date and a range
// are mutually exclusive, and a range must not be inverted.
func validateFilter(f billing.BillFilter) error {
	if f.DateEq != nil && (f.DateFrom != nil || f.DateTo != nil) {
		return ErrInvalidRange
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return ErrInvalidRange
	}
	return nil
}

// sortBills orders bills by business date, then insertion time, then id.
// "Next bill" everywhere in this package means next under this order; the
// store returns rows this way already, but every downstream computation
// depends on it, so it is re-established here rather than assumed.
func sortBills(bills []billing.Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		if !bills[i].BillDate.Equal(bills[j].BillDate) {
			return bills[i].BillDate.Before(bills[j].BillDate)
		}
		if !bills[i].CreatedAt.Equal(bills[j].CreatedAt) {
			return bills[i].CreatedAt.Before(bills[j].CreatedAt)
		}
		return bills[i].ID.String() < bills[j].ID.String()
	})
}

// customerBills is one customer's ordered bill sequence. Legacy bills with
// no customer form a single unassigned group.
type customerBills struct {
	customerID *uuid.UUID
	bills      []billing.Bill
}

func (g customerBills) key() string {
	if g.customerID == nil {
		return ""
	}
	return g.customerID.String()
}

// groupByCustomer partitions an ordered bill slice per customer, preserving
// the bill order inside each group. Groups come back sorted by customer id
// so repeated runs visit them in the same order.
func groupByCustomer(bills []billing.Bill) []customerBills {
	index := make(map[string]int)
	var groups []customerBills
	for _, b := range bills {
		key := ""
		if b.CustomerID != nil {
			key = b.CustomerID.String()
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, customerBills{customerID: b.CustomerID})
		}
		groups[i].bills = append(groups[i].bills, b)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].key() < groups[j].key()
	})
	return groups
}
