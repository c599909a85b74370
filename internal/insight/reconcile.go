package insight

import "github.com/tallybook/tallybook/internal/billing"

// Reconcile walks one customer's bill sequence, already ordered by bill date
// then insertion time, and emits an event for every adjacent pair whose
// declared carry-over disagrees with the previous closing balance. A zero
// difference means the ledger explains itself and nothing is emitted.
// Sequences of fewer than two bills produce no events.
func Reconcile(bills []billing.Bill, names AdjustmentNames) []ReconciliationEvent {
	if len(bills) < 2 {
		return nil
	}
	var events []ReconciliationEvent
	for i := 1; i < len(bills); i++ {
		prev, cur := bills[i-1], bills[i]
		carry := carryOverAmount(cur, names)
		implied := prev.FinalBalance() - carry
		if implied == 0 {
			continue
		}
		events = append(events, ReconciliationEvent{
			CustomerID:          cur.CustomerID,
			CurrentBillID:       cur.ID,
			PreviousBillID:      prev.ID,
			CurrentDate:         cur.BillDate,
			PreviousDate:        prev.BillDate,
			DeclaredCarryOver:   carry,
			PreviousFinalResult: prev.FinalBalance(),
			ImpliedPayment:      implied,
		})
	}
	return events
}

// carryOverAmount returns the amount of the first adjustment declaring debt
// brought forward onto the bill, or zero when the bill declares none.
func carryOverAmount(b billing.Bill, names AdjustmentNames) float64 {
	for _, adj := range b.Adjustments {
		if adj.Name == names.CarryOver && adj.Kind == billing.AdjustmentAdd {
			return adj.Amount
		}
	}
	return 0
}

// declaredPayments sums the explicitly recorded payment adjustments on a bill.
func declaredPayments(b billing.Bill, names AdjustmentNames) float64 {
	var total float64
	for _, adj := range b.Adjustments {
		if adj.Name == names.Payment && adj.Kind == billing.AdjustmentSubtract {
			total += adj.Amount
		}
	}
	return total
}
