package domain

import "github.com/shopspring/decimal"

// Summarize derives the folio view from the literal ledger. It applies no
// policy: a fresh booking with an empty ledger is simply UNPAID here, and
// whether that is acceptable is the caller's call.
func Summarize(total decimal.Decimal, entries []FolioPayment) Summary {
	paid := decimal.Zero
	for _, entry := range entries {
		paid = paid.Add(entry.Amount)
	}

	balance := total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	status := PaymentStatusPartiallyPaid
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		status = PaymentStatusUnpaid
	case balance.LessThanOrEqual(decimal.Zero):
		status = PaymentStatusFullyPaid
	}

	return Summary{Paid: paid, Balance: balance, Status: status}
}

// ValidateAppend enforces the ledger append guards: positive amount, and the
// running sum may not pass the booking total by more than Tolerance.
func ValidateAppend(total, alreadyPaid, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if alreadyPaid.Add(amount).GreaterThan(total.Add(Tolerance)) {
		return ErrPaymentExceedsTotal
	}
	return nil
}
