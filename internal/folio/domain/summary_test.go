package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func entry(amount string) FolioPayment {
	return FolioPayment{Amount: decimal.RequireFromString(amount)}
}

func TestSummarize(t *testing.T) {
	total := decimal.RequireFromString("150000")

	cases := []struct {
		name    string
		entries []FolioPayment
		paid    string
		balance string
		status  PaymentStatus
	}{
		{
			name:    "empty ledger is unpaid",
			entries: nil,
			paid:    "0",
			balance: "150000",
			status:  PaymentStatusUnpaid,
		},
		{
			name:    "partial payment",
			entries: []FolioPayment{entry("50000")},
			paid:    "50000",
			balance: "100000",
			status:  PaymentStatusPartiallyPaid,
		},
		{
			name:    "multiple entries settle in full",
			entries: []FolioPayment{entry("50000"), entry("100000")},
			paid:    "150000",
			balance: "0",
			status:  PaymentStatusFullyPaid,
		},
		{
			name:    "overshoot clamps balance to zero",
			entries: []FolioPayment{entry("150000.0001")},
			paid:    "150000.0001",
			balance: "0",
			status:  PaymentStatusFullyPaid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary := Summarize(total, tc.entries)
			assert.True(t, summary.Paid.Equal(decimal.RequireFromString(tc.paid)), "paid = %s", summary.Paid)
			assert.True(t, summary.Balance.Equal(decimal.RequireFromString(tc.balance)), "balance = %s", summary.Balance)
			assert.Equal(t, tc.status, summary.Status)
		})
	}
}

func TestSummarizeZeroTotal(t *testing.T) {
	summary := Summarize(decimal.Zero, nil)
	if summary.Status != PaymentStatusUnpaid {
		t.Fatalf("expected UNPAID for zero total and empty ledger, got %s", summary.Status)
	}

	summary = Summarize(decimal.Zero, []FolioPayment{entry("1")})
	if summary.Status != PaymentStatusFullyPaid {
		t.Fatalf("expected FULLY_PAID once anything is paid against zero total, got %s", summary.Status)
	}
}

func TestValidateAppend(t *testing.T) {
	total := decimal.RequireFromString("100000")

	if err := ValidateAppend(total, decimal.Zero, decimal.Zero); err != ErrInvalidAmount {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if err := ValidateAppend(total, decimal.Zero, decimal.RequireFromString("-5")); err != ErrInvalidAmount {
		t.Fatalf("negative amount: expected ErrInvalidAmount, got %v", err)
	}

	if err := ValidateAppend(total, decimal.Zero, total); err != nil {
		t.Fatalf("exact settle: expected nil, got %v", err)
	}

	paid := decimal.RequireFromString("99999.9999")
	// Within tolerance of the total: allowed.
	if err := ValidateAppend(total, paid, decimal.RequireFromString("0.0002")); err != nil {
		t.Fatalf("within tolerance: expected nil, got %v", err)
	}
	// Past total plus tolerance: rejected.
	if err := ValidateAppend(total, paid, decimal.RequireFromString("0.001")); err != ErrPaymentExceedsTotal {
		t.Fatalf("past tolerance: expected ErrPaymentExceedsTotal, got %v", err)
	}
}
