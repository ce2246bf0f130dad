package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestRecalculateTotals(t *testing.T) {
	order := Order{
		Lines: []OrderLine{
			{LineTotal: decimal.RequireFromString("21250.00"), CommissionAmt: decPtr("1062.50")},
			{LineTotal: decimal.RequireFromString("8000.00"), CommissionAmt: decPtr("400.00")},
			{LineTotal: decimal.RequireFromString("500.00")},
		},
	}
	order.RecalculateTotals()

	if !order.Subtotal.Equal(decimal.RequireFromString("29750.00")) {
		t.Errorf("subtotal = %s", order.Subtotal)
	}
	if !order.CommissionTotal.Equal(decimal.RequireFromString("1462.50")) {
		t.Errorf("commission total = %s", order.CommissionTotal)
	}
	if !order.TotalAmount.Equal(order.Subtotal) {
		t.Errorf("total = %s, want subtotal %s", order.TotalAmount, order.Subtotal)
	}
}

func TestCanCancel(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{OrderStatusDraft, true},
		{OrderStatusConfirmed, true},
		{OrderStatusPostedToQB, true},
		{OrderStatusPaid, false},
		{OrderStatusCancelled, false},
	}
	for _, tc := range cases {
		if got := CanCancel(tc.status); got != tc.want {
			t.Errorf("CanCancel(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestIsValidDocType(t *testing.T) {
	if !IsValidDocType(QboDocTypeInvoice) || !IsValidDocType(QboDocTypeEstimate) {
		t.Error("known doc types rejected")
	}
	if IsValidDocType("Invoice") || IsValidDocType("receipt") || IsValidDocType("") {
		t.Error("unknown doc types accepted")
	}
}
