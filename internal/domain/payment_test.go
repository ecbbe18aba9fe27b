package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPaymentTransactionEnvelopeKeepsVariant(t *testing.T) {
	tx := PaymentTransaction{
		ID:        "pay-1",
		Amount:    decimal.NewFromInt(500),
		Mode:      PayCash,
		Timestamp: time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC),
		Details:   CashDetails{Tendered: decimal.NewFromInt(600), Change: decimal.NewFromInt(100)},
	}

	raw, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded PaymentTransaction
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	cash, ok := decoded.Details.(CashDetails)
	if !ok {
		t.Fatalf("expected CashDetails, got %T", decoded.Details)
	}
	if !cash.Tendered.Equal(decimal.NewFromInt(600)) || !cash.Change.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("cash details lost in round trip: %+v", cash)
	}
	if decoded.Mode != PayCash || !decoded.Amount.Equal(tx.Amount) {
		t.Fatalf("envelope fields lost: %+v", decoded)
	}
}

func TestPaymentTransactionNilDetails(t *testing.T) {
	tx := PaymentTransaction{ID: "pay-2", Amount: decimal.NewFromInt(100), Mode: PayUPI}

	raw, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded PaymentTransaction
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Details != nil {
		t.Fatalf("expected nil details, got %T", decoded.Details)
	}
}

func TestPaymentDetailLabels(t *testing.T) {
	if got := (UPIDetails{Reference: "txn789"}).Label(); got != "Ref: txn789" {
		t.Fatalf("upi label = %q", got)
	}
	if got := (CardDetails{Last4: "4242"}).Label(); got != "xx4242" {
		t.Fatalf("card label = %q", got)
	}
	if got := (CashDetails{}).Label(); got != "" {
		t.Fatalf("expected empty label for untendered cash, got %q", got)
	}
}
