package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"dinepos/internal/domain"
	"dinepos/internal/tax"
)

func amt(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// Filter Coffee is 60.00; with 2.5% + 2.5% GST one unit totals 63.00.
func addCoffee(t *testing.T, svc *Service, table string) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.OpenTable(ctx, table, 0); err != nil {
		t.Fatalf("open table: %v", err)
	}
	if _, err := svc.AddItem(ctx, table, "70", 1, ""); err != nil {
		t.Fatalf("add coffee: %v", err)
	}
}

func TestRecordPaymentSettlesExactAmount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	addCoffee(t, svc, "T1")

	res, err := svc.RecordPayment(ctx, "T1", amt(63), domain.PayCash, domain.CashDetails{Tendered: amt(100), Change: amt(37)}, decimal.Zero)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !res.FullySettled {
		t.Fatal("expected full settlement")
	}
	if !res.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", res.Balance)
	}
	if res.ClosedBill == nil {
		t.Fatal("expected closed bill")
	}
	if res.ClosedBill.BillNumber != "L-1001" {
		t.Fatalf("expected L-1001, got %q", res.ClosedBill.BillNumber)
	}
	if !res.ClosedBill.Total.Equal(amt(63)) {
		t.Fatalf("expected total 63, got %s", res.ClosedBill.Total)
	}

	// Table is free again.
	if _, err := svc.GetOpenBill(ctx, "T1"); !errors.Is(err, ErrNoOpenBill) {
		t.Fatalf("expected table freed, got %v", err)
	}
}

func TestRecordPaymentPartialKeepsBillOpen(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	addCoffee(t, svc, "T1")

	res, err := svc.RecordPayment(ctx, "T1", amt(30), domain.PayUPI, domain.UPIDetails{Reference: "txn123"}, decimal.Zero)
	if err != nil {
		t.Fatalf("partial pay: %v", err)
	}
	if res.FullySettled {
		t.Fatal("partial payment must not settle")
	}
	if !res.Balance.Equal(amt(33)) {
		t.Fatalf("expected balance 33, got %s", res.Balance)
	}

	bill, err := svc.GetOpenBill(ctx, "T1")
	if err != nil {
		t.Fatalf("bill must stay open: %v", err)
	}
	if len(bill.Payments) != 1 {
		t.Fatalf("expected payment attached to bill, got %d", len(bill.Payments))
	}
	if bill.BillNumber != "L-1001" {
		t.Fatalf("partial payment must still assign the number, got %q", bill.BillNumber)
	}

	// Second payment clears the rest across a different mode.
	res, err = svc.RecordPayment(ctx, "T1", amt(33), domain.PayCash, nil, decimal.Zero)
	if err != nil {
		t.Fatalf("closing pay: %v", err)
	}
	if !res.FullySettled {
		t.Fatal("expected settlement after second payment")
	}
	if len(res.ClosedBill.Payments) != 2 {
		t.Fatalf("expected both payments archived, got %d", len(res.ClosedBill.Payments))
	}
}

func TestRecordPaymentSettlementTolerance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// Short by exactly 0.50: settles.
	addCoffee(t, svc, "T1")
	res, err := svc.RecordPayment(ctx, "T1", amt(62.5), domain.PayCash, nil, decimal.Zero)
	if err != nil {
		t.Fatalf("pay within tolerance: %v", err)
	}
	if !res.FullySettled {
		t.Fatal("balance of 0.50 must settle")
	}

	// Short by 0.51: stays open.
	addCoffee(t, svc, "T2")
	res, err = svc.RecordPayment(ctx, "T2", amt(62.49), domain.PayCash, nil, decimal.Zero)
	if err != nil {
		t.Fatalf("pay outside tolerance: %v", err)
	}
	if res.FullySettled {
		t.Fatal("balance of 0.51 must not settle")
	}
}

func TestRecordPaymentOverpaymentClampsBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	addCoffee(t, svc, "T1")

	res, err := svc.RecordPayment(ctx, "T1", amt(100), domain.PayCash, domain.CashDetails{Tendered: amt(100), Change: amt(37)}, decimal.Zero)
	if err != nil {
		t.Fatalf("overpay: %v", err)
	}
	if !res.FullySettled {
		t.Fatal("overpayment must settle")
	}
	if res.Balance.IsNegative() {
		t.Fatalf("balance must never go negative, got %s", res.Balance)
	}
}

func TestRecordPaymentDiscountStoredOnFirstUse(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	addCoffee(t, svc, "T1")

	// 10% off 60 -> taxable 54 -> total 56.70. Partial payment stores the
	// discount on the bill.
	res, err := svc.RecordPayment(ctx, "T1", amt(30), domain.PayCash, nil, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("discounted pay: %v", err)
	}
	if !res.Balance.Equal(amt(26.7)) {
		t.Fatalf("expected balance 26.70, got %s", res.Balance)
	}

	// Zero discount on the follow-up keeps the stored 10%.
	res, err = svc.RecordPayment(ctx, "T1", amt(26.7), domain.PayCash, nil, decimal.Zero)
	if err != nil {
		t.Fatalf("closing pay: %v", err)
	}
	if !res.FullySettled {
		t.Fatal("expected settlement")
	}
	if !res.ClosedBill.DiscountAmount.Equal(amt(6)) {
		t.Fatalf("expected discount 6.00 archived, got %s", res.ClosedBill.DiscountAmount)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.RecordPayment(ctx, "T1", decimal.Zero, domain.PayCash, nil, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "T1", amt(10), domain.PayCash, domain.UPIDetails{Reference: "x"}, decimal.Zero); !errors.Is(err, ErrDetailMismatch) {
		t.Fatalf("expected ErrDetailMismatch, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "T1", amt(10), domain.PayCash, nil, decimal.Zero); !errors.Is(err, ErrNoOpenBill) {
		t.Fatalf("expected ErrNoOpenBill, got %v", err)
	}

	if _, err := svc.OpenTable(ctx, "T1", 2); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "T1", amt(10), domain.PayCash, nil, decimal.Zero); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	addCoffee(t, svc, "T1")
	if _, err := svc.RecordPayment(ctx, "T1", amt(10), domain.PayCash, nil, decimal.NewFromInt(101)); !errors.Is(err, tax.ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestRecordPaymentLogWrittenBeforeSettlementDecision(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	addCoffee(t, svc, "T1")

	if _, err := svc.RecordPayment(ctx, "T1", amt(30), domain.PayUPI, domain.UPIDetails{Reference: "txn123"}, decimal.Zero); err != nil {
		t.Fatalf("partial pay: %v", err)
	}

	// Void the table afterwards; the money already taken must stay on the
	// ledger.
	if err := svc.VoidTable(ctx, "T1"); err != nil {
		t.Fatalf("void: %v", err)
	}

	logs, err := svc.repo.PaymentLogs(ctx)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(logs))
	}
	if !logs[0].Amount.Equal(amt(30)) || logs[0].Mode != domain.PayUPI {
		t.Fatalf("unexpected ledger entry: %+v", logs[0])
	}
	if logs[0].Detail != "Ref: txn123" {
		t.Fatalf("expected detail label, got %q", logs[0].Detail)
	}
	if logs[0].Session != domain.SessionLunch {
		t.Fatalf("expected lunch session tag, got %s", logs[0].Session)
	}
}

func TestReprintBillFromArchive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	addCoffee(t, svc, "T1")

	res, err := svc.RecordPayment(ctx, "T1", amt(63), domain.PayCash, nil, decimal.Zero)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	snap, err := svc.ReprintBill(ctx, res.ClosedBill.ID)
	if err != nil {
		t.Fatalf("reprint: %v", err)
	}
	if snap.BillNumber != res.ClosedBill.BillNumber {
		t.Fatalf("expected archived number %q, got %q", res.ClosedBill.BillNumber, snap.BillNumber)
	}
	if snap.Header != testHeader {
		t.Fatalf("expected restaurant header, got %+v", snap.Header)
	}
	if len(snap.Payments) != 1 {
		t.Fatalf("expected archived payments, got %d", len(snap.Payments))
	}
}
