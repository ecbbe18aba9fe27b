package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dinepos/internal/domain"
)

// settlementClock hands the service a strictly advancing timestamp so the
// report boundary cleanly separates payments taken before and after a
// confirmation.
func settlementClock(svc *Service) {
	current := lunchtime
	svc.now = func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestBuildSettlementReportAggregatesLedger(t *testing.T) {
	svc := newTestService()
	settlementClock(svc)
	ctx := context.Background()

	// Bill 1: coffee settled in full cash.
	addCoffee(t, svc, "T1")
	if _, err := svc.RecordPayment(ctx, "T1", amt(63), domain.PayCash, domain.CashDetails{Tendered: amt(100), Change: amt(37)}, decimal.Zero); err != nil {
		t.Fatalf("pay T1: %v", err)
	}

	// Bill 2: coffee split 30 UPI + 33 cash.
	addCoffee(t, svc, "T2")
	if _, err := svc.RecordPayment(ctx, "T2", amt(30), domain.PayUPI, domain.UPIDetails{Reference: "txn9"}, decimal.Zero); err != nil {
		t.Fatalf("pay T2 upi: %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "T2", amt(33), domain.PayCash, nil, decimal.Zero); err != nil {
		t.Fatalf("pay T2 cash: %v", err)
	}

	// Bill 3: partial card payment on a table that stays open.
	addCoffee(t, svc, "T3")
	if _, err := svc.RecordPayment(ctx, "T3", amt(20), domain.PayCard, domain.CardDetails{Last4: "4242"}, decimal.Zero); err != nil {
		t.Fatalf("pay T3 card: %v", err)
	}

	report, err := svc.BuildSettlementReport(ctx, amt(96))
	if err != nil {
		t.Fatalf("build report: %v", err)
	}

	if !report.GrandTotal.Equal(amt(146)) {
		t.Fatalf("expected revenue 146 from the ledger, got %s", report.GrandTotal)
	}
	if !report.CashSales.Equal(amt(96)) {
		t.Fatalf("expected cash 96, got %s", report.CashSales)
	}
	if !report.UPISales.Equal(amt(30)) {
		t.Fatalf("expected upi 30, got %s", report.UPISales)
	}
	if !report.CardSales.Equal(amt(20)) {
		t.Fatalf("expected card 20, got %s", report.CardSales)
	}
	if !report.CreditSales.Equal(amt(50)) {
		t.Fatalf("expected credit (upi+card) 50, got %s", report.CreditSales)
	}
	if report.BillCount != 2 {
		t.Fatalf("expected 2 closed bills, got %d", report.BillCount)
	}
	if len(report.BillNumbers) != 3 {
		t.Fatalf("expected 3 billed numbers incl. the open table, got %v", report.BillNumbers)
	}
	if report.TotalQty != 2 {
		t.Fatalf("expected qty stats from closed bills only, got %d", report.TotalQty)
	}

	// Drawer reconciles against cash sales only.
	if !report.Drawer.Expected.Equal(amt(96)) {
		t.Fatalf("expected drawer expectation 96, got %s", report.Drawer.Expected)
	}
	if !report.Drawer.Difference.IsZero() {
		t.Fatalf("expected balanced drawer, got %s", report.Drawer.Difference)
	}
}

func TestSettlementDrawerDifference(t *testing.T) {
	svc := newTestService()
	settlementClock(svc)
	ctx := context.Background()

	addCoffee(t, svc, "T1")
	if _, err := svc.RecordPayment(ctx, "T1", amt(63), domain.PayCash, nil, decimal.Zero); err != nil {
		t.Fatalf("pay: %v", err)
	}

	report, err := svc.BuildSettlementReport(ctx, amt(60))
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if !report.Drawer.Difference.Equal(amt(-3)) {
		t.Fatalf("expected shortfall of 3, got %s", report.Drawer.Difference)
	}
}

func TestSettlementBoundaryExcludesEarlierPayments(t *testing.T) {
	svc := newTestService()
	settlementClock(svc)
	ctx := context.Background()

	addCoffee(t, svc, "T1")
	if _, err := svc.RecordPayment(ctx, "T1", amt(63), domain.PayCash, nil, decimal.Zero); err != nil {
		t.Fatalf("pay T1: %v", err)
	}

	report, err := svc.BuildSettlementReport(ctx, amt(63))
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	if _, err := svc.ConfirmSettlement(ctx, report); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Nothing new yet: the next draft is empty.
	empty, err := svc.BuildSettlementReport(ctx, decimal.Zero)
	if err != nil {
		t.Fatalf("empty report: %v", err)
	}
	if !empty.GrandTotal.IsZero() || empty.BillCount != 0 {
		t.Fatalf("expected empty window, got total=%s bills=%d", empty.GrandTotal, empty.BillCount)
	}

	// New payment after the boundary shows up alone in the next window.
	addCoffee(t, svc, "T2")
	payRes, err := svc.RecordPayment(ctx, "T2", amt(63), domain.PayUPI, nil, decimal.Zero)
	if err != nil {
		t.Fatalf("pay T2: %v", err)
	}

	second, err := svc.BuildSettlementReport(ctx, decimal.Zero)
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if !second.GrandTotal.Equal(amt(63)) {
		t.Fatalf("expected only the new payment, got %s", second.GrandTotal)
	}
	if !second.StartTime.Equal(payRes.Log.Timestamp) {
		t.Fatalf("window must start at the earliest unsettled payment %s, got %s", payRes.Log.Timestamp, second.StartTime)
	}
	if !second.StartTime.After(report.EndTime) {
		t.Fatalf("window must begin after the previous boundary %s, got %s", report.EndTime, second.StartTime)
	}
	if second.BillCount != 1 {
		t.Fatalf("expected one closed bill in window, got %d", second.BillCount)
	}
}

func TestConfirmSettlementAssignsIDAndPersists(t *testing.T) {
	svc := newTestService()
	settlementClock(svc)
	ctx := context.Background()

	addCoffee(t, svc, "T1")
	if _, err := svc.RecordPayment(ctx, "T1", amt(63), domain.PayCash, nil, decimal.Zero); err != nil {
		t.Fatalf("pay: %v", err)
	}

	report, err := svc.BuildSettlementReport(ctx, amt(63))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	confirmed, err := svc.ConfirmSettlement(ctx, report)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.ID == "" {
		t.Fatal("expected settlement id assigned")
	}

	all, err := svc.Settlements(ctx)
	if err != nil {
		t.Fatalf("settlements: %v", err)
	}
	if len(all) != 1 || all[0].ID != confirmed.ID {
		t.Fatalf("expected persisted settlement, got %+v", all)
	}

	// A draft without an end time is rejected.
	if _, err := svc.ConfirmSettlement(ctx, domain.Settlement{}); !errors.Is(err, ErrInvalidDraft) {
		t.Fatalf("expected ErrInvalidDraft for zero end time, got %v", err)
	}
}
