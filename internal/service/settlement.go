package service

import (
	"context"

	"github.com/shopspring/decimal"

	"dinepos/internal/domain"
	"dinepos/internal/session"
	"dinepos/internal/xid"
)

// BuildSettlementReport produces a draft Z-report covering every payment
// logged after the previous settlement's end time. Revenue comes from the
// payment log, not from bill records, so money taken on tables that were
// later voided or are still open is never lost. Closed bills in the window
// contribute the tax and quantity statistics only.
//
// The draft is not persisted; ConfirmSettlement does that.
func (s *Service) BuildSettlementReport(ctx context.Context, actualCash decimal.Decimal) (domain.Settlement, error) {
	boundary, err := s.repo.LastSettlementEnd(ctx)
	if err != nil {
		return domain.Settlement{}, err
	}

	logs, err := s.repo.PaymentLogsAfter(ctx, boundary)
	if err != nil {
		return domain.Settlement{}, err
	}

	now := s.now()
	report := domain.Settlement{
		Session:   session.Of(now),
		StartTime: now,
		EndTime:   now,
	}
	for _, entry := range logs {
		if entry.Timestamp.Before(report.StartTime) {
			report.StartTime = entry.Timestamp
		}
	}

	byMode := map[domain.PaymentMode]*domain.ModeBreakdown{}
	seenBills := map[string]bool{}
	for _, entry := range logs {
		report.GrandTotal = report.GrandTotal.Add(entry.Amount)

		mb, ok := byMode[entry.Mode]
		if !ok {
			mb = &domain.ModeBreakdown{Mode: entry.Mode}
			byMode[entry.Mode] = mb
		}
		mb.Amount = mb.Amount.Add(entry.Amount)
		mb.Count++
		if entry.Detail != "" {
			mb.Details = append(mb.Details, entry.Detail)
		}

		if entry.BillNumber != "" && !seenBills[entry.BillNumber] {
			seenBills[entry.BillNumber] = true
			report.BillNumbers = append(report.BillNumbers, entry.BillNumber)
		}

		switch entry.Mode {
		case domain.PayCash:
			report.CashSales = report.CashSales.Add(entry.Amount)
		case domain.PayUPI:
			report.UPISales = report.UPISales.Add(entry.Amount)
		case domain.PayCard:
			report.CardSales = report.CardSales.Add(entry.Amount)
		}
	}
	// Credit is everything that did not land in the drawer.
	report.CreditSales = report.UPISales.Add(report.CardSales)
	for _, mode := range []domain.PaymentMode{domain.PayCash, domain.PayUPI, domain.PayCard} {
		if mb, ok := byMode[mode]; ok {
			report.Breakdown = append(report.Breakdown, *mb)
		}
	}

	// Tax and quantity stats come from bills archived in the window.
	closed, err := s.repo.ClosedBillsAfter(ctx, boundary)
	if err != nil {
		return domain.Settlement{}, err
	}
	report.BillCount = len(closed)
	for _, bill := range closed {
		report.SubTotal = report.SubTotal.Add(bill.SubTotal)
		report.TotalDiscount = report.TotalDiscount.Add(bill.DiscountAmount)
		report.CGST = report.CGST.Add(bill.CGST)
		report.SGST = report.SGST.Add(bill.SGST)
		for _, line := range bill.Items {
			report.TotalQty += line.Quantity
		}
	}

	report.Drawer = domain.CashDrawer{
		Expected:   report.CashSales,
		Actual:     actualCash,
		Difference: actualCash.Sub(report.CashSales),
	}

	return report, nil
}

// ConfirmSettlement persists a draft report. Its end time becomes the
// boundary for the next report, so confirming twice with the same draft is
// rejected upstream by the empty-window check on the rebuild.
func (s *Service) ConfirmSettlement(ctx context.Context, report domain.Settlement) (domain.Settlement, error) {
	if report.EndTime.IsZero() {
		return domain.Settlement{}, ErrInvalidDraft
	}
	if report.ID == "" {
		report.ID = xid.New("settle")
	}
	if err := s.repo.AppendSettlement(ctx, report); err != nil {
		return domain.Settlement{}, err
	}
	return report, nil
}

func (s *Service) Settlements(ctx context.Context) ([]domain.Settlement, error) {
	return s.repo.Settlements(ctx)
}
