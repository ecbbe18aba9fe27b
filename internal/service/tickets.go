package service

import (
	"context"

	"dinepos/internal/domain"
	"dinepos/internal/session"
	"dinepos/internal/tax"
)

// SendKOT marks every unsent cart line as sent and returns the kitchen
// ticket carrying exactly those lines. When nothing new is on the cart the
// ticket is nil and no state changes, so a double tap prints nothing twice.
func (s *Service) SendKOT(ctx context.Context, tableID string) (*domain.KOTTicket, error) {
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return nil, err
	}

	var fresh []domain.CartLine
	alreadySent := false
	for i := range bill.Lines {
		if bill.Lines[i].SentToKitchen {
			alreadySent = true
			continue
		}
		bill.Lines[i].SentToKitchen = true
		fresh = append(fresh, bill.Lines[i])
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	raiseStatus(bill, domain.StatusKOTSent)
	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return nil, err
	}

	return &domain.KOTTicket{
		TableID:       bill.TableID,
		OrderType:     bill.OrderType,
		Lines:         fresh,
		Supplementary: alreadySent,
		Pax:           bill.Pax,
		PrintedAt:     s.now(),
	}, nil
}

// PrintBill builds the provisional bill for the table, assigning the bill
// number on first print. Printing again reuses the same number; the bill
// stays open until payment settles it. An empty cart is a no-op: nil
// snapshot, no number minted, no state change.
func (s *Service) PrintBill(ctx context.Context, tableID string) (*domain.BillSnapshot, error) {
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if len(bill.Lines) == 0 {
		return nil, nil
	}

	totals, err := tax.Compute(bill.Lines, bill.DiscountPercent)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBillNumber(ctx, bill); err != nil {
		return nil, err
	}
	raiseStatus(bill, domain.StatusBillPrinted)
	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return nil, err
	}

	now := s.now()
	return &domain.BillSnapshot{
		Header:         s.header,
		BillNumber:     bill.BillNumber,
		TableID:        bill.TableID,
		OrderType:      bill.OrderType,
		Session:        session.Of(now),
		Timestamp:      now,
		Items:          bill.Lines,
		SubTotal:       totals.SubTotal,
		DiscountAmount: totals.DiscountAmount,
		CGST:           totals.CGST,
		SGST:           totals.SGST,
		Total:          totals.Total,
		Payments:       bill.Payments,
		BalanceDue:     balanceDue(totals.Total, bill.TotalPaid()),
		Pax:            bill.Pax,
	}, nil
}

// ReprintBill rebuilds the printable snapshot of an archived bill.
func (s *Service) ReprintBill(ctx context.Context, closedBillID string) (*domain.BillSnapshot, error) {
	closed, err := s.repo.ClosedBill(ctx, closedBillID)
	if err != nil {
		return nil, err
	}

	return &domain.BillSnapshot{
		Header:         s.header,
		BillNumber:     closed.BillNumber,
		TableID:        closed.TableID,
		OrderType:      closed.OrderType,
		Session:        closed.Session,
		Timestamp:      closed.Timestamp,
		Items:          closed.Items,
		SubTotal:       closed.SubTotal,
		DiscountAmount: closed.DiscountAmount,
		CGST:           closed.CGST,
		SGST:           closed.SGST,
		Total:          closed.Total,
		Payments:       closed.Payments,
		Pax:            closed.Pax,
	}, nil
}
