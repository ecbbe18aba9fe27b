package service

import (
	"context"

	"github.com/shopspring/decimal"

	"dinepos/internal/domain"
	"dinepos/internal/session"
	"dinepos/internal/tax"
	"dinepos/internal/xid"
)

// settleTolerance is the largest balance still treated as fully paid.
// Covers the rounding shortfall when cash is handed over without coins.
var settleTolerance = decimal.NewFromFloat(0.5)

// PaymentResult reports the outcome of one recorded payment. ClosedBill is
// non-nil only when this payment settled the bill.
type PaymentResult struct {
	Transaction  domain.PaymentTransaction
	Log          domain.PaymentLog
	Balance      decimal.Decimal
	FullySettled bool
	ClosedBill   *domain.ClosedBill
}

// RecordPayment takes one payment against the table's open bill. The
// payment-log entry is written unconditionally before any settlement
// decision, so a later void still leaves the money accounted for. When the
// remaining balance falls within the settlement tolerance the bill is
// archived and the table freed; otherwise it stays open with the payment
// attached.
//
// A positive discountPercent replaces the bill's stored discount; zero
// keeps whatever was set earlier.
func (s *Service) RecordPayment(ctx context.Context, tableID string, amount decimal.Decimal, mode domain.PaymentMode, details domain.PaymentDetails, discountPercent decimal.Decimal) (PaymentResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return PaymentResult{}, ErrInvalidAmount
	}
	if details != nil && details.Mode() != mode {
		return PaymentResult{}, ErrDetailMismatch
	}

	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return PaymentResult{}, err
	}
	if len(bill.Lines) == 0 {
		return PaymentResult{}, ErrEmptyCart
	}

	if discountPercent.IsPositive() {
		bill.DiscountPercent = discountPercent
	}
	totals, err := tax.Compute(bill.Lines, bill.DiscountPercent)
	if err != nil {
		return PaymentResult{}, err
	}

	if err := s.ensureBillNumber(ctx, bill); err != nil {
		return PaymentResult{}, err
	}

	now := s.now()
	tx := domain.PaymentTransaction{
		ID:        xid.New("pay"),
		Amount:    amount,
		Mode:      mode,
		Timestamp: now,
		Details:   details,
	}
	bill.Payments = append(bill.Payments, tx)

	entry := domain.PaymentLog{
		ID:         xid.New("paylog"),
		BillNumber: bill.BillNumber,
		TableID:    bill.TableID,
		Amount:     amount,
		Mode:       mode,
		Timestamp:  now,
		Session:    session.Of(now),
	}
	if details != nil {
		entry.Detail = details.Label()
	}
	if err := s.repo.AppendPaymentLog(ctx, entry); err != nil {
		return PaymentResult{}, err
	}

	balance := totals.Total.Sub(bill.TotalPaid())
	result := PaymentResult{
		Transaction: tx,
		Log:         entry,
		Balance:     balance,
	}

	if balance.GreaterThan(settleTolerance) {
		if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
			return PaymentResult{}, err
		}
		return result, nil
	}

	closed := domain.ClosedBill{
		ID:             xid.New("bill"),
		BillNumber:     bill.BillNumber,
		Timestamp:      now,
		Session:        session.Of(now),
		Items:          bill.Lines,
		SubTotal:       totals.SubTotal,
		DiscountAmount: totals.DiscountAmount,
		CGST:           totals.CGST,
		SGST:           totals.SGST,
		Total:          totals.Total,
		Payments:       bill.Payments,
		OrderType:      bill.OrderType,
		TableID:        bill.TableID,
		Pax:            bill.Pax,
	}
	if err := s.repo.AppendClosedBill(ctx, closed); err != nil {
		return PaymentResult{}, err
	}
	if err := s.repo.DeleteOpenBill(ctx, bill.TableID); err != nil {
		return PaymentResult{}, err
	}

	result.Balance = decimal.Zero
	result.FullySettled = true
	result.ClosedBill = &closed
	return result, nil
}

// balanceDue is total minus paid, floored at zero so overpayment never
// shows a negative amount owed.
func balanceDue(total decimal.Decimal, paid decimal.Decimal) decimal.Decimal {
	due := total.Sub(paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
