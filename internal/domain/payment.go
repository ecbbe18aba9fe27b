package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentDetails is the closed set of mode-specific payment data. Exactly
// one variant exists per payment mode; the sealed marker keeps callers from
// introducing an open-ended details bag.
type PaymentDetails interface {
	Mode() PaymentMode
	// Label is the short human-readable form used on receipts and in the
	// payment-log detail column.
	Label() string
	sealed()
}

type CashDetails struct {
	Tendered decimal.Decimal `json:"tendered"`
	Change   decimal.Decimal `json:"change"`
}

func (CashDetails) Mode() PaymentMode { return PayCash }
func (CashDetails) sealed()           {}

func (d CashDetails) Label() string {
	if d.Tendered.IsZero() {
		return ""
	}
	return fmt.Sprintf("Tendered: %s", d.Tendered.StringFixed(2))
}

type UPIDetails struct {
	Reference string `json:"reference"`
}

func (UPIDetails) Mode() PaymentMode { return PayUPI }
func (UPIDetails) sealed()           {}

func (d UPIDetails) Label() string {
	if d.Reference == "" {
		return ""
	}
	return "Ref: " + d.Reference
}

type CardDetails struct {
	Last4 string `json:"last4"`
}

func (CardDetails) Mode() PaymentMode { return PayCard }
func (CardDetails) sealed()           {}

func (d CardDetails) Label() string {
	if d.Last4 == "" {
		return ""
	}
	return "xx" + d.Last4
}

// PaymentTransaction is one payment taken against an open bill. Append-only:
// once recorded it is never edited or removed.
type PaymentTransaction struct {
	ID        string
	Amount    decimal.Decimal
	Mode      PaymentMode
	Timestamp time.Time
	Details   PaymentDetails
}

// paymentTransactionJSON is the storage envelope: the details variant is
// written under a mode-specific key so the closed type survives a JSON
// round trip through the durable store.
type paymentTransactionJSON struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      PaymentMode     `json:"mode"`
	Timestamp time.Time       `json:"timestamp"`
	Cash      *CashDetails    `json:"cash,omitempty"`
	UPI       *UPIDetails     `json:"upi,omitempty"`
	Card      *CardDetails    `json:"card,omitempty"`
}

func (t PaymentTransaction) MarshalJSON() ([]byte, error) {
	env := paymentTransactionJSON{
		ID:        t.ID,
		Amount:    t.Amount,
		Mode:      t.Mode,
		Timestamp: t.Timestamp,
	}
	switch d := t.Details.(type) {
	case CashDetails:
		env.Cash = &d
	case UPIDetails:
		env.UPI = &d
	case CardDetails:
		env.Card = &d
	case nil:
	default:
		return nil, fmt.Errorf("unknown payment details type %T", t.Details)
	}
	return json.Marshal(env)
}

func (t *PaymentTransaction) UnmarshalJSON(data []byte) error {
	var env paymentTransactionJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	t.ID = env.ID
	t.Amount = env.Amount
	t.Mode = env.Mode
	t.Timestamp = env.Timestamp
	t.Details = nil
	switch {
	case env.Cash != nil:
		t.Details = *env.Cash
	case env.UPI != nil:
		t.Details = *env.UPI
	case env.Card != nil:
		t.Details = *env.Card
	}
	return nil
}
