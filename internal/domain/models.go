package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryMeals        Category = "Fixed Meals"
	CategorySoups        Category = "Soups / Rasam"
	CategoryStarters     Category = "Starters"
	CategorySalads       Category = "Salads & Raitha"
	CategoryNorthIndian  Category = "North Indian"
	CategoryRice         Category = "Rice & Pulao"
	CategoryBreads       Category = "Indian Breads"
	CategorySouthIndian  Category = "South Indian"
	CategoryDosa         Category = "Dosa & Oothapam"
	CategoryHotBeverage  Category = "Hot Beverages"
	CategoryColdBeverage Category = "Cold Beverages"
	CategoryDesserts     Category = "Desserts"
)

// MenuItem is a catalog entry. Catalog CRUD lives outside the core; the
// core only reads items when building cart lines.
type MenuItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  Category        `json:"category"`
	ShortCode string          `json:"short_code,omitempty"`
}

type PaymentMode string

const (
	PayCash PaymentMode = "Cash"
	PayUPI  PaymentMode = "UPI"
	PayCard PaymentMode = "Card"
)

type OrderType string

const (
	OrderDineIn   OrderType = "Dine-In"
	OrderTakeaway OrderType = "Takeaway"
)

type Session string

const (
	SessionLunch  Session = "Lunch"
	SessionDinner Session = "Dinner"
)

type BillStatus string

const (
	StatusNew         BillStatus = "NEW"
	StatusKOTSent     BillStatus = "KOT_SENT"
	StatusBillPrinted BillStatus = "BILL_PRINTED"
)

// CartLine is one ordered item on an open bill. Name and price are
// snapshotted from the catalog when the line is created, so later catalog
// edits never rewrite an order already taken.
type CartLine struct {
	ID            string          `json:"id"`
	MenuItemID    string          `json:"menu_item_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	ShortCode     string          `json:"short_code,omitempty"`
	Quantity      int             `json:"quantity"`
	Note          string          `json:"note,omitempty"`
	SentToKitchen bool            `json:"sent_to_kitchen"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OpenBill is the live state of one occupied table. Exactly one open bill
// may exist per table identifier. BillNumber stays empty until the first
// bill-print or payment assigns it, and never changes afterwards.
type OpenBill struct {
	TableID         string               `json:"table_id"`
	Lines           []CartLine           `json:"lines"`
	Status          BillStatus           `json:"status"`
	OpenedAt        time.Time            `json:"opened_at"`
	OrderType       OrderType            `json:"order_type"`
	BillNumber      string               `json:"bill_number,omitempty"`
	Payments        []PaymentTransaction `json:"payments"`
	DiscountPercent decimal.Decimal      `json:"discount_percent"`
	Pax             int                  `json:"pax,omitempty"`
}

// TotalPaid sums every payment recorded on the bill so far.
func (b OpenBill) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range b.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// PaymentLog is the durable ledger entry written at the moment a payment is
// taken, before it is known whether the bill is fully settled. Settlement
// revenue is computed from these entries, never from bill records, so a
// partial payment on a later-voided table is still accounted for.
type PaymentLog struct {
	ID         string          `json:"id"`
	BillNumber string          `json:"bill_number"`
	TableID    string          `json:"table_id"`
	Amount     decimal.Decimal `json:"amount"`
	Mode       PaymentMode     `json:"mode"`
	Timestamp  time.Time       `json:"timestamp"`
	Session    Session         `json:"session"`
	Detail     string          `json:"detail,omitempty"`
}

// ClosedBill is the immutable archive snapshot taken when an open bill
// becomes fully paid.
type ClosedBill struct {
	ID             string               `json:"id"`
	BillNumber     string               `json:"bill_number"`
	Timestamp      time.Time            `json:"timestamp"`
	Session        Session              `json:"session"`
	Items          []CartLine           `json:"items"`
	SubTotal       decimal.Decimal      `json:"sub_total"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	CGST           decimal.Decimal      `json:"cgst"`
	SGST           decimal.Decimal      `json:"sgst"`
	Total          decimal.Decimal      `json:"total"`
	Payments       []PaymentTransaction `json:"payments"`
	OrderType      OrderType            `json:"order_type"`
	TableID        string               `json:"table_id"`
	Pax            int                  `json:"pax,omitempty"`
}

// ModeBreakdown is one payment mode's slice of a settlement window.
type ModeBreakdown struct {
	Mode    PaymentMode     `json:"mode"`
	Amount  decimal.Decimal `json:"amount"`
	Count   int             `json:"count"`
	Details []string        `json:"details,omitempty"`
}

type CashDrawer struct {
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
	Difference decimal.Decimal `json:"difference"`
}

// Settlement is a Z-report: the reconciliation of all payments logged since
// the previous settlement boundary. Once confirmed it is persisted
// append-only and its EndTime becomes the next report's boundary.
type Settlement struct {
	ID            string          `json:"id"`
	Session       Session         `json:"session"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	BillCount     int             `json:"bill_count"`
	BillNumbers   []string        `json:"bill_numbers,omitempty"`
	TotalQty      int             `json:"total_qty"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	CashSales     decimal.Decimal `json:"cash_sales"`
	UPISales      decimal.Decimal `json:"upi_sales"`
	CardSales     decimal.Decimal `json:"card_sales"`
	CreditSales   decimal.Decimal `json:"credit_sales"`
	Breakdown     []ModeBreakdown `json:"breakdown"`
	Drawer        CashDrawer      `json:"drawer"`
}

// ReceiptHeader is the restaurant identity block stamped on print payloads.
type ReceiptHeader struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	GSTIN   string `json:"gstin"`
}

// KOTTicket is the kitchen-facing payload produced by a send-to-kitchen
// action: only the lines sent by that action, plus whether this is the
// table's first ticket or a supplementary one.
type KOTTicket struct {
	TableID       string     `json:"table_id"`
	OrderType     OrderType  `json:"order_type"`
	Lines         []CartLine `json:"lines"`
	Supplementary bool       `json:"supplementary"`
	Pax           int        `json:"pax,omitempty"`
	PrintedAt     time.Time  `json:"printed_at"`
}

// BillSnapshot is the printer/PDF payload for a provisional or archived
// bill. The core produces it; rendering and device sequencing belong to
// the caller.
type BillSnapshot struct {
	Header         ReceiptHeader        `json:"header"`
	BillNumber     string               `json:"bill_number"`
	TableID        string               `json:"table_id"`
	OrderType      OrderType            `json:"order_type"`
	Session        Session              `json:"session"`
	Timestamp      time.Time            `json:"timestamp"`
	Items          []CartLine           `json:"items"`
	SubTotal       decimal.Decimal      `json:"sub_total"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	CGST           decimal.Decimal      `json:"cgst"`
	SGST           decimal.Decimal      `json:"sgst"`
	Total          decimal.Decimal      `json:"total"`
	Payments       []PaymentTransaction `json:"payments"`
	BalanceDue     decimal.Decimal      `json:"balance_due"`
	Pax            int                  `json:"pax,omitempty"`
}
