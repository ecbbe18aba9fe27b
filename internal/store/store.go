package store

import (
	"context"
	"errors"
	"time"

	"dinepos/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// SequenceSeed is the starting value of every bill-number counter. The
// first assignment in a session therefore yields 1001.
const SequenceSeed = 1000

// Repository is the persistence substrate for all POS records. Open bills
// are keyed by table identifier; closed bills, payment logs and settlements
// are append-only. Implementations must make NextSequence an atomic
// read-increment-write so bill numbers can never collide.
type Repository interface {
	Menu(ctx context.Context) ([]domain.MenuItem, error)
	MenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	SaveMenu(ctx context.Context, items []domain.MenuItem) error
	UpsertMenuItem(ctx context.Context, item domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, id string) error

	OpenBills(ctx context.Context) (map[string]domain.OpenBill, error)
	OpenBill(ctx context.Context, tableID string) (*domain.OpenBill, error)
	SaveOpenBill(ctx context.Context, bill domain.OpenBill) error
	DeleteOpenBill(ctx context.Context, tableID string) error

	AppendClosedBill(ctx context.Context, bill domain.ClosedBill) error
	ClosedBills(ctx context.Context) ([]domain.ClosedBill, error)
	ClosedBill(ctx context.Context, id string) (*domain.ClosedBill, error)
	ClosedBillsAfter(ctx context.Context, t time.Time) ([]domain.ClosedBill, error)

	AppendPaymentLog(ctx context.Context, entry domain.PaymentLog) error
	PaymentLogs(ctx context.Context) ([]domain.PaymentLog, error)
	PaymentLogsAfter(ctx context.Context, t time.Time) ([]domain.PaymentLog, error)

	AppendSettlement(ctx context.Context, s domain.Settlement) error
	Settlements(ctx context.Context) ([]domain.Settlement, error)
	LastSettlementEnd(ctx context.Context) (time.Time, error)

	NextSequence(ctx context.Context, session domain.Session) (int64, error)
}
