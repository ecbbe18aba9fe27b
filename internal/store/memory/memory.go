package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dinepos/internal/domain"
	"dinepos/internal/store"
)

// Store keeps every record in process memory. It is the default substrate
// for a single-terminal installation and the fixture for service tests.
type Store struct {
	mu          sync.RWMutex
	menu        []domain.MenuItem
	openBills   map[string]domain.OpenBill
	closedBills []domain.ClosedBill
	paymentLogs []domain.PaymentLog
	settlements []domain.Settlement
	sequences   map[domain.Session]int64
}

func New() *Store {
	return &Store{
		menu:        make([]domain.MenuItem, 0, 64),
		openBills:   make(map[string]domain.OpenBill),
		closedBills: make([]domain.ClosedBill, 0, 128),
		paymentLogs: make([]domain.PaymentLog, 0, 256),
		settlements: make([]domain.Settlement, 0, 16),
		sequences: map[domain.Session]int64{
			domain.SessionLunch:  store.SequenceSeed,
			domain.SessionDinner: store.SequenceSeed,
		},
	}
}

// NewSeeded returns a store pre-loaded with the house menu.
func NewSeeded() *Store {
	s := New()
	s.menu = seedMenu()
	return s
}

func price(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func seedMenu() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: "1", Name: "Mahalakshmi Preethi Bhojan", Price: price(575), Category: domain.CategoryMeals, ShortCode: "MAHA-BHOJ"},
		{ID: "2", Name: "Laghu Bhojan", Price: price(425), Category: domain.CategoryMeals, ShortCode: "LAGHU-BHOJ"},
		{ID: "3", Name: "Soup / Rasam of the day", Price: price(150), Category: domain.CategorySoups, ShortCode: "SOUP-DAY"},
		{ID: "4", Name: "Masala Pappad", Price: price(80), Category: domain.CategoryStarters, ShortCode: "MAS-PAP"},
		{ID: "5", Name: "Bajji (Assorted)", Price: price(160), Category: domain.CategoryStarters, ShortCode: "BAJJI-AST"},
		{ID: "6", Name: "Vada (Sambar/Rasam/Curd)", Price: price(160), Category: domain.CategoryStarters, ShortCode: "VADA-VAR"},
		{ID: "11", Name: "Gobi Manchurian", Price: price(300), Category: domain.CategoryStarters, ShortCode: "GOBI-MAN"},
		{ID: "15", Name: "Paneer Tikka", Price: price(375), Category: domain.CategoryStarters, ShortCode: "PAN-TIKKA"},
		{ID: "16", Name: "Salad Platter", Price: price(150), Category: domain.CategorySalads, ShortCode: "SAL-PLAT"},
		{ID: "24", Name: "Raitha / Pachadi", Price: price(120), Category: domain.CategorySalads, ShortCode: "RAITHA"},
		{ID: "25", Name: "Kadai Sabji", Price: price(300), Category: domain.CategoryNorthIndian, ShortCode: "KADAI-SAB"},
		{ID: "31", Name: "Malai Kofta", Price: price(325), Category: domain.CategoryNorthIndian, ShortCode: "MAL-KOF"},
		{ID: "38", Name: "Dal Makhini", Price: price(300), Category: domain.CategoryNorthIndian, ShortCode: "DAL-MAKH"},
		{ID: "39", Name: "Kadai Paneer", Price: price(320), Category: domain.CategoryNorthIndian, ShortCode: "KADAI-PAN"},
		{ID: "45", Name: "Curd Rice", Price: price(180), Category: domain.CategoryRice, ShortCode: "CURD-RICE"},
		{ID: "46", Name: "Vegetable Pulao", Price: price(290), Category: domain.CategoryRice, ShortCode: "VEG-PULAO"},
		{ID: "50", Name: "Chapathi (2 Nos)", Price: price(120), Category: domain.CategoryBreads, ShortCode: "CHAP-2"},
		{ID: "55", Name: "Idly (2 Nos)", Price: price(110), Category: domain.CategorySouthIndian, ShortCode: "IDLY-2"},
		{ID: "60", Name: "Plain Dosa", Price: price(140), Category: domain.CategoryDosa, ShortCode: "PL-DOSA"},
		{ID: "61", Name: "Masala Dosa", Price: price(170), Category: domain.CategoryDosa, ShortCode: "MAS-DOSA"},
		{ID: "70", Name: "Filter Coffee", Price: price(60), Category: domain.CategoryHotBeverage, ShortCode: "FIL-COF"},
		{ID: "75", Name: "Fresh Lime Juice", Price: price(90), Category: domain.CategoryColdBeverage, ShortCode: "LIME-J"},
		{ID: "80", Name: "Gulab Jamun (2 Nos)", Price: price(120), Category: domain.CategoryDesserts, ShortCode: "GUL-JAM"},
	}
}

// --- Menu ---

func (s *Store) Menu(_ context.Context) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.menu), nil
}

func (s *Store) MenuItem(_ context.Context, id string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.menu {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SaveMenu(_ context.Context, items []domain.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu = slices.Clone(items)
	return nil
}

func (s *Store) UpsertMenuItem(_ context.Context, item domain.MenuItem) error {
	if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.Name) == "" {
		return store.ErrConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.menu {
		if existing.ID == item.ID {
			s.menu[i] = item
			return nil
		}
	}
	s.menu = append(s.menu, item)
	return nil
}

func (s *Store) DeleteMenuItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.menu {
		if existing.ID == id {
			s.menu = slices.Delete(s.menu, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

// --- Open bills ---

func copyBill(b domain.OpenBill) domain.OpenBill {
	b.Lines = slices.Clone(b.Lines)
	b.Payments = slices.Clone(b.Payments)
	return b
}

func (s *Store) OpenBills(_ context.Context) (map[string]domain.OpenBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bills := make(map[string]domain.OpenBill, len(s.openBills))
	for table, bill := range s.openBills {
		bills[table] = copyBill(bill)
	}
	return bills, nil
}

func (s *Store) OpenBill(_ context.Context, tableID string) (*domain.OpenBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bill, exists := s.openBills[tableID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := copyBill(bill)
	return &found, nil
}

func (s *Store) SaveOpenBill(_ context.Context, bill domain.OpenBill) error {
	if bill.TableID == "" {
		return store.ErrConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openBills[bill.TableID] = copyBill(bill)
	return nil
}

func (s *Store) DeleteOpenBill(_ context.Context, tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.openBills[tableID]; !exists {
		return store.ErrNotFound
	}
	delete(s.openBills, tableID)
	return nil
}

// --- Closed bills ---

func (s *Store) AppendClosedBill(_ context.Context, bill domain.ClosedBill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bill.Items = slices.Clone(bill.Items)
	bill.Payments = slices.Clone(bill.Payments)
	s.closedBills = append(s.closedBills, bill)
	return nil
}

// ClosedBills returns the archive newest first.
func (s *Store) ClosedBills(_ context.Context) ([]domain.ClosedBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bills := slices.Clone(s.closedBills)
	slices.SortStableFunc(bills, func(a, b domain.ClosedBill) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return bills, nil
}

func (s *Store) ClosedBill(_ context.Context, id string) (*domain.ClosedBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bill := range s.closedBills {
		if bill.ID == id {
			found := bill
			found.Items = slices.Clone(bill.Items)
			found.Payments = slices.Clone(bill.Payments)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ClosedBillsAfter(_ context.Context, t time.Time) ([]domain.ClosedBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bills := make([]domain.ClosedBill, 0, len(s.closedBills))
	for _, bill := range s.closedBills {
		if bill.Timestamp.After(t) {
			bills = append(bills, bill)
		}
	}
	return bills, nil
}

// --- Payment logs ---

func (s *Store) AppendPaymentLog(_ context.Context, entry domain.PaymentLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentLogs = append(s.paymentLogs, entry)
	return nil
}

func (s *Store) PaymentLogs(_ context.Context) ([]domain.PaymentLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.paymentLogs), nil
}

func (s *Store) PaymentLogsAfter(_ context.Context, t time.Time) ([]domain.PaymentLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]domain.PaymentLog, 0, len(s.paymentLogs))
	for _, entry := range s.paymentLogs {
		if entry.Timestamp.After(t) {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

// --- Settlements ---

func (s *Store) AppendSettlement(_ context.Context, settlement domain.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settlement.BillNumbers = slices.Clone(settlement.BillNumbers)
	settlement.Breakdown = slices.Clone(settlement.Breakdown)
	s.settlements = append(s.settlements, settlement)
	return nil
}

func (s *Store) Settlements(_ context.Context) ([]domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.settlements), nil
}

// LastSettlementEnd returns the newest settlement boundary, or the zero
// time when no settlement has been taken yet.
func (s *Store) LastSettlementEnd(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	for _, settlement := range s.settlements {
		if settlement.EndTime.After(last) {
			last = settlement.EndTime
		}
	}
	return last, nil
}

// --- Sequences ---

func (s *Store) NextSequence(_ context.Context, session domain.Session) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.sequences[session]
	if !exists {
		current = store.SequenceSeed
	}
	next := current + 1
	s.sequences[session] = next
	return next, nil
}
