package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dinepos/internal/cache"
	"dinepos/internal/domain"
	"dinepos/internal/session"
	"dinepos/internal/store"
	"dinepos/internal/xid"
)

var (
	ErrTableRequired    = errors.New("table id required")
	ErrNoOpenBill       = errors.New("no open bill for table")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrLineNotFound     = errors.New("cart line not found")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidPax       = errors.New("pax must be positive")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrDetailMismatch   = errors.New("payment details do not match payment mode")
	ErrInvalidMenuItem  = errors.New("menu item id, name and price required")
	ErrInvalidOrderType = errors.New("unknown order type")
	ErrInvalidDraft     = errors.New("settlement draft missing end time")
)

const (
	menuCacheKey = "menu:catalog"
	defaultPax   = 2
)

type Service struct {
	repo     store.Repository
	menu     cache.MenuCache
	header   domain.ReceiptHeader
	cacheTTL time.Duration

	// now is swappable so session boundaries can be pinned in tests.
	now func() time.Time
}

func New(repo store.Repository, menu cache.MenuCache, header domain.ReceiptHeader, cacheTTL time.Duration) *Service {
	if menu == nil {
		menu = cache.NoopMenuCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Service{
		repo:     repo,
		menu:     menu,
		header:   header,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Menu returns the catalog, serving from the cache when possible. Cache
// failures degrade to a repository read.
func (s *Service) Menu(ctx context.Context) ([]domain.MenuItem, error) {
	items, hit, err := s.menu.Get(ctx, menuCacheKey)
	if err != nil {
		log.Printf("[service] WARN: menu cache read failed: %v", err)
	}
	if hit {
		return items, nil
	}

	items, err = s.repo.Menu(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.menu.Set(ctx, menuCacheKey, items, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: menu cache write failed: %v", err)
	}
	return items, nil
}

func (s *Service) UpsertMenuItem(ctx context.Context, item domain.MenuItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.ID == "" || item.Name == "" || item.Price.IsNegative() {
		return ErrInvalidMenuItem
	}
	if err := s.repo.UpsertMenuItem(ctx, item); err != nil {
		return err
	}
	s.invalidateMenuCache(ctx)
	return nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidMenuItem
	}
	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.invalidateMenuCache(ctx)
	return nil
}

func (s *Service) invalidateMenuCache(ctx context.Context) {
	if err := s.menu.Invalidate(ctx, menuCacheKey); err != nil {
		log.Printf("[service] WARN: menu cache invalidate failed: %v", err)
	}
}

// OpenTable returns the table's open bill, creating a fresh one when the
// table is vacant. Reopening an occupied table is not an error; an
// explicit positive pax updates the party size, zero leaves it alone.
func (s *Service) OpenTable(ctx context.Context, tableID string, pax int) (domain.OpenBill, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return domain.OpenBill{}, ErrTableRequired
	}
	if pax < 0 {
		return domain.OpenBill{}, ErrInvalidPax
	}

	existing, err := s.repo.OpenBill(ctx, tableID)
	if err == nil {
		if pax > 0 && pax != existing.Pax {
			existing.Pax = pax
			if err := s.repo.SaveOpenBill(ctx, *existing); err != nil {
				return domain.OpenBill{}, err
			}
		}
		return *existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.OpenBill{}, err
	}
	if pax == 0 {
		pax = defaultPax
	}

	bill := domain.OpenBill{
		TableID:   tableID,
		Lines:     []domain.CartLine{},
		Status:    domain.StatusNew,
		OpenedAt:  s.now(),
		OrderType: domain.OrderDineIn,
		Payments:  []domain.PaymentTransaction{},
		Pax:       pax,
	}
	if err := s.repo.SaveOpenBill(ctx, bill); err != nil {
		return domain.OpenBill{}, err
	}
	return bill, nil
}

func (s *Service) ListOpenBills(ctx context.Context) (map[string]domain.OpenBill, error) {
	return s.repo.OpenBills(ctx)
}

func (s *Service) GetOpenBill(ctx context.Context, tableID string) (domain.OpenBill, error) {
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return domain.OpenBill{}, err
	}
	return *bill, nil
}

func (s *Service) SetOrderType(ctx context.Context, tableID string, orderType domain.OrderType) (domain.OpenBill, error) {
	if orderType != domain.OrderDineIn && orderType != domain.OrderTakeaway {
		return domain.OpenBill{}, ErrInvalidOrderType
	}
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return domain.OpenBill{}, err
	}

	bill.OrderType = orderType
	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return domain.OpenBill{}, err
	}
	return *bill, nil
}

func (s *Service) SetPax(ctx context.Context, tableID string, pax int) (domain.OpenBill, error) {
	if pax < 1 {
		return domain.OpenBill{}, ErrInvalidPax
	}
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return domain.OpenBill{}, err
	}

	bill.Pax = pax
	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return domain.OpenBill{}, err
	}
	return *bill, nil
}

// AddItem puts qty units of a menu item on the table's open bill. The
// quantity merges into an existing line for the same item and note unless
// that line has already gone to the kitchen; lines on a printed ticket are
// never rewritten. The table must have been opened explicitly.
func (s *Service) AddItem(ctx context.Context, tableID string, menuItemID string, qty int, note string) (domain.OpenBill, error) {
	if qty < 1 {
		return domain.OpenBill{}, ErrInvalidQuantity
	}
	note = strings.TrimSpace(note)

	item, err := s.menuItem(ctx, menuItemID)
	if err != nil {
		return domain.OpenBill{}, err
	}

	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return domain.OpenBill{}, err
	}

	merged := false
	for i := range bill.Lines {
		line := &bill.Lines[i]
		if line.MenuItemID == item.ID && line.Note == note && !line.SentToKitchen {
			line.Quantity += qty
			merged = true
			break
		}
	}
	if !merged {
		bill.Lines = append(bill.Lines, domain.CartLine{
			ID:         xid.New("line"),
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			ShortCode:  item.ShortCode,
			Quantity:   qty,
			Note:       note,
		})
	}

	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return domain.OpenBill{}, err
	}
	return *bill, nil
}

// AdjustQuantity changes a line's quantity by delta. A line whose quantity
// drops to zero or below is removed from the cart.
func (s *Service) AdjustQuantity(ctx context.Context, tableID string, lineID string, delta int) (domain.OpenBill, error) {
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return domain.OpenBill{}, err
	}

	idx := lineIndex(bill.Lines, lineID)
	if idx < 0 {
		return domain.OpenBill{}, ErrLineNotFound
	}

	bill.Lines[idx].Quantity += delta
	if bill.Lines[idx].Quantity < 1 {
		bill.Lines = append(bill.Lines[:idx], bill.Lines[idx+1:]...)
	}

	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return domain.OpenBill{}, err
	}
	return *bill, nil
}

func (s *Service) UpdateLineNote(ctx context.Context, tableID string, lineID string, note string) (domain.OpenBill, error) {
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return domain.OpenBill{}, err
	}

	idx := lineIndex(bill.Lines, lineID)
	if idx < 0 {
		return domain.OpenBill{}, ErrLineNotFound
	}
	bill.Lines[idx].Note = strings.TrimSpace(note)

	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return domain.OpenBill{}, err
	}
	return *bill, nil
}

func (s *Service) RemoveLine(ctx context.Context, tableID string, lineID string) (domain.OpenBill, error) {
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return domain.OpenBill{}, err
	}

	idx := lineIndex(bill.Lines, lineID)
	if idx < 0 {
		return domain.OpenBill{}, ErrLineNotFound
	}
	bill.Lines = append(bill.Lines[:idx], bill.Lines[idx+1:]...)

	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return domain.OpenBill{}, err
	}
	return *bill, nil
}

// ClearCart empties the table's cart and resets its status to NEW. The
// bill stays open and keeps its number and payments, so a cleared table
// still settles correctly against anything already paid.
func (s *Service) ClearCart(ctx context.Context, tableID string) (domain.OpenBill, error) {
	bill, err := s.openBill(ctx, tableID)
	if err != nil {
		return domain.OpenBill{}, err
	}

	bill.Lines = []domain.CartLine{}
	bill.Status = domain.StatusNew

	if err := s.repo.SaveOpenBill(ctx, *bill); err != nil {
		return domain.OpenBill{}, err
	}
	return *bill, nil
}

// VoidTable discards the table's open bill entirely. Voiding a vacant
// table is a no-op, so repeated voids are safe.
func (s *Service) VoidTable(ctx context.Context, tableID string) error {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return ErrTableRequired
	}
	err := s.repo.DeleteOpenBill(ctx, tableID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) ClosedBills(ctx context.Context) ([]domain.ClosedBill, error) {
	return s.repo.ClosedBills(ctx)
}

func (s *Service) openBill(ctx context.Context, tableID string) (*domain.OpenBill, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return nil, ErrTableRequired
	}
	bill, err := s.repo.OpenBill(ctx, tableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoOpenBill
		}
		return nil, err
	}
	return bill, nil
}

func (s *Service) menuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMenuItemNotFound
	}

	// The cached catalog covers the add-item hot path; fall back to a
	// direct lookup when the item is not in the cached snapshot.
	if items, hit, err := s.menu.Get(ctx, menuCacheKey); err == nil && hit {
		for i := range items {
			if items[i].ID == id {
				return &items[i], nil
			}
		}
	} else if err != nil {
		log.Printf("[service] WARN: menu cache read failed: %v", err)
	}

	item, err := s.repo.MenuItem(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// ensureBillNumber assigns the bill its session-prefixed serial on first
// use. The number is minted once and kept for the life of the bill.
func (s *Service) ensureBillNumber(ctx context.Context, bill *domain.OpenBill) error {
	if bill.BillNumber != "" {
		return nil
	}

	sess := session.Of(s.now())
	seq, err := s.repo.NextSequence(ctx, sess)
	if err != nil {
		return err
	}
	bill.BillNumber = fmt.Sprintf("%s%d", session.Prefix(sess), seq)
	return nil
}

// raiseStatus moves the bill's status forward, never backward.
func raiseStatus(bill *domain.OpenBill, status domain.BillStatus) {
	if statusRank(status) > statusRank(bill.Status) {
		bill.Status = status
	}
}

func statusRank(s domain.BillStatus) int {
	switch s {
	case domain.StatusKOTSent:
		return 1
	case domain.StatusBillPrinted:
		return 2
	default:
		return 0
	}
}

func lineIndex(lines []domain.CartLine, lineID string) int {
	for i := range lines {
		if lines[i].ID == lineID {
			return i
		}
	}
	return -1
}
