package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"dinepos/internal/domain"
	"dinepos/internal/store"
)

// Store is the durable Repository. Catalog and payment-log rows are
// columnar; open and closed bills travel as JSONB payloads because they
// are always read and written whole.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the schema when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS menu_items (
			id         text PRIMARY KEY,
			name       text NOT NULL,
			price      numeric(12,2) NOT NULL,
			category   text NOT NULL,
			short_code text NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS open_bills (
			table_id   text PRIMARY KEY,
			payload    jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS closed_bills (
			id      text PRIMARY KEY,
			ts      timestamptz NOT NULL,
			payload jsonb NOT NULL
		);
		CREATE TABLE IF NOT EXISTS payment_logs (
			id          text PRIMARY KEY,
			bill_number text NOT NULL,
			table_id    text NOT NULL,
			amount      numeric(12,2) NOT NULL,
			mode        text NOT NULL,
			ts          timestamptz NOT NULL,
			session     text NOT NULL,
			detail      text NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS settlements (
			id       text PRIMARY KEY,
			end_time timestamptz NOT NULL,
			payload  jsonb NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sequence_counters (
			session text PRIMARY KEY,
			value   bigint NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_payment_logs_ts ON payment_logs (ts);
		CREATE INDEX IF NOT EXISTS idx_closed_bills_ts ON closed_bills (ts);
	`)
	return err
}

func (s *Store) Menu(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, category, short_code
		FROM menu_items
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 64)
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.ShortCode); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Store) MenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, category, short_code
		FROM menu_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.ShortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveMenu(ctx context.Context, items []domain.MenuItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_items`); err != nil {
		return err
	}
	for _, item := range items {
		if item.ID == "" {
			return store.ErrConflict
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO menu_items (id, name, price, category, short_code)
			VALUES ($1,$2,$3,$4,$5)
		`, item.ID, item.Name, item.Price, item.Category, item.ShortCode)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) UpsertMenuItem(ctx context.Context, item domain.MenuItem) error {
	if item.ID == "" {
		return store.ErrConflict
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, price, category, short_code)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price,
		    category = EXCLUDED.category, short_code = EXCLUDED.short_code
	`, item.ID, item.Name, item.Price, item.Category, item.ShortCode)
	return err
}

func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) OpenBills(ctx context.Context) (map[string]domain.OpenBill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT table_id, payload FROM open_bills`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make(map[string]domain.OpenBill)
	for rows.Next() {
		var tableID string
		var payload []byte
		if err := rows.Scan(&tableID, &payload); err != nil {
			return nil, err
		}
		var bill domain.OpenBill
		if err := json.Unmarshal(payload, &bill); err != nil {
			return nil, err
		}
		bills[tableID] = bill
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bills, nil
}

func (s *Store) OpenBill(ctx context.Context, tableID string) (*domain.OpenBill, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM open_bills WHERE table_id = $1
	`, tableID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var bill domain.OpenBill
	if err := json.Unmarshal(payload, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *Store) SaveOpenBill(ctx context.Context, bill domain.OpenBill) error {
	if bill.TableID == "" {
		return store.ErrConflict
	}
	payload, err := json.Marshal(bill)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO open_bills (table_id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (table_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()
	`, bill.TableID, payload)
	return err
}

func (s *Store) DeleteOpenBill(ctx context.Context, tableID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM open_bills WHERE table_id = $1`, tableID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AppendClosedBill(ctx context.Context, bill domain.ClosedBill) error {
	payload, err := json.Marshal(bill)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO closed_bills (id, ts, payload) VALUES ($1, $2, $3)
	`, bill.ID, bill.Timestamp, payload)
	if err != nil && isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) ClosedBills(ctx context.Context) ([]domain.ClosedBill, error) {
	return s.closedBillsWhere(ctx, `ORDER BY ts DESC`)
}

func (s *Store) ClosedBill(ctx context.Context, id string) (*domain.ClosedBill, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM closed_bills WHERE id = $1
	`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var bill domain.ClosedBill
	if err := json.Unmarshal(payload, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *Store) ClosedBillsAfter(ctx context.Context, t time.Time) ([]domain.ClosedBill, error) {
	return s.closedBillsWhere(ctx, `WHERE ts > $1 ORDER BY ts DESC`, t)
}

func (s *Store) closedBillsWhere(ctx context.Context, clause string, args ...any) ([]domain.ClosedBill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM closed_bills `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make([]domain.ClosedBill, 0, 64)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var bill domain.ClosedBill
		if err := json.Unmarshal(payload, &bill); err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bills, nil
}

func (s *Store) AppendPaymentLog(ctx context.Context, entry domain.PaymentLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_logs (id, bill_number, table_id, amount, mode, ts, session, detail)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.BillNumber, entry.TableID, entry.Amount, entry.Mode, entry.Timestamp, entry.Session, entry.Detail)
	if err != nil && isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) PaymentLogs(ctx context.Context) ([]domain.PaymentLog, error) {
	return s.paymentLogsWhere(ctx, `ORDER BY ts`)
}

func (s *Store) PaymentLogsAfter(ctx context.Context, t time.Time) ([]domain.PaymentLog, error) {
	return s.paymentLogsWhere(ctx, `WHERE ts > $1 ORDER BY ts`, t)
}

func (s *Store) paymentLogsWhere(ctx context.Context, clause string, args ...any) ([]domain.PaymentLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bill_number, table_id, amount, mode, ts, session, detail
		FROM payment_logs `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.PaymentLog, 0, 64)
	for rows.Next() {
		var entry domain.PaymentLog
		if err := rows.Scan(&entry.ID, &entry.BillNumber, &entry.TableID, &entry.Amount, &entry.Mode, &entry.Timestamp, &entry.Session, &entry.Detail); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}

func (s *Store) AppendSettlement(ctx context.Context, settlement domain.Settlement) error {
	payload, err := json.Marshal(settlement)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settlements (id, end_time, payload) VALUES ($1, $2, $3)
	`, settlement.ID, settlement.EndTime, payload)
	if err != nil && isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) Settlements(ctx context.Context) ([]domain.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM settlements ORDER BY end_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settlements := make([]domain.Settlement, 0, 16)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var settlement domain.Settlement
		if err := json.Unmarshal(payload, &settlement); err != nil {
			return nil, err
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return settlements, nil
}

func (s *Store) LastSettlementEnd(ctx context.Context) (time.Time, error) {
	var end sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT max(end_time) FROM settlements`).Scan(&end)
	if err != nil {
		return time.Time{}, err
	}
	if !end.Valid {
		return time.Time{}, nil
	}
	return end.Time, nil
}

// NextSequence is a single atomic upsert so two terminals can never mint
// the same bill number.
func (s *Store) NextSequence(ctx context.Context, session domain.Session) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sequence_counters (session, value)
		VALUES ($1, $2)
		ON CONFLICT (session) DO UPDATE
		SET value = sequence_counters.value + 1
		RETURNING value
	`, session, int64(store.SequenceSeed)+1).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
