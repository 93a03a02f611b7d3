/*
Package sqlite provides a SQLite-backed implementation of hierarchy.TxStore.

PURPOSE:
  Persists the promoter hierarchy, booking workflow, rollups, and payment
  ledger using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

ATOMIC DELTAS:
  All aggregate columns are mutated as value = value + ?, or through
  ON CONFLICT ... DO UPDATE upserts. There is no read-modify-write
  anywhere in this package, so concurrent approvals cannot lose updates.

APPEND-ONLY TABLES:
  booking_history and commission_payments carry no UPDATE or DELETE
  statements. Corrections happen at the domain layer, never by editing
  records.

MONEY COLUMNS:
  Stored as REAL. Amounts cross the boundary through decimal.Decimal;
  REAL keeps the value = value + ? delta form natural in SQL. Rates stay
  in [0, 100] and spends are euro amounts with two decimals, well inside
  float64 exactness for this workload.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/clubhaus.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(), including the bootstrap admin row.
  For production, use a proper migration tool (golang-migrate, goose)
  with versioned migrations.

SEE ALSO:
  - hierarchy/store.go: Interface definitions
  - hierarchy/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/clubhaus/commission-engine/hierarchy"
)

// DefaultAdminHandle is the bootstrap admin created on first migration.
const DefaultAdminHandle = "admin"

// runner is satisfied by both *sql.DB and *sql.Tx, so every query method
// below works inside and outside a transaction.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements hierarchy.TxStore using SQLite.
type Store struct {
	session
	db *sql.DB
	mu sync.Mutex // serializes WithTx blocks
}

// session executes all Store queries against a runner.
type session struct {
	run runner
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection avoids SQLITE_BUSY under concurrent writes and
	// keeps ":memory:" databases from splitting across pool connections.
	db.SetMaxOpenConns(1)

	store := &Store{session: session{run: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema and the bootstrap admin.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		handle TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS promoters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		handle TEXT NOT NULL UNIQUE COLLATE NOCASE,
		parent_id INTEGER,
		percentage REAL NOT NULL DEFAULT 0,
		powers INTEGER NOT NULL DEFAULT 0,
		lifetime_spend REAL NOT NULL DEFAULT 0,
		lifetime_people INTEGER NOT NULL DEFAULT 0,
		accrued_commission REAL NOT NULL DEFAULT 0,
		lifetime_paid REAL NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		deleted_at TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_promoters_parent ON promoters(parent_id);

	CREATE TABLE IF NOT EXISTS booking_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		promoter_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		party_size INTEGER NOT NULL,
		table_name TEXT NOT NULL DEFAULT '',
		expected_spend REAL NOT NULL,
		gifts TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		edited INTEGER NOT NULL DEFAULT 0,
		edit_notes TEXT NOT NULL DEFAULT '',
		edited_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_booking_requests_status ON booking_requests(status);

	-- Append-only. Written once at approval, never updated.
	CREATE TABLE IF NOT EXISTS booking_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		promoter_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		party_size INTEGER NOT NULL,
		table_name TEXT NOT NULL DEFAULT '',
		expected_spend REAL NOT NULL,
		gifts TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		confirmation TEXT NOT NULL,
		edited INTEGER NOT NULL DEFAULT 0,
		edit_notes TEXT NOT NULL DEFAULT '',
		edited_by TEXT NOT NULL DEFAULT '',
		approved_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_booking_history_promoter ON booking_history(promoter_id);

	CREATE TABLE IF NOT EXISTS monthly_rollups (
		promoter_id INTEGER NOT NULL,
		month TEXT NOT NULL,
		total REAL NOT NULL DEFAULT 0,
		UNIQUE(promoter_id, month)
	);

	CREATE TABLE IF NOT EXISTS monthly_stats (
		promoter_id INTEGER NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		people INTEGER NOT NULL DEFAULT 0,
		bookings INTEGER NOT NULL DEFAULT 0,
		commission REAL NOT NULL DEFAULT 0,
		UNIQUE(promoter_id, year, month)
	);

	-- Append-only payout ledger.
	CREATE TABLE IF NOT EXISTS commission_payments (
		id TEXT PRIMARY KEY,
		recipient_id INTEGER NOT NULL,
		payer_id INTEGER,
		amount REAL NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		paid_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_recipient ON commission_payments(recipient_id);

	CREATE TABLE IF NOT EXISTS promoter_signup_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		handle TEXT NOT NULL,
		percentage REAL NOT NULL DEFAULT 0,
		requester_id INTEGER NOT NULL,
		proposed_parent_id INTEGER,
		note TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		admin_note TEXT NOT NULL DEFAULT '',
		requested_at TEXT NOT NULL,
		responded_at TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Admins and promoters share the NodeID keyspace and parent references
	// resolve promoters first, so admin ids start above any plausible
	// promoter id.
	if _, err := s.db.Exec(`
		INSERT INTO sqlite_sequence (name, seq)
		SELECT 'admins', 1000000
		WHERE NOT EXISTS (SELECT 1 FROM sqlite_sequence WHERE name = 'admins')`); err != nil {
		return err
	}

	// Bootstrap admin so the hierarchy always has a root payer.
	_, err := s.db.Exec(
		`INSERT INTO admins (handle) SELECT ? WHERE NOT EXISTS (SELECT 1 FROM admins)`,
		DefaultAdminHandle,
	)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. The Store passed to fn
// runs every statement on the transaction; fn returning an error rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(store hierarchy.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&session{run: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// ADMINS
// =============================================================================

func (s *session) GetAdmin(ctx context.Context, id hierarchy.NodeID) (*hierarchy.Admin, error) {
	var a hierarchy.Admin
	err := s.run.QueryRowContext(ctx, `SELECT id, handle FROM admins WHERE id = ?`, id).
		Scan(&a.ID, &a.Handle)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *session) ListAdmins(ctx context.Context) ([]hierarchy.Admin, error) {
	rows, err := s.run.QueryContext(ctx, `SELECT id, handle FROM admins ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hierarchy.Admin
	for rows.Next() {
		var a hierarchy.Admin
		if err := rows.Scan(&a.ID, &a.Handle); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *session) CreateAdmin(ctx context.Context, a *hierarchy.Admin) error {
	res, err := s.run.ExecContext(ctx, `INSERT INTO admins (handle) VALUES (?)`, a.Handle)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = hierarchy.NodeID(id)
	return nil
}

// =============================================================================
// PROMOTERS
// =============================================================================

const promoterColumns = `id, handle, parent_id, percentage, powers,
	lifetime_spend, lifetime_people, accrued_commission, lifetime_paid,
	active, deleted_at, created_at`

func (s *session) GetPromoter(ctx context.Context, id hierarchy.NodeID) (*hierarchy.Promoter, error) {
	return s.onePromoter(ctx, `SELECT `+promoterColumns+` FROM promoters WHERE id = ?`, id)
}

func (s *session) GetPromoterByHandle(ctx context.Context, handle string) (*hierarchy.Promoter, error) {
	return s.onePromoter(ctx, `SELECT `+promoterColumns+` FROM promoters WHERE handle = ? COLLATE NOCASE`, handle)
}

func (s *session) onePromoter(ctx context.Context, query string, args ...any) (*hierarchy.Promoter, error) {
	rows, err := s.run.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanPromoter(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *session) ListPromoters(ctx context.Context) ([]hierarchy.Promoter, error) {
	return s.queryPromoters(ctx, `SELECT `+promoterColumns+` FROM promoters ORDER BY id`)
}

func (s *session) ListChildren(ctx context.Context, parent hierarchy.NodeID) ([]hierarchy.Promoter, error) {
	return s.queryPromoters(ctx,
		`SELECT `+promoterColumns+` FROM promoters WHERE parent_id = ? AND id != ? ORDER BY id`,
		parent, parent)
}

func (s *session) queryPromoters(ctx context.Context, query string, args ...any) ([]hierarchy.Promoter, error) {
	rows, err := s.run.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hierarchy.Promoter
	for rows.Next() {
		p, err := scanPromoter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *session) CountSiblings(ctx context.Context, parent hierarchy.NodeID, excluding hierarchy.NodeID) (int, error) {
	var n int
	err := s.run.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM promoters WHERE parent_id = ? AND id != ? AND id != ?`,
		parent, excluding, parent).Scan(&n)
	return n, err
}

func (s *session) CreatePromoter(ctx context.Context, p *hierarchy.Promoter) error {
	res, err := s.run.ExecContext(ctx, `
		INSERT INTO promoters
			(handle, parent_id, percentage, powers, lifetime_spend, lifetime_people,
			 accrued_commission, lifetime_paid, active, deleted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Handle, nullableID(p.ParentID), p.Percentage.InexactFloat64(), p.Powers,
		p.LifetimeSpend.InexactFloat64(), p.LifetimePeople,
		p.AccruedCommission.InexactFloat64(), p.LifetimePaid.InexactFloat64(),
		p.Active, nullableTime(p.DeletedAt), p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = hierarchy.NodeID(id)
	return nil
}

func (s *session) UpdatePromoter(ctx context.Context, p *hierarchy.Promoter) error {
	res, err := s.run.ExecContext(ctx,
		`UPDATE promoters SET handle = ?, percentage = ?, parent_id = ?, powers = ? WHERE id = ?`,
		p.Handle, p.Percentage.InexactFloat64(), nullableID(p.ParentID), p.Powers, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res, hierarchy.ErrPromoterNotFound)
}

func (s *session) SoftDeletePromoter(ctx context.Context, id hierarchy.NodeID, at time.Time) error {
	res, err := s.run.ExecContext(ctx,
		`UPDATE promoters SET active = 0, deleted_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	return requireRow(res, hierarchy.ErrPromoterNotFound)
}

// =============================================================================
// ATOMIC AGGREGATE DELTAS
// =============================================================================

func (s *session) AddLifetimeTotals(ctx context.Context, id hierarchy.NodeID, spend decimal.Decimal, people int64) error {
	res, err := s.run.ExecContext(ctx,
		`UPDATE promoters SET lifetime_spend = lifetime_spend + ?, lifetime_people = lifetime_people + ? WHERE id = ?`,
		spend.InexactFloat64(), people, id)
	if err != nil {
		return err
	}
	return requireRow(res, hierarchy.ErrPromoterNotFound)
}

func (s *session) AddAccruedCommission(ctx context.Context, id hierarchy.NodeID, amount decimal.Decimal) error {
	res, err := s.run.ExecContext(ctx,
		`UPDATE promoters SET accrued_commission = accrued_commission + ? WHERE id = ?`,
		amount.InexactFloat64(), id)
	if err != nil {
		return err
	}
	return requireRow(res, hierarchy.ErrPromoterNotFound)
}

func (s *session) AddLifetimePaid(ctx context.Context, id hierarchy.NodeID, amount decimal.Decimal) error {
	res, err := s.run.ExecContext(ctx,
		`UPDATE promoters SET lifetime_paid = lifetime_paid + ? WHERE id = ?`,
		amount.InexactFloat64(), id)
	if err != nil {
		return err
	}
	return requireRow(res, hierarchy.ErrPromoterNotFound)
}

func (s *session) AddMonthlyRollup(ctx context.Context, id hierarchy.NodeID, month hierarchy.Month, spend decimal.Decimal) error {
	_, err := s.run.ExecContext(ctx, `
		INSERT INTO monthly_rollups (promoter_id, month, total) VALUES (?, ?, ?)
		ON CONFLICT(promoter_id, month) DO UPDATE SET total = total + excluded.total`,
		id, month.String(), spend.InexactFloat64())
	return err
}

func (s *session) AddMonthlyStats(ctx context.Context, id hierarchy.NodeID, year int, month time.Month, people, bookings int64, commission decimal.Decimal) error {
	_, err := s.run.ExecContext(ctx, `
		INSERT INTO monthly_stats (promoter_id, year, month, people, bookings, commission)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(promoter_id, year, month) DO UPDATE SET
			people = people + excluded.people,
			bookings = bookings + excluded.bookings,
			commission = commission + excluded.commission`,
		id, year, int(month), people, bookings, commission.InexactFloat64())
	return err
}

func (s *session) MonthlyRollups(ctx context.Context, id hierarchy.NodeID) ([]hierarchy.RollupRow, error) {
	rows, err := s.run.QueryContext(ctx,
		`SELECT promoter_id, month, total FROM monthly_rollups WHERE promoter_id = ? ORDER BY month`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hierarchy.RollupRow
	for rows.Next() {
		var r hierarchy.RollupRow
		var month string
		var total float64
		if err := rows.Scan(&r.PromoterID, &month, &total); err != nil {
			return nil, err
		}
		r.Month = hierarchy.Month(month)
		r.Total = decimal.NewFromFloat(total)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *session) MonthlyStats(ctx context.Context, id hierarchy.NodeID) ([]hierarchy.StatsRow, error) {
	rows, err := s.run.QueryContext(ctx, `
		SELECT promoter_id, year, month, people, bookings, commission
		FROM monthly_stats WHERE promoter_id = ?
		ORDER BY year DESC, month DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hierarchy.StatsRow
	for rows.Next() {
		var r hierarchy.StatsRow
		var month int
		var commission float64
		if err := rows.Scan(&r.PromoterID, &r.Year, &month, &r.People, &r.Bookings, &commission); err != nil {
			return nil, err
		}
		r.Month = time.Month(month)
		r.Commission = decimal.NewFromFloat(commission)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (s *session) CreateBooking(ctx context.Context, b *hierarchy.Booking) error {
	res, err := s.run.ExecContext(ctx, `
		INSERT INTO booking_requests
			(promoter_id, date, party_size, table_name, expected_spend, gifts, notes,
			 status, edited, edit_notes, edited_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.PromoterID, b.Date.UTC().Format(time.RFC3339), b.PartySize, b.TableName,
		b.ExpectedSpend.InexactFloat64(), b.Gifts, b.Notes, string(b.Status),
		b.Edited, b.EditNotes, b.EditedBy, b.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

const bookingColumns = `id, promoter_id, date, party_size, table_name, expected_spend,
	gifts, notes, status, edited, edit_notes, edited_by, created_at`

func (s *session) GetBooking(ctx context.Context, id int64) (*hierarchy.Booking, error) {
	rows, err := s.run.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM booking_requests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	b, err := scanBooking(rows)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *session) ListPendingBookings(ctx context.Context) ([]hierarchy.Booking, error) {
	rows, err := s.run.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM booking_requests WHERE status = ? ORDER BY id`,
		string(hierarchy.BookingPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hierarchy.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *session) UpdateBooking(ctx context.Context, b *hierarchy.Booking) error {
	res, err := s.run.ExecContext(ctx, `
		UPDATE booking_requests SET
			date = ?, party_size = ?, table_name = ?, expected_spend = ?, gifts = ?,
			notes = ?, status = ?, edited = ?, edit_notes = ?, edited_by = ?
		WHERE id = ?`,
		b.Date.UTC().Format(time.RFC3339), b.PartySize, b.TableName,
		b.ExpectedSpend.InexactFloat64(), b.Gifts, b.Notes, string(b.Status),
		b.Edited, b.EditNotes, b.EditedBy, b.ID)
	if err != nil {
		return err
	}
	return requireRow(res, hierarchy.ErrBookingNotFound)
}

func (s *session) DeleteBooking(ctx context.Context, id int64) error {
	res, err := s.run.ExecContext(ctx, `DELETE FROM booking_requests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, hierarchy.ErrBookingNotFound)
}

func (s *session) AppendHistory(ctx context.Context, h *hierarchy.HistoricalBooking) error {
	res, err := s.run.ExecContext(ctx, `
		INSERT INTO booking_history
			(promoter_id, date, party_size, table_name, expected_spend, gifts, notes,
			 confirmation, edited, edit_notes, edited_by, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.PromoterID, h.Date.UTC().Format(time.RFC3339), h.PartySize, h.TableName,
		h.ExpectedSpend.InexactFloat64(), h.Gifts, h.Notes, h.Confirmation,
		h.Edited, h.EditNotes, h.EditedBy, h.ApprovedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}

func (s *session) HistoryByPromoter(ctx context.Context, id hierarchy.NodeID) ([]hierarchy.HistoricalBooking, error) {
	rows, err := s.run.QueryContext(ctx, `
		SELECT id, promoter_id, date, party_size, table_name, expected_spend, gifts,
		       notes, confirmation, edited, edit_notes, edited_by, approved_at
		FROM booking_history WHERE promoter_id = ? ORDER BY approved_at DESC, id DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hierarchy.HistoricalBooking
	for rows.Next() {
		var h hierarchy.HistoricalBooking
		var date, approvedAt string
		var spend float64
		if err := rows.Scan(&h.ID, &h.PromoterID, &date, &h.PartySize, &h.TableName,
			&spend, &h.Gifts, &h.Notes, &h.Confirmation, &h.Edited, &h.EditNotes,
			&h.EditedBy, &approvedAt); err != nil {
			return nil, err
		}
		h.ExpectedSpend = decimal.NewFromFloat(spend)
		h.Date = parseTime(date)
		h.ApprovedAt = parseTime(approvedAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *session) DirectStats(ctx context.Context, id hierarchy.NodeID) (hierarchy.DirectStats, error) {
	var stats hierarchy.DirectStats
	var revenue float64
	err := s.run.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(expected_spend), 0), COUNT(*), COALESCE(SUM(party_size), 0)
		FROM booking_history WHERE promoter_id = ?`, id).
		Scan(&revenue, &stats.Bookings, &stats.People)
	if err != nil {
		return hierarchy.DirectStats{}, err
	}
	stats.Revenue = decimal.NewFromFloat(revenue)
	return stats, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *session) AppendPayment(ctx context.Context, p *hierarchy.Payment) error {
	_, err := s.run.ExecContext(ctx, `
		INSERT INTO commission_payments (id, recipient_id, payer_id, amount, note, paid_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.RecipientID, nullableID(p.PayerID), p.Amount.InexactFloat64(),
		p.Note, p.PaidAt.UTC().Format(time.RFC3339))
	return err
}

func (s *session) PaymentsTo(ctx context.Context, recipient hierarchy.NodeID) ([]hierarchy.Payment, error) {
	rows, err := s.run.QueryContext(ctx, `
		SELECT id, recipient_id, payer_id, amount, note, paid_at
		FROM commission_payments WHERE recipient_id = ? ORDER BY paid_at DESC`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hierarchy.Payment
	for rows.Next() {
		var p hierarchy.Payment
		var payer sql.NullInt64
		var amount float64
		var paidAt string
		if err := rows.Scan(&p.ID, &p.RecipientID, &payer, &amount, &p.Note, &paidAt); err != nil {
			return nil, err
		}
		if payer.Valid {
			id := hierarchy.NodeID(payer.Int64)
			p.PayerID = &id
		}
		p.Amount = decimal.NewFromFloat(amount)
		p.PaidAt = parseTime(paidAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *session) SumPaymentsTo(ctx context.Context, recipient hierarchy.NodeID) (decimal.Decimal, error) {
	var sum float64
	err := s.run.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM commission_payments WHERE recipient_id = ?`,
		recipient).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(sum), nil
}

// =============================================================================
// SIGNUP REQUESTS
// =============================================================================

func (s *session) CreateSignupRequest(ctx context.Context, r *hierarchy.SignupRequest) error {
	res, err := s.run.ExecContext(ctx, `
		INSERT INTO promoter_signup_requests
			(handle, percentage, requester_id, proposed_parent_id, note, status,
			 admin_note, requested_at, responded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Handle, r.Percentage.InexactFloat64(), r.RequesterID,
		nullableID(r.ProposedParentID), r.Note, string(r.Status), r.AdminNote,
		r.RequestedAt.UTC().Format(time.RFC3339), nullableTime(r.RespondedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

const signupColumns = `id, handle, percentage, requester_id, proposed_parent_id,
	note, status, admin_note, requested_at, responded_at`

func (s *session) GetSignupRequest(ctx context.Context, id int64) (*hierarchy.SignupRequest, error) {
	rows, err := s.run.QueryContext(ctx,
		`SELECT `+signupColumns+` FROM promoter_signup_requests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanSignup(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *session) ListPendingSignupRequests(ctx context.Context) ([]hierarchy.SignupRequest, error) {
	rows, err := s.run.QueryContext(ctx,
		`SELECT `+signupColumns+` FROM promoter_signup_requests WHERE status = ? ORDER BY id`,
		string(hierarchy.SignupPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hierarchy.SignupRequest
	for rows.Next() {
		r, err := scanSignup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *session) ResolveSignupRequest(ctx context.Context, id int64, status hierarchy.SignupStatus, adminNote string, at time.Time) error {
	res, err := s.run.ExecContext(ctx, `
		UPDATE promoter_signup_requests SET status = ?, admin_note = ?, responded_at = ?
		WHERE id = ?`,
		string(status), adminNote, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	return requireRow(res, hierarchy.ErrSignupNotFound)
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func scanPromoter(rows *sql.Rows) (hierarchy.Promoter, error) {
	var p hierarchy.Promoter
	var parent sql.NullInt64
	var pct, spend, accrued, paid float64
	var deletedAt sql.NullString
	var createdAt string

	err := rows.Scan(&p.ID, &p.Handle, &parent, &pct, &p.Powers, &spend,
		&p.LifetimePeople, &accrued, &paid, &p.Active, &deletedAt, &createdAt)
	if err != nil {
		return hierarchy.Promoter{}, err
	}
	if parent.Valid {
		id := hierarchy.NodeID(parent.Int64)
		p.ParentID = &id
	}
	p.Percentage = decimal.NewFromFloat(pct)
	p.LifetimeSpend = decimal.NewFromFloat(spend)
	p.AccruedCommission = decimal.NewFromFloat(accrued)
	p.LifetimePaid = decimal.NewFromFloat(paid)
	if deletedAt.Valid {
		t := parseTime(deletedAt.String)
		p.DeletedAt = &t
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func scanBooking(rows *sql.Rows) (hierarchy.Booking, error) {
	var b hierarchy.Booking
	var date, createdAt, status string
	var spend float64

	err := rows.Scan(&b.ID, &b.PromoterID, &date, &b.PartySize, &b.TableName,
		&spend, &b.Gifts, &b.Notes, &status, &b.Edited, &b.EditNotes,
		&b.EditedBy, &createdAt)
	if err != nil {
		return hierarchy.Booking{}, err
	}
	b.Date = parseTime(date)
	b.ExpectedSpend = decimal.NewFromFloat(spend)
	b.Status = hierarchy.BookingStatus(status)
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

func scanSignup(rows *sql.Rows) (hierarchy.SignupRequest, error) {
	var r hierarchy.SignupRequest
	var pct float64
	var parent sql.NullInt64
	var status, requestedAt string
	var respondedAt sql.NullString

	err := rows.Scan(&r.ID, &r.Handle, &pct, &r.RequesterID, &parent, &r.Note,
		&status, &r.AdminNote, &requestedAt, &respondedAt)
	if err != nil {
		return hierarchy.SignupRequest{}, err
	}
	r.Percentage = decimal.NewFromFloat(pct)
	if parent.Valid {
		id := hierarchy.NodeID(parent.Int64)
		r.ProposedParentID = &id
	}
	r.Status = hierarchy.SignupStatus(status)
	r.RequestedAt = parseTime(requestedAt)
	if respondedAt.Valid {
		t := parseTime(respondedAt.String)
		r.RespondedAt = &t
	}
	return r, nil
}

func nullableID(id *hierarchy.NodeID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
