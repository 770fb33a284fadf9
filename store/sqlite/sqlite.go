/*
Package sqlite provides a SQLite-backed implementation of the billing
storage interfaces.

PURPOSE:
  Implements ConfigStore, ApartmentStore, ReadingStore, NoticeStore, and
  SettingsStore using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

DECIMAL STORAGE:
  Monetary and consumption values are stored as TEXT decimal strings and
  parsed back through shopspring/decimal. REAL columns never hold money.

SINGLE-ACTIVE ENFORCEMENT:
  ActivateRateConfig performs the deactivate-siblings + activate-target
  pair inside ONE database transaction, so a concurrent reader can never
  observe zero or multiple active configs for a fee type.

FULL-REPLACEMENT WRITES:
  SaveNotice deletes and reinserts the notice's details and tier
  snapshots in one transaction. Draft recomputation therefore replaces
  the detail set wholesale, matching the engine's contract.

READING IMMUTABILITY:
  The readings table is insert-only; no UPDATE or DELETE statements exist
  for it.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/feeengine.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/store.go: Interface definitions
  - billing/store/memory.go: In-memory implementation for testing
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

	"github.com/warp/fee-engine/billing"
)

// Store implements all billing storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Fee types (configuration roots)
	CREATE TABLE IF NOT EXISTS fee_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		calculation TEXT NOT NULL,
		vat_applicable BOOLEAN NOT NULL DEFAULT TRUE,
		default_rate TEXT NOT NULL DEFAULT '0',
		default_vat_rate TEXT NOT NULL DEFAULT '0',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		apply_date TEXT
	);

	-- Versioned tier tables
	CREATE TABLE IF NOT EXISTS rate_configs (
		id TEXT PRIMARY KEY,
		fee_type_id TEXT NOT NULL REFERENCES fee_types(id),
		name TEXT NOT NULL,
		vat_rate TEXT NOT NULL DEFAULT '0',
		bvmt_fee TEXT NOT NULL DEFAULT '0',
		unit_name TEXT,
		apply_date TEXT,
		status TEXT NOT NULL DEFAULT 'inactive'
	);

	CREATE INDEX IF NOT EXISTS idx_rate_configs_fee_type
		ON rate_configs(fee_type_id);
	CREATE INDEX IF NOT EXISTS idx_rate_configs_status
		ON rate_configs(fee_type_id, status);

	CREATE TABLE IF NOT EXISTS fee_tiers (
		config_id TEXT NOT NULL REFERENCES rate_configs(id),
		tier_order INTEGER NOT NULL,
		lower_bound TEXT NOT NULL,
		upper_bound TEXT,
		unit_rate TEXT NOT NULL,
		PRIMARY KEY (config_id, tier_order)
	);

	-- Flat unit prices for quantity fee types
	CREATE TABLE IF NOT EXISTS quantity_configs (
		id TEXT PRIMARY KEY,
		fee_type_id TEXT NOT NULL REFERENCES fee_types(id),
		item_type TEXT NOT NULL,
		unit_rate TEXT NOT NULL,
		vat_rate TEXT NOT NULL DEFAULT '0',
		UNIQUE(fee_type_id, item_type)
	);

	-- Apartments
	CREATE TABLE IF NOT EXISTS apartments (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		floor INTEGER NOT NULL DEFAULT 0,
		area TEXT NOT NULL
	);

	-- Meter readings: INSERT-ONLY, one row per meter-read event
	CREATE TABLE IF NOT EXISTS readings (
		id TEXT PRIMARY KEY,
		apartment_id TEXT NOT NULL,
		fee_type_id TEXT NOT NULL,
		current TEXT NOT NULL,
		reading_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_apartment_fee_date
		ON readings(apartment_id, fee_type_id, reading_date);

	-- Notices and their detail snapshots
	CREATE TABLE IF NOT EXISTS notices (
		id TEXT PRIMARY KEY,
		apartment_id TEXT NOT NULL,
		cycle TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		issue_date TEXT,
		due_date TEXT,
		total TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(apartment_id, cycle)
	);

	CREATE TABLE IF NOT EXISTS notice_details (
		notice_id TEXT NOT NULL REFERENCES notices(id),
		position INTEGER NOT NULL,
		fee_type_id TEXT NOT NULL,
		fee_type_name TEXT NOT NULL,
		calculation TEXT NOT NULL,
		consumption TEXT NOT NULL,
		previous_reading TEXT,
		current_reading TEXT,
		previous_date TEXT,
		current_date TEXT,
		proration TEXT NOT NULL,
		sub_total TEXT NOT NULL,
		bvmt_cost TEXT NOT NULL,
		gross_cost TEXT NOT NULL,
		vat_rate TEXT NOT NULL,
		vat_cost TEXT NOT NULL,
		total TEXT NOT NULL,
		unit_name TEXT,
		PRIMARY KEY (notice_id, position)
	);

	CREATE TABLE IF NOT EXISTS tier_details (
		notice_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		tier_order INTEGER NOT NULL,
		lower_bound TEXT NOT NULL,
		upper_bound TEXT,
		prorated_lower TEXT NOT NULL,
		prorated_upper TEXT,
		unit_rate TEXT NOT NULL,
		consumption TEXT NOT NULL,
		sub_total TEXT NOT NULL,
		unit_name TEXT,
		PRIMARY KEY (notice_id, position, tier_order),
		FOREIGN KEY (notice_id, position) REFERENCES notice_details(notice_id, position)
	);

	-- Billing cycle settings (single row)
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		closing_day_of_month INTEGER NOT NULL,
		payment_due_days INTEGER NOT NULL
	);

	INSERT OR IGNORE INTO settings (id, closing_day_of_month, payment_due_days)
		VALUES (1, 25, 15);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONFIG STORE (billing.ConfigStore interface)
// =============================================================================

func (s *Store) ListFeeTypes(ctx context.Context) ([]billing.FeeType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, calculation, vat_applicable, default_rate, default_vat_rate, active, apply_date
		FROM fee_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee types: %w", err)
	}
	defer rows.Close()

	var out []billing.FeeType
	for rows.Next() {
		ft, err := scanFeeType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadConfigs(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) GetFeeType(ctx context.Context, id billing.FeeTypeID) (*billing.FeeType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, calculation, vat_applicable, default_rate, default_vat_rate, active, apply_date
		FROM fee_types WHERE id = ?`, id)

	ft, err := scanFeeType(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadConfigs(ctx, &ft); err != nil {
		return nil, err
	}
	return &ft, nil
}

// SaveFeeType upserts a fee type and replaces its nested configs in one
// transaction.
func (s *Store) SaveFeeType(ctx context.Context, ft billing.FeeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fee_types (id, name, calculation, vat_applicable, default_rate, default_vat_rate, active, apply_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			calculation = excluded.calculation,
			vat_applicable = excluded.vat_applicable,
			default_rate = excluded.default_rate,
			default_vat_rate = excluded.default_vat_rate,
			active = excluded.active,
			apply_date = excluded.apply_date`,
		ft.ID, ft.Name, ft.Calculation, ft.VATApplicable,
		ft.DefaultRate.String(), ft.DefaultVATRate.String(), ft.Active, nullDate(ft.ApplyDate))
	if err != nil {
		return fmt.Errorf("failed to save fee type: %w", err)
	}

	// Replace nested configs wholesale.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fee_tiers WHERE config_id IN (SELECT id FROM rate_configs WHERE fee_type_id = ?)`, ft.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_configs WHERE fee_type_id = ?`, ft.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quantity_configs WHERE fee_type_id = ?`, ft.ID); err != nil {
		return err
	}

	for _, rc := range ft.RateConfigs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rate_configs (id, fee_type_id, name, vat_rate, bvmt_fee, unit_name, apply_date, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rc.ID, ft.ID, rc.Name, rc.VATRate.String(), rc.BVMTFee.String(),
			rc.UnitName, nullDate(rc.ApplyDate), rc.Status)
		if err != nil {
			return fmt.Errorf("failed to save rate config: %w", err)
		}
		for _, t := range rc.Tiers {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO fee_tiers (config_id, tier_order, lower_bound, upper_bound, unit_rate)
				VALUES (?, ?, ?, ?, ?)`,
				rc.ID, t.Order, t.LowerBound.String(), nullDecimal(t.UpperBound), t.UnitRate.String())
			if err != nil {
				return fmt.Errorf("failed to save tier: %w", err)
			}
		}
	}

	for _, qc := range ft.QuantityConfigs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO quantity_configs (id, fee_type_id, item_type, unit_rate, vat_rate)
			VALUES (?, ?, ?, ?, ?)`,
			qc.ID, ft.ID, qc.ItemType, qc.UnitRate.String(), qc.VATRate.String())
		if err != nil {
			return fmt.Errorf("failed to save quantity config: %w", err)
		}
	}

	return tx.Commit()
}

// ActivateRateConfig flips the active configuration inside one database
// transaction: deactivate all siblings, activate the target. A reader can
// never observe a transient zero-or-two-active state.
func (s *Store) ActivateRateConfig(ctx context.Context, feeTypeID billing.FeeTypeID, configID billing.RateConfigID) ([]billing.FeeRateConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE rate_configs SET status = 'inactive' WHERE fee_type_id = ?`, feeTypeID); err != nil {
		return nil, fmt.Errorf("failed to deactivate siblings: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE rate_configs SET status = 'active' WHERE id = ? AND fee_type_id = ?`, configID, feeTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to activate config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, billing.ErrConfigNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ft := billing.FeeType{ID: feeTypeID}
	if err := s.loadConfigs(ctx, &ft); err != nil {
		return nil, err
	}
	return ft.RateConfigs, nil
}

func (s *Store) loadConfigs(ctx context.Context, ft *billing.FeeType) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, vat_rate, bvmt_fee, unit_name, apply_date, status
		FROM rate_configs WHERE fee_type_id = ? ORDER BY apply_date, id`, ft.ID)
	if err != nil {
		return fmt.Errorf("failed to query rate configs: %w", err)
	}
	defer rows.Close()

	ft.RateConfigs = nil
	for rows.Next() {
		var (
			rc                         billing.FeeRateConfig
			vatRate, bvmtFee           string
			unitName, apply, statusStr sql.NullString
		)
		if err := rows.Scan(&rc.ID, &rc.Name, &vatRate, &bvmtFee, &unitName, &apply, &statusStr); err != nil {
			return err
		}
		if rc.VATRate, err = decimal.NewFromString(vatRate); err != nil {
			return err
		}
		if rc.BVMTFee, err = decimal.NewFromString(bvmtFee); err != nil {
			return err
		}
		rc.UnitName = unitName.String
		rc.Status = billing.ConfigStatus(statusStr.String)
		rc.ApplyDate = parseNullDate(apply)
		ft.RateConfigs = append(ft.RateConfigs, rc)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range ft.RateConfigs {
		if err := s.loadTiers(ctx, &ft.RateConfigs[i]); err != nil {
			return err
		}
	}

	return s.loadQuantityConfigs(ctx, ft)
}

func (s *Store) loadTiers(ctx context.Context, rc *billing.FeeRateConfig) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tier_order, lower_bound, upper_bound, unit_rate
		FROM fee_tiers WHERE config_id = ? ORDER BY tier_order`, rc.ID)
	if err != nil {
		return fmt.Errorf("failed to query tiers: %w", err)
	}
	defer rows.Close()

	rc.Tiers = nil
	for rows.Next() {
		var (
			t           billing.FeeTier
			lower, rate string
			upper       sql.NullString
		)
		if err := rows.Scan(&t.Order, &lower, &upper, &rate); err != nil {
			return err
		}
		if t.LowerBound, err = decimal.NewFromString(lower); err != nil {
			return err
		}
		if t.UnitRate, err = decimal.NewFromString(rate); err != nil {
			return err
		}
		if upper.Valid {
			u, err := decimal.NewFromString(upper.String)
			if err != nil {
				return err
			}
			t.UpperBound = &u
		}
		rc.Tiers = append(rc.Tiers, t)
	}
	return rows.Err()
}

func (s *Store) loadQuantityConfigs(ctx context.Context, ft *billing.FeeType) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, unit_rate, vat_rate
		FROM quantity_configs WHERE fee_type_id = ? ORDER BY item_type`, ft.ID)
	if err != nil {
		return fmt.Errorf("failed to query quantity configs: %w", err)
	}
	defer rows.Close()

	ft.QuantityConfigs = nil
	for rows.Next() {
		var (
			qc            billing.QuantityRateConfig
			unitRate, vat string
		)
		if err := rows.Scan(&qc.ID, &qc.ItemType, &unitRate, &vat); err != nil {
			return err
		}
		if qc.UnitRate, err = decimal.NewFromString(unitRate); err != nil {
			return err
		}
		if qc.VATRate, err = decimal.NewFromString(vat); err != nil {
			return err
		}
		ft.QuantityConfigs = append(ft.QuantityConfigs, qc)
	}
	return rows.Err()
}

// =============================================================================
// APARTMENT STORE
// =============================================================================

func (s *Store) ListApartments(ctx context.Context) ([]billing.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, code, floor, area FROM apartments ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query apartments: %w", err)
	}
	defer rows.Close()

	var out []billing.Apartment
	for rows.Next() {
		a, err := scanApartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetApartment(ctx context.Context, id billing.ApartmentID) (*billing.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, code, floor, area FROM apartments WHERE id = ?`, id)
	a, err := scanApartment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) SaveApartment(ctx context.Context, a billing.Apartment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apartments (id, code, floor, area) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET code = excluded.code, floor = excluded.floor, area = excluded.area`,
		a.ID, a.Code, a.Floor, a.Area.String())
	if err != nil {
		return fmt.Errorf("failed to save apartment: %w", err)
	}
	return nil
}

// =============================================================================
// READING STORE - insert-only
// =============================================================================

func (s *Store) AppendReading(ctx context.Context, r billing.UtilityReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (id, apartment_id, fee_type_id, current, reading_date)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.ApartmentID, r.FeeTypeID, r.Current.String(), r.ReadingDate.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("failed to append reading: %w", err)
	}
	return nil
}

func (s *Store) ListReadings(ctx context.Context, apartmentID billing.ApartmentID, feeTypeID billing.FeeTypeID) ([]billing.UtilityReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, apartment_id, fee_type_id, current, reading_date
		FROM readings WHERE apartment_id = ? AND fee_type_id = ?
		ORDER BY reading_date ASC`, apartmentID, feeTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []billing.UtilityReading
	for rows.Next() {
		var (
			r             billing.UtilityReading
			current, date string
		)
		if err := rows.Scan(&r.ID, &r.ApartmentID, &r.FeeTypeID, &current, &date); err != nil {
			return nil, err
		}
		if r.Current, err = decimal.NewFromString(current); err != nil {
			return nil, err
		}
		if r.ReadingDate, err = time.Parse("2006-01-02", date); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// NOTICE STORE - full-replacement writes
// =============================================================================

func (s *Store) SaveNotice(ctx context.Context, n billing.FeeNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notices (id, apartment_id, cycle, status, payment_status, issue_date, due_date, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			payment_status = excluded.payment_status,
			issue_date = excluded.issue_date,
			due_date = excluded.due_date,
			total = excluded.total,
			updated_at = excluded.updated_at`,
		n.ID, n.ApartmentID, n.Cycle.String(), n.Status, n.Payment,
		nullDatePtr(n.IssueDate), nullDatePtr(n.DueDate), n.Total.String(),
		n.CreatedAt.Format(time.RFC3339), n.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save notice: %w", err)
	}

	// Full replacement of detail and tier snapshots.
	if _, err := tx.ExecContext(ctx, `DELETE FROM tier_details WHERE notice_id = ?`, n.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notice_details WHERE notice_id = ?`, n.ID); err != nil {
		return err
	}

	for pos, d := range n.Details {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notice_details (notice_id, position, fee_type_id, fee_type_name, calculation,
				consumption, previous_reading, current_reading, previous_date, current_date,
				proration, sub_total, bvmt_cost, gross_cost, vat_rate, vat_cost, total, unit_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, pos, d.FeeTypeID, d.FeeTypeName, d.Calculation,
			d.Consumption.String(), nullDecimal(d.PreviousReading), nullDecimal(d.CurrentReading),
			nullDatePtr(d.PreviousDate), nullDatePtr(d.CurrentDate),
			d.Proration.String(), d.SubTotal.String(), d.BVMTCost.String(), d.GrossCost.String(),
			d.VATRate.String(), d.VATCost.String(), d.Total.String(), d.UnitName)
		if err != nil {
			return fmt.Errorf("failed to save notice detail: %w", err)
		}

		for _, t := range d.Tiers {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO tier_details (notice_id, position, tier_order, lower_bound, upper_bound,
					prorated_lower, prorated_upper, unit_rate, consumption, sub_total, unit_name)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				n.ID, pos, t.Order, t.LowerBound.String(), nullDecimal(t.UpperBound),
				t.ProratedLower.String(), nullDecimal(t.ProratedUpper),
				t.UnitRate.String(), t.Consumption.String(), t.SubTotal.String(), t.UnitName)
			if err != nil {
				return fmt.Errorf("failed to save tier detail: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *Store) GetNotice(ctx context.Context, id billing.NoticeID) (*billing.FeeNotice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, apartment_id, cycle, status, payment_status, issue_date, due_date, total, created_at, updated_at
		FROM notices WHERE id = ?`, id)

	n, err := s.scanNotice(ctx, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) FindNotice(ctx context.Context, apartmentID billing.ApartmentID, cycle billing.BillingCycle) (*billing.FeeNotice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, apartment_id, cycle, status, payment_status, issue_date, due_date, total, created_at, updated_at
		FROM notices WHERE apartment_id = ? AND cycle = ?`, apartmentID, cycle.String())

	n, err := s.scanNotice(ctx, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) ListNotices(ctx context.Context, apartmentID billing.ApartmentID) ([]billing.FeeNotice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM notices WHERE apartment_id = ? ORDER BY cycle`, apartmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notices: %w", err)
	}
	defer rows.Close()

	var ids []billing.NoticeID
	for rows.Next() {
		var id billing.NoticeID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]billing.FeeNotice, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, apartment_id, cycle, status, payment_status, issue_date, due_date, total, created_at, updated_at
			FROM notices WHERE id = ?`, id)
		n, err := s.scanNotice(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (s *Store) scanNotice(ctx context.Context, row *sql.Row) (*billing.FeeNotice, error) {
	var (
		n                    billing.FeeNotice
		cycle, total         string
		issue, due           sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&n.ID, &n.ApartmentID, &cycle, &n.Status, &n.Payment, &issue, &due, &total, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	n.Cycle = billing.BillingCycle(cycle)
	if n.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	n.IssueDate = parseNullDatePtr(issue)
	n.DueDate = parseNullDatePtr(due)
	n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	n.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if err := s.loadDetails(ctx, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) loadDetails(ctx context.Context, n *billing.FeeNotice) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, fee_type_id, fee_type_name, calculation, consumption,
			previous_reading, current_reading, previous_date, current_date,
			proration, sub_total, bvmt_cost, gross_cost, vat_rate, vat_cost, total, unit_name
		FROM notice_details WHERE notice_id = ? ORDER BY position`, n.ID)
	if err != nil {
		return fmt.Errorf("failed to query notice details: %w", err)
	}
	defer rows.Close()

	var positions []int
	for rows.Next() {
		var (
			d                                                    billing.FeeDetail
			position                                             int
			consumption, proration, subTotal                     string
			bvmt, gross, vatRate, vatCost, total                 string
			prevReading, curReading, prevDate, curDate, unitName sql.NullString
		)
		err := rows.Scan(&position, &d.FeeTypeID, &d.FeeTypeName, &d.Calculation, &consumption,
			&prevReading, &curReading, &prevDate, &curDate,
			&proration, &subTotal, &bvmt, &gross, &vatRate, &vatCost, &total, &unitName)
		if err != nil {
			return err
		}

		if d.Consumption, err = decimal.NewFromString(consumption); err != nil {
			return err
		}
		if d.Proration, err = decimal.NewFromString(proration); err != nil {
			return err
		}
		if d.SubTotal, err = decimal.NewFromString(subTotal); err != nil {
			return err
		}
		if d.BVMTCost, err = decimal.NewFromString(bvmt); err != nil {
			return err
		}
		if d.GrossCost, err = decimal.NewFromString(gross); err != nil {
			return err
		}
		if d.VATRate, err = decimal.NewFromString(vatRate); err != nil {
			return err
		}
		if d.VATCost, err = decimal.NewFromString(vatCost); err != nil {
			return err
		}
		if d.Total, err = decimal.NewFromString(total); err != nil {
			return err
		}
		d.PreviousReading = parseNullDecimal(prevReading)
		d.CurrentReading = parseNullDecimal(curReading)
		d.PreviousDate = parseNullDatePtr(prevDate)
		d.CurrentDate = parseNullDatePtr(curDate)
		d.UnitName = unitName.String

		n.Details = append(n.Details, d)
		positions = append(positions, position)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i, pos := range positions {
		if err := s.loadTierDetails(ctx, n.ID, pos, &n.Details[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadTierDetails(ctx context.Context, noticeID billing.NoticeID, position int, d *billing.FeeDetail) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tier_order, lower_bound, upper_bound, prorated_lower, prorated_upper,
			unit_rate, consumption, sub_total, unit_name
		FROM tier_details WHERE notice_id = ? AND position = ? ORDER BY tier_order`, noticeID, position)
	if err != nil {
		return fmt.Errorf("failed to query tier details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                              billing.FeeTierDetail
			lower, proratedLower           string
			rate, consumption, subTotal    string
			upper, proratedUpper, unitName sql.NullString
		)
		err := rows.Scan(&t.Order, &lower, &upper, &proratedLower, &proratedUpper,
			&rate, &consumption, &subTotal, &unitName)
		if err != nil {
			return err
		}

		if t.LowerBound, err = decimal.NewFromString(lower); err != nil {
			return err
		}
		if t.ProratedLower, err = decimal.NewFromString(proratedLower); err != nil {
			return err
		}
		if t.UnitRate, err = decimal.NewFromString(rate); err != nil {
			return err
		}
		if t.Consumption, err = decimal.NewFromString(consumption); err != nil {
			return err
		}
		if t.SubTotal, err = decimal.NewFromString(subTotal); err != nil {
			return err
		}
		t.UpperBound = parseNullDecimal(upper)
		t.ProratedUpper = parseNullDecimal(proratedUpper)
		t.UnitName = unitName.String

		d.Tiers = append(d.Tiers, t)
	}
	return rows.Err()
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

func (s *Store) GetSettings(ctx context.Context) (billing.BillingSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out billing.BillingSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT closing_day_of_month, payment_due_days FROM settings WHERE id = 1`).
		Scan(&out.ClosingDayOfMonth, &out.PaymentDueDays)
	if err != nil {
		return billing.BillingSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings billing.BillingSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE settings SET closing_day_of_month = ?, payment_due_days = ? WHERE id = 1`,
		settings.ClosingDayOfMonth, settings.PaymentDueDays)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// =============================================================================
// SCAN AND NULL HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeeType(row rowScanner) (billing.FeeType, error) {
	var (
		ft                      billing.FeeType
		defaultRate, defaultVAT string
		apply                   sql.NullString
	)
	err := row.Scan(&ft.ID, &ft.Name, &ft.Calculation, &ft.VATApplicable,
		&defaultRate, &defaultVAT, &ft.Active, &apply)
	if err != nil {
		return billing.FeeType{}, err
	}
	if ft.DefaultRate, err = decimal.NewFromString(defaultRate); err != nil {
		return billing.FeeType{}, err
	}
	if ft.DefaultVATRate, err = decimal.NewFromString(defaultVAT); err != nil {
		return billing.FeeType{}, err
	}
	ft.ApplyDate = parseNullDate(apply)
	return ft, nil
}

func scanApartment(row rowScanner) (billing.Apartment, error) {
	var (
		a    billing.Apartment
		area string
	)
	err := row.Scan(&a.ID, &a.Code, &a.Floor, &area)
	if err != nil {
		return billing.Apartment{}, err
	}
	if a.Area, err = decimal.NewFromString(area); err != nil {
		return billing.Apartment{}, err
	}
	return a, nil
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}

func nullDatePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", s.String)
	return t
}

func parseNullDatePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseNullDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}
