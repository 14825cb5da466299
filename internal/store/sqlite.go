package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/tally-dev/tally/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL,
	date         TEXT NOT NULL,
	description  TEXT NOT NULL,
	amount       TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	user_name    TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);

CREATE TABLE IF NOT EXISTS recurring_templates (
	id              TEXT PRIMARY KEY,
	description     TEXT NOT NULL,
	amount          TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	user_name       TEXT NOT NULL DEFAULT '',
	frequency       TEXT NOT NULL,
	start_date      TEXT NOT NULL,
	end_date        TEXT,
	is_active       INTEGER NOT NULL DEFAULT 1,
	last_processed  TEXT,
	next_due_date   TEXT
);
`

// SQLiteStore keeps transactions and templates in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// AppendTransactions inserts txns in one transaction.
func (s *SQLiteStore) AppendTransactions(ctx context.Context, txns []model.Transaction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions(id, date, description, amount, category, user_name)
		VALUES(?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, txn := range txns {
			if _, err := stmt.ExecContext(ctx, txn.ID, txn.Date.Format(dateFormat), txn.Description,
				txn.Amount.StringFixed(2), txn.Category, txn.UserName); err != nil {
				return fmt.Errorf("inserting %s: %w", txn.ID, err)
			}
		}
		return nil
	})
}

// Transactions returns all transactions ordered by date, then insertion.
func (s *SQLiteStore) Transactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, date, description, amount, category, user_name
	FROM transactions ORDER BY date, seq`)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var date, amount string
		if err := rows.Scan(&txn.ID, &date, &txn.Description, &amount, &txn.Category, &txn.UserName); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if txn.Date, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("parsing date %q of %s: %w", date, txn.ID, err)
		}
		if txn.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing amount %q of %s: %w", amount, txn.ID, err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// SaveTemplates upserts templates by ID.
func (s *SQLiteStore) SaveTemplates(ctx context.Context, templates []model.RecurringTemplate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recurring_templates(
		 id, description, amount, category, user_name, frequency,
		 start_date, end_date, is_active, last_processed, next_due_date)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 description = excluded.description,
		 amount = excluded.amount,
		 category = excluded.category,
		 user_name = excluded.user_name,
		 frequency = excluded.frequency,
		 start_date = excluded.start_date,
		 end_date = excluded.end_date,
		 is_active = excluded.is_active,
		 last_processed = excluded.last_processed,
		 next_due_date = excluded.next_due_date`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range templates {
			if _, err := stmt.ExecContext(ctx,
				t.ID, t.Template.Description, t.Template.Amount.String(), t.Template.Category,
				t.Template.UserName, string(t.Frequency), t.StartDate.Format(dateFormat),
				nullDate(t.EndDate), t.IsActive, nullDate(t.LastProcessed), nullDate(t.NextDueDate),
			); err != nil {
				return fmt.Errorf("saving template %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// Templates returns all templates ordered by ID.
func (s *SQLiteStore) Templates(ctx context.Context) ([]model.RecurringTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, description, amount, category, user_name, frequency,
	       start_date, end_date, is_active, last_processed, next_due_date
	FROM recurring_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var templates []model.RecurringTemplate
	for rows.Next() {
		var (
			t                               model.RecurringTemplate
			amount, frequency, start        string
			end, lastProcessed, nextDueDate sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Template.Description, &amount, &t.Template.Category,
			&t.Template.UserName, &frequency, &start, &end, &t.IsActive, &lastProcessed, &nextDueDate); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}

		t.Frequency = model.Frequency(frequency)
		if t.Template.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing amount %q of %s: %w", amount, t.ID, err)
		}
		if t.StartDate, err = time.Parse(dateFormat, start); err != nil {
			return nil, fmt.Errorf("parsing start date of %s: %w", t.ID, err)
		}
		for _, f := range []struct {
			src sql.NullString
			dst **time.Time
		}{
			{end, &t.EndDate},
			{lastProcessed, &t.LastProcessed},
			{nextDueDate, &t.NextDueDate},
		} {
			if *f.dst, err = parseNullDate(f.src); err != nil {
				return nil, fmt.Errorf("template %s: %w", t.ID, err)
			}
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateFormat)
}

func parseNullDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", s.String, err)
	}
	return &t, nil
}
