package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expenses/internal/core"

	_ "modernc.org/sqlite"
)

// dateColumnLayout is how dates are stored so they sort as text.
const dateColumnLayout = "2006-01-02"

// ErrNotFound is returned when a transaction id does not exist.
var ErrNotFound = errors.New("transaction not found")

// Txn is a stored transaction.
type Txn struct {
	ID          int64
	Date        core.Date
	Description string
	AmountCents int64
	Source      string
	Tags        []string
}

// Transaction converts to the wire model.
func (t Txn) Transaction() core.Transaction {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return core.Transaction{
		ID:          fmt.Sprint(t.ID),
		Date:        t.Date,
		Description: t.Description,
		Amount:      core.FormatCents(t.AmountCents),
		Source:      t.Source,
		Tags:        tags,
	}
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTxn stores t and returns its id. Tags are normalized first.
func (r *SQLiteRepository) CreateTxn(ctx context.Context, t Txn) (int64, error) {
	t.Tags = core.NormalizeTags(t.Tags)
	if err := validateTxn(t); err != nil {
		return 0, err
	}

	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (date, description, amount_cents, source) VALUES (?, ?, ?, ?)`,
			t.Date.Format(dateColumnLayout), t.Description, t.AmountCents, t.Source)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read transaction id: %w", err)
		}
		return insertTags(ctx, tx, id, t.Tags, 0)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetTxn returns one transaction or ErrNotFound.
func (r *SQLiteRepository) GetTxn(ctx context.Context, id int64) (Txn, error) {
	txns, err := r.QueryTxns(ctx, TxnQuery{IDs: []int64{id}, Limit: 1})
	if err != nil {
		return Txn{}, err
	}
	if len(txns) == 0 {
		return Txn{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return txns[0], nil
}

// AddTags appends tags to every transaction in ids, skipping tags a
// transaction already has. Nothing is written if any transaction would
// end up with more than core.MaxTags tags.
func (r *SQLiteRepository) AddTags(ctx context.Context, ids []int64, tags []string) error {
	tags = core.NormalizeTags(tags)
	if err := validateTagEdit(ids, tags, true); err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			var next int
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(position) + 1, 0) FROM transaction_tags WHERE txn_id = ?`, id,
			).Scan(&next); err != nil {
				return fmt.Errorf("read tag position for txn %d: %w", id, err)
			}
			if err := insertTags(ctx, tx, id, tags, next); err != nil {
				return err
			}
			var count int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM transaction_tags WHERE txn_id = ?`, id,
			).Scan(&count); err != nil {
				return fmt.Errorf("count tags for txn %d: %w", id, err)
			}
			if count > core.MaxTags {
				return fmt.Errorf("%w: txn %d would have %d tags, want <= %d", core.ErrTooManyTags, id, count, core.MaxTags)
			}
		}
		return nil
	})
}

// RemoveTags drops tags from every transaction in ids.
func (r *SQLiteRepository) RemoveTags(ctx context.Context, ids []int64, tags []string) error {
	tags = core.NormalizeTags(tags)
	if err := validateTagEdit(ids, tags, true); err != nil {
		return err
	}
	idIn, idArgs := inClause(ids)
	tagIn, tagArgs := inClause(tags)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM transaction_tags WHERE txn_id IN `+idIn+` AND tag IN `+tagIn,
			append(idArgs, tagArgs...)...)
		if err != nil {
			return fmt.Errorf("remove tags: %w", err)
		}
		return nil
	})
}

// ClearTags removes every tag from the transactions in ids.
func (r *SQLiteRepository) ClearTags(ctx context.Context, ids []int64) error {
	if err := validateTagEdit(ids, nil, false); err != nil {
		return err
	}
	idIn, idArgs := inClause(ids)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_tags WHERE txn_id IN `+idIn, idArgs...); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertTags(ctx context.Context, tx *sql.Tx, id int64, tags []string, position int) error {
	for _, tag := range tags {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO transaction_tags (txn_id, tag, position) VALUES (?, ?, ?)`,
			id, tag, position)
		if err != nil {
			return fmt.Errorf("insert tag %q for txn %d: %w", tag, id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			position++
		}
	}
	return nil
}

func validateTxn(t Txn) error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := core.ValidateDescription(t.Description); err != nil {
		return err
	}
	if err := core.ValidateSource(t.Source); err != nil {
		return err
	}
	return core.ValidateTags(t.Tags)
}

func validateTagEdit(ids []int64, tags []string, needTags bool) error {
	switch l := len(ids); {
	case l == 0:
		return fmt.Errorf("%w: no ids given", core.ErrInvalidID)
	case l > core.MaxIDs:
		return fmt.Errorf("%w: got %d, want <= %d", core.ErrTooManyIDs, l, core.MaxIDs)
	}
	if needTags && len(tags) == 0 {
		return fmt.Errorf("%w: no tags given", core.ErrInvalidTag)
	}
	return core.ValidateTags(tags)
}

// inClause returns "(?, ?, ...)" and the matching arguments.
func inClause[T any](values []T) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")", args
}

func parseDateColumn(s string) (core.Date, error) {
	t, err := time.Parse(dateColumnLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}
