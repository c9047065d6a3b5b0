package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"moobank/internal/core"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// SQLiteRepository is the concrete collaborator behind the engine's ports:
// transaction, rule and recurring sources plus the unit-of-work commit
// boundary.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
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

// GetTransactions implements ledger.TransactionSource. Transactions come back
// in ascending time order with their splits (in split order) and split tags
// attached.
func (r *SQLiteRepository) GetTransactions(ctx context.Context, accountID string) ([]*core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, account_id, amount_cents, description, transaction_time,
	       transaction_type, notes, exclude_from_reporting
	FROM transactions WHERE account_id = ?
	ORDER BY transaction_time, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*core.Transaction
	byID := make(map[string]*core.Transaction)
	for rows.Next() {
		var (
			t           core.Transaction
			description sql.NullString
			notes       sql.NullString
			when        string
			exclude     int64
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount.Cents, &description,
			&when, &t.Type, &notes, &exclude); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Description = description.String
		t.Notes = notes.String
		t.ExcludeFromReporting = exclude != 0
		if t.TransactionTime, err = time.Parse(timeFormat, when); err != nil {
			return nil, fmt.Errorf("parse transaction time: %w", err)
		}
		tx := t
		out = append(out, &tx)
		byID[tx.ID] = &tx
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	if err := r.attachSplits(ctx, accountID, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) attachSplits(ctx context.Context, accountID string, byID map[string]*core.Transaction) error {
	rows, err := r.db.QueryContext(ctx, `
	SELECT s.id, s.transaction_id, s.amount_cents
	FROM splits s
	JOIN transactions t ON t.id = s.transaction_id
	WHERE t.account_id = ?
	ORDER BY s.transaction_id, s.ordinal`, accountID)
	if err != nil {
		return fmt.Errorf("query splits: %w", err)
	}
	defer rows.Close()

	splitOwner := make(map[string]*core.Transaction)
	for rows.Next() {
		var s core.Split
		if err := rows.Scan(&s.ID, &s.TransactionID, &s.Amount.Cents); err != nil {
			return fmt.Errorf("scan split: %w", err)
		}
		t, ok := byID[s.TransactionID]
		if !ok {
			continue
		}
		t.Splits = append(t.Splits, s)
		splitOwner[s.ID] = t
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate splits: %w", err)
	}

	tagRows, err := r.db.QueryContext(ctx, `
	SELECT st.split_id, tg.id, tg.name
	FROM split_tags st
	JOIN tags tg ON tg.id = st.tag_id
	JOIN splits s ON s.id = st.split_id
	JOIN transactions t ON t.id = s.transaction_id
	WHERE t.account_id = ?
	ORDER BY st.split_id, tg.name`, accountID)
	if err != nil {
		return fmt.Errorf("query split tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var splitID string
		var tag core.Tag
		if err := tagRows.Scan(&splitID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("scan split tag: %w", err)
		}
		t, ok := splitOwner[splitID]
		if !ok {
			continue
		}
		for i := range t.Splits {
			if t.Splits[i].ID == splitID {
				t.Splits[i].Tags.Add(tag)
				break
			}
		}
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("iterate split tags: %w", err)
	}
	return nil
}

// GetForInstrument implements ledger.RuleSource. Rules come back ordered by
// pattern so that repeated runs join notes in the same order.
func (r *SQLiteRepository) GetForInstrument(ctx context.Context, accountID string) ([]core.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, account_id, contains, description
	FROM rules WHERE account_id = ?
	ORDER BY contains COLLATE NOCASE, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []core.Rule
	index := make(map[string]int)
	for rows.Next() {
		var rule core.Rule
		var description sql.NullString
		if err := rows.Scan(&rule.ID, &rule.AccountID, &rule.Contains, &description); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.Description = description.String
		index[rule.ID] = len(rules)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	tagRows, err := r.db.QueryContext(ctx, `
	SELECT rt.rule_id, tg.id, tg.name
	FROM rule_tags rt
	JOIN tags tg ON tg.id = rt.tag_id
	JOIN rules ru ON ru.id = rt.rule_id
	WHERE ru.account_id = ?
	ORDER BY rt.rule_id, tg.name`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query rule tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var ruleID string
		var tag core.Tag
		if err := tagRows.Scan(&ruleID, &tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan rule tag: %w", err)
		}
		if i, ok := index[ruleID]; ok {
			rules[i].Tags = append(rules[i].Tags, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule tags: %w", err)
	}
	return rules, nil
}

// Get implements ledger.RecurringSource.
func (r *SQLiteRepository) Get(ctx context.Context) ([]*core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, account_id, amount_cents, description, frequency, next_run, last_run
	FROM recurring_transactions
	ORDER BY next_run, id`)
	if err != nil {
		return nil, fmt.Errorf("query recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []*core.RecurringTransaction
	for rows.Next() {
		var (
			rt      core.RecurringTransaction
			nextRun string
			lastRun sql.NullString
		)
		if err := rows.Scan(&rt.ID, &rt.AccountID, &rt.Amount.Cents,
			&rt.Description, &rt.Every, &nextRun, &lastRun); err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		if rt.NextRun, err = time.Parse(timeFormat, nextRun); err != nil {
			return nil, fmt.Errorf("parse next run: %w", err)
		}
		if lastRun.Valid {
			if rt.LastRun, err = time.Parse(timeFormat, lastRun.String); err != nil {
				return nil, fmt.Errorf("parse last run: %w", err)
			}
		}
		def := rt
		out = append(out, &def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring transactions: %w", err)
	}
	return out, nil
}

// AddTransaction persists a transaction with its splits and split tags in one
// database transaction.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t *core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertTransaction(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddRule persists a rule and its tag references.
func (r *SQLiteRepository) AddRule(ctx context.Context, rule core.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO rules (id, account_id, contains, description)
	VALUES (?, ?, ?, ?)`,
		rule.ID, rule.AccountID, rule.Contains, nullable(rule.Description)); err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	for _, tag := range rule.Tags {
		if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO rule_tags (rule_id, tag_id) VALUES (?, ?)`,
			rule.ID, tag.ID); err != nil {
			return fmt.Errorf("insert rule tag: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rule: %w", err)
	}
	return nil
}

// AddRecurring persists a recurring transaction definition.
func (r *SQLiteRepository) AddRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	if err := rt.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO recurring_transactions (id, account_id, amount_cents, description, frequency, next_run, last_run)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.AccountID, rt.Amount.Cents, rt.Description, string(rt.Every),
		rt.NextRun.Format(timeFormat), nullableTime(rt.LastRun))
	if err != nil {
		return fmt.Errorf("insert recurring transaction: %w", err)
	}
	return nil
}

// UpsertTag inserts or renames a tag.
func (r *SQLiteRepository) UpsertTag(ctx context.Context, tag core.Tag) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO tags (id, name) VALUES (?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name`, tag.ID, tag.Name)
	if err != nil {
		return fmt.Errorf("upsert tag: %w", err)
	}
	return nil
}

// TagByName looks a tag up by its name. Returns nil when absent.
func (r *SQLiteRepository) TagByName(ctx context.Context, name string) (*core.Tag, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name)
	var tag core.Tag
	if err := row.Scan(&tag.ID, &tag.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query tag by name: %w", err)
	}
	return &tag, nil
}

// AddTagRelationship appends child under parent at the next ordinal.
func (r *SQLiteRepository) AddTagRelationship(ctx context.Context, parentID, childID string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO tag_relationships (parent_tag_id, child_tag_id, ordinal)
	VALUES (?, ?, (SELECT COALESCE(MAX(ordinal), 0) + 1 FROM tag_relationships WHERE parent_tag_id = ?))`,
		parentID, childID, parentID)
	if err != nil {
		return fmt.Errorf("insert tag relationship: %w", err)
	}
	return nil
}

// GetTagHierarchy loads the full parent/child adjacency list in ordinal
// order.
func (r *SQLiteRepository) GetTagHierarchy(ctx context.Context) (*core.TagHierarchy, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT parent_tag_id, child_tag_id
	FROM tag_relationships
	ORDER BY parent_tag_id, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("query tag relationships: %w", err)
	}
	defer rows.Close()

	h := core.NewTagHierarchy()
	for rows.Next() {
		var parentID, childID string
		if err := rows.Scan(&parentID, &childID); err != nil {
			return nil, fmt.Errorf("scan tag relationship: %w", err)
		}
		h.AddChild(parentID, childID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag relationships: %w", err)
	}
	return h, nil
}

// AccountIDsWithRules returns the distinct account ids that have at least one
// rule, for full reprocess sweeps.
func (r *SQLiteRepository) AccountIDsWithRules(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT account_id FROM rules ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("query rule accounts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rule account: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO transactions (id, account_id, amount_cents, description, transaction_time,
	                          transaction_type, notes, exclude_from_reporting)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Amount.Cents, nullable(t.Description),
		t.TransactionTime.Format(timeFormat), string(t.Type), nullable(t.Notes),
		boolToInt(t.ExcludeFromReporting)); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	for i := range t.Splits {
		split := &t.Splits[i]
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO splits (id, transaction_id, amount_cents, ordinal)
		VALUES (?, ?, ?, ?)`,
			split.ID, t.ID, split.Amount.Cents, i); err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
		for _, tag := range split.Tags.Tags() {
			if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO split_tags (split_id, tag_id) VALUES (?, ?)`,
				split.ID, tag.ID); err != nil {
				return fmt.Errorf("insert split tag: %w", err)
			}
		}
	}
	return nil
}

func updateTransaction(ctx context.Context, tx *sql.Tx, t *core.Transaction) error {
	if _, err := tx.ExecContext(ctx, `
	UPDATE transactions SET notes = ?, exclude_from_reporting = ? WHERE id = ?`,
		nullable(t.Notes), boolToInt(t.ExcludeFromReporting), t.ID); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	for i := range t.Splits {
		split := &t.Splits[i]
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO splits (id, transaction_id, amount_cents, ordinal)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET amount_cents = excluded.amount_cents, ordinal = excluded.ordinal`,
			split.ID, t.ID, split.Amount.Cents, i); err != nil {
			return fmt.Errorf("upsert split: %w", err)
		}
		for _, tag := range split.Tags.Tags() {
			if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO split_tags (split_id, tag_id) VALUES (?, ?)`,
				split.ID, tag.ID); err != nil {
				return fmt.Errorf("insert split tag: %w", err)
			}
		}
	}
	return nil
}

func updateRecurring(ctx context.Context, tx *sql.Tx, rt *core.RecurringTransaction) error {
	if _, err := tx.ExecContext(ctx, `
	UPDATE recurring_transactions SET next_run = ?, last_run = ? WHERE id = ?`,
		rt.NextRun.Format(timeFormat), nullableTime(rt.LastRun), rt.ID); err != nil {
		return fmt.Errorf("update recurring transaction: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(timeFormat)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
