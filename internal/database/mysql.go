package database

import (
	"context"
	"database/sql"
	"fmt"
	"gigacode/entity"
	"gigacode/internal/config"
	"gigacode/internal/ledger"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/google/uuid"
)

const (
	tableCodes  = "promo_code"
	tableRules  = "format_rule"
	codeColumns = "seq, id, inserted_at, received_at, code, denomination, usage_ordinal, expires_at, used"
)

// MySql is the relational code ledger. Ledger order is the auto increment
// seq column; times are stored in UTC.
type MySql struct {
	db         *sql.DB
	prefix     string
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func connectionURI(conf *config.MySqlConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		conf.UserName, conf.Password, conf.HostName, conf.Port, conf.Database)
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	if !conf.MySql.Enabled {
		return nil, fmt.Errorf("mysql ledger is disabled in configuration")
	}
	db, err := sql.Open("mysql", connectionURI(&conf.MySql))
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:         db,
		prefix:     conf.MySql.Prefix,
		statements: make(map[string]*sql.Stmt),
	}
	if err = sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sdb, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

func (s *MySql) createTables() error {
	for _, query := range schema(s.prefix) {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*entity.CodeRecord, error) {
	var rec entity.CodeRecord
	var expires sql.NullTime
	if err := row.Scan(
		&rec.Seq,
		&rec.Id,
		&rec.InsertedAt,
		&rec.ReceivedAt,
		&rec.Code,
		&rec.Denomination,
		&rec.UsageOrdinal,
		&expires,
		&rec.Used,
	); err != nil {
		return nil, err
	}
	if expires.Valid {
		rec.ExpiresAt = expires.Time
	}
	return &rec, nil
}

func (s *MySql) query(ctx context.Context, stmt *sql.Stmt, args ...any) ([]*entity.CodeRecord, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("sql query: %w", err)
	}
	defer rows.Close()

	var records []*entity.CodeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sql scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// inTx runs fn in a transaction, rolling back when it fails.
func (s *MySql) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *MySql) Append(ctx context.Context, records []*entity.CodeRecord) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := s.stmtInsertCode()
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		insert := tx.StmtContext(ctx, stmt)
		for _, rec := range records {
			id := rec.Id
			if id == "" {
				id = uuid.NewString()
			}
			if _, err := insert.ExecContext(ctx,
				id,
				rec.InsertedAt.UTC(),
				rec.ReceivedAt.UTC(),
				rec.Code,
				rec.Denomination,
				rec.UsageOrdinal,
				nullTime(rec.ExpiresAt),
				rec.Used,
			); err != nil {
				return fmt.Errorf("insert code: %w", err)
			}
		}
		return nil
	})
}

func (s *MySql) Records(ctx context.Context) ([]*entity.CodeRecord, error) {
	stmt, err := s.stmtSelectCodes()
	if err != nil {
		return nil, err
	}
	return s.query(ctx, stmt)
}

func (s *MySql) Deduplicate(ctx context.Context) (int, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return 0, err
	}
	dup := ledger.DuplicateIndexes(records)
	if len(dup) == 0 {
		return 0, nil
	}
	stmt, err := s.stmtDeleteCode()
	if err != nil {
		return 0, err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		del := tx.StmtContext(ctx, stmt)
		for _, i := range dup {
			if _, err := del.ExecContext(ctx, records[i].Id); err != nil {
				return fmt.Errorf("delete duplicate: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(dup), nil
}

func (s *MySql) RefreshPresentation(ctx context.Context) error {
	wipe, err := s.stmtDeleteRules()
	if err != nil {
		return err
	}
	insert, err := s.stmtInsertRule()
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.StmtContext(ctx, wipe).ExecContext(ctx); err != nil {
			return fmt.Errorf("clear rules: %w", err)
		}
		add := tx.StmtContext(ctx, insert)
		for i, rule := range ledger.PresentationRules() {
			if _, err := add.ExecContext(ctx, i, rule.Name, rule.Column, rule.Operator, rule.Value, rule.Background); err != nil {
				return fmt.Errorf("insert rule: %w", err)
			}
		}
		return nil
	})
}

func (s *MySql) PresentationRules(ctx context.Context) ([]entity.FormatRule, error) {
	stmt, err := s.stmtSelectRules()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sql query: %w", err)
	}
	defer rows.Close()

	var rules []entity.FormatRule
	for rows.Next() {
		var rule entity.FormatRule
		if err = rows.Scan(&rule.Name, &rule.Column, &rule.Operator, &rule.Value, &rule.Background); err != nil {
			return nil, fmt.Errorf("sql scan: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// QueryBestUnused compares the prefix as a literal string and leaves the
// ordering to the shared ledger rule.
func (s *MySql) QueryBestUnused(ctx context.Context, prefix string) (*entity.CodeRecord, error) {
	stmt, err := s.stmtSelectUnusedByPrefix()
	if err != nil {
		return nil, err
	}
	records, err := s.query(ctx, stmt, prefix, prefix)
	if err != nil {
		return nil, err
	}
	return ledger.BestUnused(records, prefix), nil
}

func (s *MySql) QueryUnusedSummary(ctx context.Context) ([]entity.DenominationCount, error) {
	stmt, err := s.stmtUnusedSummary()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sql query: %w", err)
	}
	defer rows.Close()

	var summary []entity.DenominationCount
	for rows.Next() {
		var item entity.DenominationCount
		if err = rows.Scan(&item.Denomination, &item.Count); err != nil {
			return nil, fmt.Errorf("sql scan: %w", err)
		}
		summary = append(summary, item)
	}
	return summary, rows.Err()
}

func (s *MySql) MarkUsed(ctx context.Context, code string) error {
	stmt, err := s.stmtMarkUsed()
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, code)
	if err != nil {
		return fmt.Errorf("sql mark used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sql mark used: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark used %s: %w", code, ledger.ErrNotFound)
	}
	return nil
}
