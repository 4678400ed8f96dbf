package database

import (
	"database/sql"
	"fmt"
)

func schema(prefix string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s%s (
			seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(36) NOT NULL,
			inserted_at DATETIME(6) NOT NULL,
			received_at DATETIME(6) NOT NULL,
			code VARCHAR(32) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			denomination VARCHAR(64) NOT NULL,
			usage_ordinal INT NOT NULL,
			expires_at DATETIME NULL,
			used TINYINT(1) NOT NULL DEFAULT 0,
			UNIQUE KEY uk_id (id),
			KEY idx_code_used (code, used)
		) DEFAULT CHARSET=utf8mb4`, prefix, tableCodes),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s%s (
			position INT NOT NULL PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			column_name VARCHAR(32) NOT NULL,
			operator VARCHAR(16) NOT NULL,
			value VARCHAR(64) NOT NULL,
			background VARCHAR(16) NOT NULL
		) DEFAULT CHARSET=utf8mb4`, prefix, tableRules),
	}
}

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *MySql) stmtInsertCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s%s (id, inserted_at, received_at, code, denomination, usage_ordinal, expires_at, used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.prefix, tableCodes)
	return s.prepareStmt("insertCode", query)
}

func (s *MySql) stmtSelectCodes() (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY seq`, codeColumns, s.prefix, tableCodes)
	return s.prepareStmt("selectCodes", query)
}

// prefix compared as a literal: LIKE would treat % and _ as wildcards
func (s *MySql) stmtSelectUnusedByPrefix() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s%s
		WHERE used = 0 AND LEFT(denomination, CHAR_LENGTH(?)) = ?
		ORDER BY seq`,
		codeColumns, s.prefix, tableCodes)
	return s.prepareStmt("selectUnusedByPrefix", query)
}

func (s *MySql) stmtDeleteCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(`DELETE FROM %s%s WHERE id = ?`, s.prefix, tableCodes)
	return s.prepareStmt("deleteCode", query)
}

func (s *MySql) stmtUnusedSummary() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT denomination, COUNT(*) FROM %s%s
		WHERE used = 0
		GROUP BY denomination
		ORDER BY MIN(seq)`,
		s.prefix, tableCodes)
	return s.prepareStmt("unusedSummary", query)
}

func (s *MySql) stmtMarkUsed() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %s%s SET used = 1
		WHERE code = ? AND used = 0
		ORDER BY seq
		LIMIT 1`,
		s.prefix, tableCodes)
	return s.prepareStmt("markUsed", query)
}

func (s *MySql) stmtDeleteRules() (*sql.Stmt, error) {
	query := fmt.Sprintf(`DELETE FROM %s%s`, s.prefix, tableRules)
	return s.prepareStmt("deleteRules", query)
}

func (s *MySql) stmtInsertRule() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s%s (position, name, column_name, operator, value, background) VALUES (?, ?, ?, ?, ?, ?)`,
		s.prefix, tableRules)
	return s.prepareStmt("insertRule", query)
}

func (s *MySql) stmtSelectRules() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT name, column_name, operator, value, background FROM %s%s ORDER BY position`,
		s.prefix, tableRules)
	return s.prepareStmt("selectRules", query)
}
