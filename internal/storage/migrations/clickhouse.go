package migrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	chstore "solana-transfer-operator/internal/storage/clickhouse"
)

// ErrUnsafeStatement is returned when a migration cannot be split safely.
var ErrUnsafeStatement = errors.New("semicolon inside string literal")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ApplyClickHouse creates the database named in dsn if needed, applies every
// embedded ClickHouse migration, and returns a connection to that database.
// ClickHouse statements are idempotent (IF NOT EXISTS) so no version table
// is kept.
func ApplyClickHouse(ctx context.Context, dsn string) (*chstore.Conn, error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	scripts, err := load("clickhouse")
	if err != nil {
		return nil, err
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+db)
	admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", db, err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", db, err)
	}

	for _, s := range scripts {
		stmts, err := splitStatements(s.body)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("migration %s: %w", s.name, err)
		}
		// The native protocol rejects multi-statement Exec.
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", s.name, err)
			}
		}
	}
	return conn, nil
}

// splitStatements drops -- comment lines and splits on semicolons.
// Semicolons inside single-quoted literals are rejected rather than parsed.
func splitStatements(body string) ([]string, error) {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	joined := strings.Join(kept, "\n")

	inQuote := false
	for i := 0; i < len(joined); i++ {
		switch joined[i] {
		case '\'':
			if inQuote && i+1 < len(joined) && joined[i+1] == '\'' {
				i++
				continue
			}
			inQuote = !inQuote
		case ';':
			if inQuote {
				return nil, ErrUnsafeStatement
			}
		}
	}

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	if !identRe.MatchString(db) {
		return "", fmt.Errorf("invalid clickhouse database name %q", db)
	}
	return db, nil
}
