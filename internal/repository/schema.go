package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"regexp"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Dialect SQL flavour of the backing database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectForDriver maps a database/sql driver name to its dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $N placeholders for drivers that only take "?".
// Queries in this package use each $N once and in ascending order.
func (d Dialect) Rebind(q string) string {
	if d != DialectSQLite {
		return q
	}
	return placeholderRe.ReplaceAllString(q, "?")
}

// Schema returns the DDL for the dialect.
func Schema(d Dialect) (string, error) {
	b, err := schemaFS.ReadFile("schema/" + string(d) + ".sql")
	if err != nil {
		return "", fmt.Errorf("schema for dialect %q: %w", d, err)
	}
	return string(b), nil
}

// SplitStatements drops "--" comment lines and splits the script on ';'.
func SplitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	out := []string{}
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Migrate applies the embedded schema. Every statement is idempotent (IF NOT EXISTS).
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	script, err := Schema(d)
	if err != nil {
		return err
	}
	for i, stmt := range SplitStatements(script) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
