package migrations

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	chstore "github.com/Vladymirovich/MemeBot/internal/storage/clickhouse"
)

var databaseName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouseMigrations creates the verdict database named in dsn if needed,
// applies the verdict schema and returns a connection to that database.
// The native protocol takes one statement per Exec, so files are split.
func RunClickhouseMigrations(ctx context.Context, dsn string) (conn *chstore.Conn, err error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, db); err != nil {
		return nil, err
	}

	conn, err = chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", db, err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
			conn = nil
		}
	}()

	err = apply(ctx, dirClickhouse, true, func(ctx context.Context, stmt string) error {
		return conn.Exec(ctx, stmt)
	})
	return conn, err
}

// createDatabase runs CREATE DATABASE on a connection to the server default.
func createDatabase(ctx context.Context, dsn, db string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse server: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+db); err != nil {
		return fmt.Errorf("create database %s: %w", db, err)
	}
	return nil
}

// databaseFromDSN returns the path segment of dsn. It must be a plain
// identifier since it is spliced into DDL.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn has no database")
	}
	if !databaseName.MatchString(db) {
		return "", fmt.Errorf("clickhouse database %q is not a plain identifier", db)
	}
	return db, nil
}
