// Package migrations holds the embedded schema of the coin store (postgres)
// and the verdict log (ClickHouse) and applies it at startup.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var schemaFS embed.FS

const (
	dirPostgres   = "postgres"
	dirClickhouse = "clickhouse"
)

// schemaFile is one embedded .sql file.
type schemaFile struct {
	name string
	sql  string
}

// load returns the non-blank .sql files under dir in lexical order.
// Files are numbered (001_, 002_, ...) so lexical order is apply order.
func load(dir string) ([]schemaFile, error) {
	entries, err := fs.ReadDir(schemaFS, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s schema: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]schemaFile, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(schemaFS, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", dir, name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		files = append(files, schemaFile{name: name, sql: string(data)})
	}
	return files, nil
}

// apply runs every file of dir through exec. With split set each file is cut
// into single statements first. All schema files must be idempotent.
func apply(ctx context.Context, dir string, split bool, exec func(context.Context, string) error) error {
	files, err := load(dir)
	if err != nil {
		return err
	}

	for _, f := range files {
		stmts := []string{f.sql}
		if split {
			if stmts, err = splitStatements(f.sql); err != nil {
				return fmt.Errorf("split %s: %w", f.name, err)
			}
		}
		for _, stmt := range stmts {
			if err := exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", f.name, err)
			}
		}
	}
	return nil
}

// splitStatements cuts sql at semicolons outside single-quoted literals and
// drops "--" line comments. A literal left open is an error.
func splitStatements(sql string) ([]string, error) {
	var (
		stmts   []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inQuote:
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
					continue
				}
				inQuote = false
			}
		case ch == '\'':
			inQuote = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated string literal")
	}
	flush()
	return stmts, nil
}
