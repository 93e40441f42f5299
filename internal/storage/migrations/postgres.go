package migrations

import (
	"context"

	"github.com/Vladymirovich/MemeBot/internal/storage/postgres"
)

// RunPostgresMigrations creates the coins table and its indexes.
// Each file is sent as one multi-statement Exec.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	return apply(ctx, dirPostgres, false, func(ctx context.Context, stmt string) error {
		_, err := pool.Exec(ctx, stmt)
		return err
	})
}
