package clickhouse

import (
	"context"
	"fmt"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

// VerdictStore implements storage.VerdictStore using ClickHouse.
type VerdictStore struct {
	conn *Conn
}

// NewVerdictStore creates a new VerdictStore.
func NewVerdictStore(conn *Conn) *VerdictStore {
	return &VerdictStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VerdictStore = (*VerdictStore)(nil)

const verdictColumns = `run_id, coin_id, mint_address, stage, accepted, reason,
	rug_pull, pump, tier1, cex_listed, bundled_supply, evaluated_at`

// InsertBulk appends verdicts in a single batch.
func (s *VerdictStore) InsertBulk(ctx context.Context, verdicts []*domain.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}
	for _, v := range verdicts {
		if v == nil || v.RunID == "" || v.MintAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO classification_verdicts ("+verdictColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, v := range verdicts {
		err = batch.Append(
			v.RunID, v.CoinID, v.MintAddress, string(v.Stage),
			boolToUint8(v.Accepted), v.Reason,
			boolToUint8(v.Flags.RugPull), boolToUint8(v.Flags.Pump),
			boolToUint8(v.Flags.Tier1), boolToUint8(v.Flags.CEXListed),
			boolToUint8(v.BundledSupply), v.EvaluatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves verdicts of one pass ordered by coin_id ASC.
func (s *VerdictStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Verdict, error) {
	query := `SELECT ` + verdictColumns + `
		FROM classification_verdicts
		WHERE run_id = ?
		ORDER BY coin_id ASC`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanVerdicts(rows)
}

// GetByMint retrieves every verdict for a mint ordered by evaluated_at ASC.
func (s *VerdictStore) GetByMint(ctx context.Context, mint string) ([]*domain.Verdict, error) {
	query := `SELECT ` + verdictColumns + `
		FROM classification_verdicts
		WHERE mint_address = ?
		ORDER BY evaluated_at ASC, run_id ASC`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanVerdicts(rows)
}

func scanVerdicts(rows chRows) ([]*domain.Verdict, error) {
	var verdicts []*domain.Verdict

	for rows.Next() {
		var v domain.Verdict
		var stage string
		var accepted, rugPull, pump, tier1, cexListed, bundled uint8

		err := rows.Scan(
			&v.RunID, &v.CoinID, &v.MintAddress, &stage, &accepted, &v.Reason,
			&rugPull, &pump, &tier1, &cexListed, &bundled, &v.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verdict row: %w", err)
		}

		v.Stage = domain.Stage(stage)
		v.Accepted = accepted == 1
		v.Flags = domain.Classification{
			RugPull:   rugPull == 1,
			Pump:      pump == 1,
			Tier1:     tier1 == 1,
			CEXListed: cexListed == 1,
		}
		v.BundledSupply = bundled == 1
		verdicts = append(verdicts, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdict rows: %w", err)
	}

	return verdicts, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// chRows is the part of driver.Rows that scanVerdicts reads.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}
