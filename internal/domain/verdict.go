package domain

import "time"

// Stage names the gate that produced a verdict.
type Stage string

const (
	StageRiskReport      Stage = "risk_report"
	StageBlacklist       Stage = "blacklist"
	StageThreshold       Stage = "threshold"
	StageSyntheticVolume Stage = "synthetic_volume"
	StageClassified      Stage = "classified" // passed every gate
	StageFailed          Stage = "failed"     // processing error, flags untouched
)

// Verdict is the outcome of one coin in one classification pass.
// Corresponds to the classification_verdicts table.
type Verdict struct {
	RunID         string
	CoinID        int64
	MintAddress   string
	Stage         Stage
	Accepted      bool
	Reason        string
	Flags         Classification // zero unless Accepted
	BundledSupply bool           // side effect written during this pass
	EvaluatedAt   time.Time
}
