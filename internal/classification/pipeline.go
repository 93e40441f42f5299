// Package classification runs the per-coin gate chain and writes the
// resulting flags back to the coin store.
package classification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/observability"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

// ErrPanic wraps a panic recovered while processing one coin.
var ErrPanic = errors.New("panic while classifying")

// ReportFetcher returns the risk report of a mint.
// rugcheck.Client and rugcheck.CachingFetcher satisfy it.
type ReportFetcher interface {
	Report(ctx context.Context, mint string) (*domain.RiskReport, error)
}

// RunResult summarizes one classification pass.
type RunResult struct {
	RunID           string
	Evaluated       int
	Classified      int
	Rejected        int
	Failed          int
	RejectedByStage map[domain.Stage]int
	BundledFlagged  int
	Duration        time.Duration
}

// Pipeline evaluates every stored coin against the gate chain:
// risk report, blacklist, thresholds, synthetic volume, then classifiers.
type Pipeline struct {
	store              storage.CoinStore
	verdicts           storage.VerdictStore
	fetcher            ReportFetcher
	blacklist          *Blacklist
	thresholds         Thresholds
	concentrationRisks []string
	classifiers        Classifiers
	now                func() time.Time
	logger             zerolog.Logger
}

// PipelineOptions contains configuration for creating a Pipeline.
type PipelineOptions struct {
	Store    storage.CoinStore
	Verdicts storage.VerdictStore // optional
	Fetcher  ReportFetcher

	Blacklist  *Blacklist
	Thresholds Thresholds
	// ConcentrationRisks are risk names that mark a coin's supply as bundled.
	ConcentrationRisks []string
	Classifiers        Classifiers

	Now    func() time.Time // default: time.Now
	Logger *zerolog.Logger  // nil: no logging
}

// NewPipeline creates a new classification pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	blacklist := opts.Blacklist
	if blacklist == nil {
		blacklist = NewBlacklist(nil, nil)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Pipeline{
		store:              opts.Store,
		verdicts:           opts.Verdicts,
		fetcher:            opts.Fetcher,
		blacklist:          blacklist,
		thresholds:         opts.Thresholds,
		concentrationRisks: opts.ConcentrationRisks,
		classifiers:        opts.Classifiers,
		now:                now,
		logger:             logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run performs one pass over a snapshot of all coins. Coins written while the
// pass runs are picked up by the next one. A failure on one coin is logged and
// counted and the pass continues. Only a failed snapshot read or cancellation
// returns an error.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		RunID:           uuid.NewString(),
		RejectedByStage: make(map[domain.Stage]int),
	}
	logger := p.logger.With().Str("run_id", result.RunID).Logger()

	coins, err := p.store.ListAll(ctx)
	if err != nil {
		observability.RecordPipelineRun("error", time.Since(start))
		return result, fmt.Errorf("list coins: %w", err)
	}
	logger.Info().Int("coins", len(coins)).Msg("classification pass started")

	verdicts := make([]*domain.Verdict, 0, len(coins))
	for _, coin := range coins {
		if err := ctx.Err(); err != nil {
			p.appendVerdicts(context.WithoutCancel(ctx), verdicts, logger)
			result.Duration = time.Since(start)
			observability.RecordPipelineRun("cancelled", result.Duration)
			return result, err
		}

		v := p.evaluateSafe(ctx, coin, logger)
		v.RunID = result.RunID
		verdicts = append(verdicts, v)

		result.Evaluated++
		if v.BundledSupply {
			result.BundledFlagged++
		}
		switch {
		case v.Stage == domain.StageFailed:
			result.Failed++
		case v.Accepted:
			result.Classified++
		default:
			result.Rejected++
			result.RejectedByStage[v.Stage]++
		}
		observability.RecordVerdict(string(v.Stage))
	}

	p.appendVerdicts(ctx, verdicts, logger)

	result.Duration = time.Since(start)
	observability.RecordPipelineRun("success", result.Duration)
	logger.Info().
		Int("evaluated", result.Evaluated).
		Int("classified", result.Classified).
		Int("rejected", result.Rejected).
		Int("failed", result.Failed).
		Int("bundled", result.BundledFlagged).
		Dur("duration", result.Duration).
		Msg("classification pass complete")
	return result, nil
}

// evaluateSafe confines errors and panics to one coin.
func (p *Pipeline) evaluateSafe(ctx context.Context, c *domain.Coin, logger zerolog.Logger) (v *domain.Verdict) {
	v = &domain.Verdict{
		CoinID:      c.ID,
		MintAddress: c.MintAddress,
	}
	defer func() {
		if r := recover(); r != nil {
			p.fail(v, fmt.Errorf("%w: %v", ErrPanic, r), logger)
		}
		v.EvaluatedAt = p.now().UTC()
	}()

	if err := p.evaluate(ctx, c, v, logger); err != nil {
		p.fail(v, err, logger)
	}
	return v
}

func (p *Pipeline) fail(v *domain.Verdict, err error, logger zerolog.Logger) {
	v.Stage = domain.StageFailed
	v.Accepted = false
	v.Flags = domain.Classification{}
	v.Reason = err.Error()
	logger.Error().Err(err).Str("mint", v.MintAddress).Msg("coin processing failed")
}

// evaluate runs the gates in order and stops at the first rejection.
// It fills v; a returned error marks the coin as failed.
func (p *Pipeline) evaluate(ctx context.Context, c *domain.Coin, v *domain.Verdict, logger zerolog.Logger) error {
	reject := func(stage domain.Stage, reason string) error {
		v.Stage = stage
		v.Reason = reason
		logger.Info().
			Str("mint", c.MintAddress).
			Str("symbol", c.DisplaySymbol()).
			Str("stage", string(stage)).
			Str("reason", reason).
			Msg("coin rejected")
		return nil
	}

	// Gate 1: risk report. Unavailable means rejected.
	report, err := p.fetcher.Report(ctx, c.MintAddress)
	if err != nil {
		return reject(domain.StageRiskReport, "risk report unavailable: "+err.Error())
	}

	// Bundled supply is recorded whatever this gate decides.
	if report.HasRiskNamed(p.concentrationRisks) {
		if err := p.store.SetBundledSupply(ctx, c.ID, true); err != nil {
			logger.Warn().Err(err).Str("mint", c.MintAddress).Msg("set bundled supply failed")
		} else {
			v.BundledSupply = true
			observability.RecordBundledFlagged()
		}
	}

	if reason := CheckRiskReport(report); reason != "" {
		return reject(domain.StageRiskReport, reason)
	}

	// Gate 2: blacklist.
	if p.blacklist.IsTokenBlacklisted(c.MintAddress) {
		return reject(domain.StageBlacklist, "token is blacklisted")
	}

	// Gate 3: thresholds.
	if reason := CheckThresholds(c, p.thresholds); reason != "" {
		return reject(domain.StageThreshold, reason)
	}

	// Gate 4: synthetic volume.
	if fake, reason := HasFakeVolume(c, p.thresholds); fake {
		return reject(domain.StageSyntheticVolume, reason)
	}

	flags, err := p.classifiers.Compute(ctx, c)
	if err != nil {
		return err
	}
	if err := p.store.UpdateClassification(ctx, c.ID, flags); err != nil {
		return fmt.Errorf("update classification: %w", err)
	}

	v.Stage = domain.StageClassified
	v.Accepted = true
	v.Flags = flags
	logger.Debug().
		Str("mint", c.MintAddress).
		Bool("rug_pull", flags.RugPull).
		Bool("pump", flags.Pump).
		Bool("tier1", flags.Tier1).
		Bool("cex_listed", flags.CEXListed).
		Msg("coin classified")
	return nil
}

// appendVerdicts writes the pass's verdicts. A failure is logged only.
func (p *Pipeline) appendVerdicts(ctx context.Context, verdicts []*domain.Verdict, logger zerolog.Logger) {
	if p.verdicts == nil || len(verdicts) == 0 {
		return
	}
	if err := p.verdicts.InsertBulk(ctx, verdicts); err != nil {
		logger.Warn().Err(err).Int("verdicts", len(verdicts)).Msg("append verdicts failed")
	}
}
