package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Schedule runs a cycle on every tick of spec until ctx is cancelled.
// A tick that fires while the previous cycle still runs is skipped.
// Cycle errors are logged; only an invalid spec is returned.
func (o *Orchestrator) Schedule(ctx context.Context, spec string, mode Mode, query string) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	logger := cronLogger{o.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	cycle := 0
	_, err := c.AddFunc(spec, func() {
		cycle++
		res, err := o.Run(ctx, mode, query)
		ev := o.logger.Info()
		if err != nil && !errors.Is(err, context.Canceled) {
			ev = o.logger.Error().Err(err)
		}
		if res != nil && res.Classification != nil {
			ev = ev.Int("classified", res.Classification.Classified).
				Int("rejected", res.Classification.Rejected)
		}
		ev.Int("cycle", cycle).Str("mode", string(mode)).Msg("scheduled cycle finished")
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	o.logger.Info().Str("schedule", spec).Str("mode", string(mode)).Msg("scheduler started")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	o.logger.Info().Int("cycles", cycle).Msg("scheduler stopped")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
