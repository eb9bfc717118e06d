package scheduler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/whoneedsawriter/platform/internal/clock"
	"github.com/whoneedsawriter/platform/internal/config"
	ledgerdomain "github.com/whoneedsawriter/platform/internal/ledger/domain"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Generation *config.GenerationConfigHolder
	LedgerSvc  ledgerdomain.Service
}

// Scheduler resets every user's free credits to the configured
// allotment on a fixed interval.
type Scheduler struct {
	log        *zap.Logger
	clock      clock.Clock
	generation *config.GenerationConfigHolder
	ledgerSvc  ledgerdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:      p.Clock,
		generation: p.Generation,
		ledgerSvc:  p.LedgerSvc,
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	cfg := s.generation.Get()

	affected, err := s.ledgerSvc.ResetFreeCredits(ctx, cfg.FreeCreditAllotment)
	if err != nil {
		return err
	}

	s.log.Info("free credits reset",
		zap.Int64("users", affected),
		zap.Float64("allotment", cfg.FreeCreditAllotment),
	)
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	for {
		// the period is re-read before every wait so a hot-reloaded
		// cadence takes effect on the next cycle
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.generation.Get().FreeCreditResetEvery):
		}
		if ctx.Err() != nil {
			return
		}

		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("free credit reset failed", zap.Error(err))
		}
	}
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Register),
)

func Register(lc fx.Lifecycle, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
