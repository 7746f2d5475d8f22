package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appbilling "github.com/fleetrent/backend/internal/application/billing"
	"github.com/fleetrent/backend/internal/infrastructure/config"
)

// DebtGenerator runs one daily generation pass
type DebtGenerator interface {
	GenerateDailyDebts(ctx context.Context, referenceDate time.Time) (*appbilling.GenerationResult, error)
}

// GenerationTriggerConfig holds configuration for the daily generation trigger
type GenerationTriggerConfig struct {
	// GenerationHour is the local hour (24h) at which debts are generated
	GenerationHour int
	// Location is the fleet's local timezone; day boundaries follow it
	Location *time.Location
	// CheckInterval is how often to check whether it is time to run
	CheckInterval time.Duration
}

// NewGenerationTriggerConfig builds trigger settings from the scheduler
// section, resolving the configured timezone
func NewGenerationTriggerConfig(cfg config.SchedulerConfig) (GenerationTriggerConfig, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return GenerationTriggerConfig{}, err
	}
	return GenerationTriggerConfig{
		GenerationHour: cfg.GenerationHour,
		Location:       loc,
		CheckInterval:  time.Minute,
	}, nil
}

// GenerationTrigger fires the daily debt generation once per local day.
// Generation itself is idempotent, so a missed or duplicated trigger is
// harmless; the lastRunDate guard only avoids redundant passes.
type GenerationTrigger struct {
	config    GenerationTriggerConfig
	generator DebtGenerator
	logger    *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewGenerationTrigger creates a new generation trigger
func NewGenerationTrigger(config GenerationTriggerConfig, generator DebtGenerator, logger *zap.Logger) *GenerationTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &GenerationTrigger{
		config:    config,
		generator: generator,
		logger:    logger,
	}
}

// Start starts the trigger loop
func (g *GenerationTrigger) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.isRunning {
		g.mu.Unlock()
		return nil
	}
	g.isRunning = true
	g.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	g.wg.Add(1)
	go g.runLoop(ctx)

	g.logger.Info("Debt generation trigger started",
		zap.Int("generation_hour", g.config.GenerationHour),
		zap.String("timezone", g.config.Location.String()),
		zap.Duration("check_interval", g.config.CheckInterval),
	)

	return nil
}

// Stop stops the trigger loop, waiting for an in-flight run to finish
func (g *GenerationTrigger) Stop(ctx context.Context) error {
	g.mu.Lock()
	if !g.isRunning {
		g.mu.Unlock()
		return nil
	}
	g.isRunning = false
	g.mu.Unlock()

	if g.cancel != nil {
		g.cancel()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info("Debt generation trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *GenerationTrigger) runLoop(ctx context.Context) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.checkAndTrigger(ctx)
		}
	}
}

func (g *GenerationTrigger) checkAndTrigger(ctx context.Context) {
	now := time.Now().In(g.config.Location)
	currentDate := now.Format("2006-01-02")

	g.mu.Lock()
	alreadyRan := g.lastRunDate == currentDate
	g.mu.Unlock()
	if alreadyRan {
		return
	}

	if now.Hour() < g.config.GenerationHour {
		return
	}

	g.mu.Lock()
	g.lastRunDate = currentDate
	g.mu.Unlock()

	g.run(ctx, now)
}

// TriggerNow runs a generation pass immediately, outside the daily schedule.
// External cron callers use this through the trigger endpoint.
func (g *GenerationTrigger) TriggerNow(ctx context.Context, referenceDate time.Time) (*appbilling.GenerationResult, error) {
	return g.generator.GenerateDailyDebts(ctx, referenceDate.In(g.config.Location))
}

func (g *GenerationTrigger) run(ctx context.Context, now time.Time) {
	g.logger.Info("Running daily debt generation", zap.String("date", now.Format("2006-01-02")))

	result, err := g.generator.GenerateDailyDebts(ctx, now)
	if err != nil {
		g.logger.Error("Daily debt generation failed", zap.Error(err))
		return
	}

	g.logger.Info("Daily debt generation finished",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
}
