package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradedesk/internal/api"
	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/logging"
	"tradedesk/internal/models"
)

// Resyncer re-derives the canonical row set after a generation cycle
// completes. *Synchronizer satisfies it.
type Resyncer interface {
	Resync(ctx context.Context) error
}

// GenerationConfig holds generation job configuration.
type GenerationConfig struct {
	// PollInterval is the status polling interval.
	PollInterval time.Duration
	// Timeout is the wall-clock limit from Start; once exceeded the
	// poll timer stops and the job is reported timed out. No
	// cancellation is sent to the server.
	Timeout time.Duration
}

// DefaultGenerationConfig returns the default generation configuration.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		PollInterval: 3 * time.Second,
		Timeout:      5 * time.Minute,
	}
}

// GenerationController owns the process-wide generation job slot and
// drives a server-side recommendation generation job through trigger,
// bounded polling and resynchronization. At most one job is active;
// Start while a job holds the slot is rejected, never queued.
type GenerationController struct {
	client api.Client
	resync Resyncer
	sched  Scheduler
	config GenerationConfig
	logger zerolog.Logger

	mu   sync.Mutex
	job  models.GenerationJob
	done chan struct{}
}

// NewGenerationController creates a new generation controller.
func NewGenerationController(client api.Client, resync Resyncer, sched Scheduler, cfg GenerationConfig, logger zerolog.Logger) *GenerationController {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultGenerationConfig().PollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGenerationConfig().Timeout
	}
	done := make(chan struct{})
	close(done)
	return &GenerationController{
		client: client,
		resync: resync,
		sched:  sched,
		config: cfg,
		logger: logging.WithComponent(logger, "generation"),
		job:    models.GenerationJob{State: models.JobIdle},
		done:   done,
	}
}

// Job returns a copy of the current job slot.
func (g *GenerationController) Job() models.GenerationJob {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.job
}

// Done returns a channel closed when the current job reaches a terminal
// condition. Already closed when no job is active.
func (g *GenerationController) Done() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// Start triggers a generation job for the given symbols and begins
// polling in the background. Rejected with ErrNoSymbols for an empty
// symbol list and ErrJobActive while another job holds the slot. A
// trigger failure releases the slot immediately and is surfaced to the
// caller, not retried.
func (g *GenerationController) Start(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return apperrors.ErrNoSymbols
	}

	g.mu.Lock()
	if g.job.State != models.JobIdle {
		g.mu.Unlock()
		return apperrors.ErrJobActive
	}
	g.job = models.GenerationJob{State: models.JobGenerating}
	g.mu.Unlock()

	// The wall clock starts here, before the trigger request, so a slow
	// trigger eats into the deadline instead of extending it.
	timeout, stopTimeout := g.sched.After(g.config.Timeout)

	if err := g.client.TriggerGeneration(ctx, symbols); err != nil {
		stopTimeout()
		g.finishLocked(models.JobFailed, err.Error(), nil)
		return apperrors.Wrap(err, "triggering generation")
	}

	done := make(chan struct{})
	g.mu.Lock()
	g.job.State = models.JobPolling
	g.done = done
	g.mu.Unlock()

	g.logger.Info().Int("symbols", len(symbols)).Msg("Generation job started, polling")
	go g.pollLoop(ctx, done, timeout, stopTimeout)
	return nil
}

// pollLoop polls the server status until a terminal status, the
// wall-clock timeout, or context cancellation.
func (g *GenerationController) pollLoop(ctx context.Context, done chan struct{}, timeout <-chan time.Time, stopTimeout func()) {
	tick, stopTick := g.sched.Tick(g.config.PollInterval)
	defer stopTick()
	defer stopTimeout()

	for {
		select {
		case <-ctx.Done():
			g.logger.Warn().Err(ctx.Err()).Msg("Generation polling cancelled")
			g.finishLocked(models.JobIdle, "", done)
			return

		case <-timeout:
			// The server job may still be running; fire-and-forget.
			g.logger.Warn().Dur("timeout", g.config.Timeout).Msg("Generation job timed out")
			g.finishLocked(models.JobTimedOut, "", done)
			return

		case <-tick:
			status, err := g.client.FetchGenerationStatus(ctx)
			if err != nil {
				// A transient poll failure does not stop the timer.
				g.logger.Warn().Err(err).Msg("Generation status poll failed")
				continue
			}

			switch status.Status {
			case models.GenerationStatusCompleted:
				g.logger.Info().Msg("Generation completed, resynchronizing")
				if err := g.resync.Resync(ctx); err != nil {
					g.logger.Error().Err(err).Msg("Post-generation resync failed")
				}
				g.finishLocked(models.JobCompleted, "", done)
				return

			case models.GenerationStatusFailed:
				g.logger.Error().Str("error", status.ErrMessage).Msg("Generation failed")
				g.finishLocked(models.JobFailed, status.ErrMessage, done)
				return

			case models.GenerationStatusIdle:
				// Server reports no active job; nothing left to poll.
				g.logger.Warn().Msg("Server reports no active generation job")
				g.finishLocked(models.JobIdle, "", done)
				return

			default:
				// Still in progress, keep polling.
			}
		}
	}
}

// finishLocked releases the job slot, recording the terminal condition,
// and closes done when provided.
func (g *GenerationController) finishLocked(outcome models.JobState, errMessage string, done chan struct{}) {
	g.mu.Lock()
	g.job = models.GenerationJob{
		State:       models.JobIdle,
		LastOutcome: outcome,
		ErrMessage:  errMessage,
	}
	g.mu.Unlock()
	if done != nil {
		close(done)
	}
}
