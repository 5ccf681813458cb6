// File: internal/jobs/outbox_replay.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"account_agent/internal/config"
	"account_agent/internal/profile"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OutboxReplayJob periodically pushes profile writes that were saved on the
// device while the document store was unreachable.
type OutboxReplayJob struct {
	profiles      profile.Service
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewOutboxReplayJob creates a new OutboxReplayJob.
func NewOutboxReplayJob(
	profiles profile.Service,
	logger *zap.Logger,
	cfg *config.Config,
) *OutboxReplayJob {
	cl := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl)),
	)

	return &OutboxReplayJob{
		profiles:      profiles,
		logger:        logger.Named("OutboxReplayJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *OutboxReplayJob) SetupAndStart() error {
	jobSpec := j.cfg.OutboxReplaySchedule
	if jobSpec == "" {
		j.logger.Warn("Outbox replay schedule not defined (OUTBOX_REPLAY_SCHEDULE). Queued writes sync only on the next save.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, func() { j.RunOnce(context.Background()) })
	if err != nil {
		j.logger.Error("Failed to schedule outbox replay job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Outbox replay job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// RunOnce performs a single replay pass.
func (j *OutboxReplayJob) RunOnce(ctx context.Context) profile.ReplayReport {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	report := j.profiles.ReplayPending(ctx)
	if report.Replayed == 0 && report.Dropped == 0 && report.Remaining == 0 {
		j.logger.Debug("Outbox empty")
		return report
	}
	j.logger.Info("Outbox replay run completed",
		zap.Int("replayed", report.Replayed),
		zap.Int("dropped", report.Dropped),
		zap.Int("remaining", report.Remaining),
	)
	return report
}

// Stop gracefully stops the cron scheduler.
func (j *OutboxReplayJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping outbox replay scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Outbox replay scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Outbox replay scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron. They are chatty, so they go to debug.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.fields(keysAndValues...)...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(cl.fields(keysAndValues...), zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) fields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
