package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/models"
)

// TaskStore is the persistence the runner needs.
type TaskStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledTask, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	AddHistory(ctx context.Context, history *models.ScheduledTaskHistory) error
}

const (
	defaultBatchSize  = 50
	defaultRetryDelay = time.Minute
)

// Runner executes due scheduled tasks and records their history.
type Runner struct {
	store      TaskStore
	registry   *Registry
	retryDelay time.Duration
	now        func() time.Time
}

func NewRunner(store TaskStore, registry *Registry) *Runner {
	return &Runner{
		store:      store,
		registry:   registry,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
	}
}

// Run processes due tasks every interval until ctx is done. It runs once
// immediately on start.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.ProcessDue(ctx)
	for {
		select {
		case <-ticker.C:
			r.ProcessDue(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProcessDue executes every active task whose due time has passed and returns
// how many were run.
func (r *Runner) ProcessDue(ctx context.Context) int {
	pending, err := r.store.ListDue(ctx, r.now(), defaultBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("error fetching pending tasks")
		return 0
	}
	if len(pending) == 0 {
		log.Debug().Msg("no pending tasks found")
		return 0
	}

	log.Info().Int("count", len(pending)).Msg("found pending tasks")
	ran := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			break
		}
		r.execute(ctx, task)
		ran++
	}
	return ran
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) {
	logger := log.With().Uint("task_id", task.ID).Str("task_name", task.TaskName).Logger()
	attempt := task.Attempts + 1
	startTime := r.now()

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		logger.Error().Msg("task handler not found, marking as failure")
		r.record(ctx, task, startTime, 0, "handler_not_found", attempt, map[string]interface{}{"error": "handler not found"})
		r.update(ctx, task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &startTime,
			"attempts": attempt,
		})
		return
	}

	result, err := handler(ctx, task)
	runtimeMs := int(r.now().Sub(startTime).Milliseconds())

	if err != nil {
		logger.Error().Err(err).Int("attempt", attempt).Msg("task failed")
		r.record(ctx, task, startTime, runtimeMs, "failure", attempt, map[string]interface{}{"error": err.Error()})
		r.update(ctx, task, r.failureUpdates(task, attempt, startTime))
		return
	}

	logger.Info().Int("runtime_ms", runtimeMs).Msg("task completed successfully")
	r.record(ctx, task, startTime, runtimeMs, "success", attempt, result)
	r.update(ctx, task, r.successUpdates(task, startTime))
}

func (r *Runner) successUpdates(task models.ScheduledTask, ranAt time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"last_run": &ranAt,
		"attempts": 0,
		"status":   models.ScheduledTaskStatusDone,
	}
	if task.TaskType == models.ScheduledTaskTypeRecurring {
		if next := task.NextDue(ranAt); !next.IsZero() {
			updates["status"] = models.ScheduledTaskStatusActive
			updates["due"] = next
		}
	}
	return updates
}

// failureUpdates retries the task after a growing delay until MaxAttempt is
// reached. Recurring tasks that exhaust their attempts move on to the next
// occurrence instead of failing for good.
func (r *Runner) failureUpdates(task models.ScheduledTask, attempt int, ranAt time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"last_run": &ranAt,
		"attempts": attempt,
	}
	if attempt < task.MaxAttempt {
		updates["due"] = ranAt.Add(r.retryDelay * time.Duration(attempt))
		return updates
	}

	if task.TaskType == models.ScheduledTaskTypeRecurring {
		if next := task.NextDue(ranAt); !next.IsZero() {
			updates["attempts"] = 0
			updates["due"] = next
			return updates
		}
	}
	updates["status"] = models.ScheduledTaskStatusFailure
	return updates
}

func (r *Runner) record(ctx context.Context, task models.ScheduledTask, runAt time.Time, runtimeMs int, status string, attempt int, result map[string]interface{}) {
	history := &models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           runAt,
		RuntimeMs:       runtimeMs,
		Status:          status,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if err := r.store.AddHistory(ctx, history); err != nil {
		log.Error().Err(err).Uint("task_id", task.ID).Msg("failed to record task history")
	}
}

func (r *Runner) update(ctx context.Context, task models.ScheduledTask, updates map[string]interface{}) {
	if err := r.store.Update(ctx, task.ID, updates); err != nil {
		log.Error().Err(err).Uint("task_id", task.ID).Msg("failed to update task")
	}
}
