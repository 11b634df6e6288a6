package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"casecraft_echo/internal/app"
	"casecraft_echo/internal/config"
	"casecraft_echo/internal/models"
	"casecraft_echo/internal/repository"
	"casecraft_echo/internal/services"
	"casecraft_echo/internal/tasks"
)

func main() {
	cliApp := &cli.App{
		Name:  "schedule_task",
		Usage: "enqueue scheduled tasks for the worker",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "path to the .env file"},
		},
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "create a task row",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "task_name", Required: true, Usage: "name of a registered task"},
					&cli.StringFlag{Name: "arguments", Value: "{}", Usage: "JSON arguments for the task"},
					&cli.StringFlag{Name: "due", Usage: "due time, RFC3339 or 2006-01-02 15:04 (local); defaults to now"},
					&cli.StringFlag{Name: "tasktype", Value: string(models.ScheduledTaskTypeOneTime), Usage: "onetime or recurring"},
					&cli.StringFlag{Name: "recurring", Usage: "RRULE for recurring tasks, e.g. FREQ=MINUTELY;INTERVAL=5"},
					&cli.IntFlag{Name: "max_attempt", Value: 3},
				},
				Action: addTask,
			},
			{
				Name:  "sync-order",
				Usage: "poll the payment provider for one order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "order_id", Required: true},
				},
				Action: syncOrder,
			},
			{
				Name:   "ensure-sync",
				Usage:  "schedule the recurring pending payment sweep unless one is active",
				Action: ensureSync,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("schedule_task failed")
	}
}

func openTaskRepo(c *cli.Context) (*repository.ScheduledTaskRepository, error) {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return nil, err
	}
	app.SetupLogger(cfg)
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := services.InitDB(cfg.Database.URL, false)
	if err != nil {
		return nil, fmt.Errorf("failed to connect DB: %w", err)
	}
	return repository.NewScheduledTaskRepository(db), nil
}

func addTask(c *cli.Context) error {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(c.String("arguments")), &args); err != nil {
		return fmt.Errorf("invalid JSON arguments: %w", err)
	}

	due, err := parseDue(c.String("due"), time.Now())
	if err != nil {
		return err
	}

	taskType := models.ScheduledTaskType(c.String("tasktype"))
	var recurring *string
	if rule := c.String("recurring"); rule != "" {
		recurring = &rule
	}
	if taskType == models.ScheduledTaskTypeRecurring && recurring == nil {
		return errors.New("recurring tasks need --recurring")
	}

	task, err := tasks.BuildScheduledTask(c.String("task_name"), args, due, recurring, taskType, c.Int("max_attempt"))
	if err != nil {
		return err
	}
	return create(c, task)
}

func syncOrder(c *cli.Context) error {
	orderID, err := uuid.Parse(c.String("order_id"))
	if err != nil {
		return fmt.Errorf("invalid order_id: %w", err)
	}
	task, err := tasks.NewSyncOrderPaymentTask(nil).CreateTask(orderID, time.Now())
	if err != nil {
		return err
	}
	return create(c, task)
}

func ensureSync(c *cli.Context) error {
	repo, err := openTaskRepo(c)
	if err != nil {
		return err
	}
	task, err := app.SyncTask(time.Now())
	if err != nil {
		return err
	}
	created, err := repo.EnsureActive(c.Context, task)
	if err != nil {
		return err
	}
	if !created {
		fmt.Println("An active sync_pending_payments task already exists")
		return nil
	}
	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	return nil
}

func create(c *cli.Context, task *models.ScheduledTask) error {
	repo, err := openTaskRepo(c)
	if err != nil {
		return err
	}
	if err := repo.Create(c.Context, task); err != nil {
		return err
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
	return nil
}

// parseDue accepts RFC3339 or a local "2006-01-02 15:04" time. Empty means now.
func parseDue(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if due, err := time.Parse(time.RFC3339, s); err == nil {
		return due, nil
	}
	due, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date format, use '2006-01-02 15:04' (local) or RFC3339: %w", err)
	}
	return due, nil
}
