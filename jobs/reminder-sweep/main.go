package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskflow-app/taskflow-backend/pkg/reminders"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/escalation"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/sweep"
)

func main() {
	if conf.SweepConfigs.CronSchedule != "" {
		runAsDaemon()
		return
	}

	runEnabledTasks()
}

// runAsDaemon keeps the job alive and runs the enabled tasks on the configured
// cron schedule until the process receives a termination signal.
func runAsDaemon() {
	slog.Info("Starting reminder sweep daemon", slog.String("schedule", conf.SweepConfigs.CronSchedule))

	scheduler := cron.New()
	_, err := scheduler.AddFunc(conf.SweepConfigs.CronSchedule, runEnabledTasks)
	if err != nil {
		slog.Error("Invalid cron schedule", slog.String("schedule", conf.SweepConfigs.CronSchedule), slog.String("error", err.Error()))
		panic(err)
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Stopping reminder sweep daemon")
	<-scheduler.Stop().Done()
}

func runEnabledTasks() {
	slog.Info("Starting reminder sweep job")
	start := time.Now()

	var wg sync.WaitGroup

	if conf.RunTasks.ProcessDueReminders {
		wg.Add(1)
		go handleDueReminders(&wg)
	}

	if conf.RunTasks.ProcessEscalations {
		wg.Add(1)
		go handleEscalations(&wg)
	}

	if conf.RunTasks.CleanupExpired {
		wg.Add(1)
		go handleExpiredReminders(&wg)
	}

	wg.Wait()
	slog.Info("Reminder sweep job completed", slog.String("duration", time.Since(start).String()))
}

func handleDueReminders(wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Info("Start processing due reminders")

	for _, instanceID := range conf.InstanceIDs {
		slog.Debug("Start processing due reminders for instance", slog.String("instanceID", instanceID))

		sweepRunner := sweep.New(
			reminderDBService,
			newDispatcherForInstance(instanceID),
			predicateRegistry,
			sweep.Config{
				BatchSize:             conf.SweepConfigs.BatchSize,
				WorkerCount:           conf.SweepConfigs.WorkerCount,
				ClaimDuration:         conf.SweepConfigs.ClaimDuration,
				ConditionRecheckDelay: conf.SweepConfigs.ConditionRecheckDelay,
			},
		)

		summary, err := sweepRunner.RunSweep(context.Background(), instanceID, time.Now())
		if err != nil {
			slog.Error("Failed to run reminder sweep for instance", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
			continue
		}
		slog.Info("Finished processing due reminders for instance",
			slog.String("instanceID", instanceID),
			slog.Int("processed", summary.ProcessedCount),
			slog.Int("skipped", summary.SkippedCount),
			slog.Int("failures", len(summary.Failures)))
	}
}

func handleEscalations(wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Info("Start processing escalations")

	for _, instanceID := range conf.InstanceIDs {
		slog.Debug("Start processing escalations for instance", slog.String("instanceID", instanceID))

		runner := sweep.NewEscalationRunner(
			reminderDBService,
			escalation.NewHandler(newDispatcherForInstance(instanceID)),
		)

		fired, err := runner.Run(context.Background(), instanceID, time.Now())
		if err != nil {
			slog.Error("Failed to run escalation pass for instance", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
			continue
		}
		slog.Info("Finished processing escalations for instance",
			slog.String("instanceID", instanceID),
			slog.Int("firedSteps", fired))
	}
}

func handleExpiredReminders(wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Info("Start cleaning up expired reminders")

	for _, instanceID := range conf.InstanceIDs {
		count, err := reminders.CleanupExpiredReminders(instanceID, time.Now())
		if err != nil {
			slog.Error("Failed to clean up expired reminders for instance", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Finished cleaning up expired reminders for instance",
			slog.String("instanceID", instanceID),
			slog.Int64("count", count))
	}
}
