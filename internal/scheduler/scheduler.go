package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/go-co-op/gocron/v2"
)

type taskFn func(ctx context.Context) error

type RateService interface {
	FillExchangeRateCache(ctx context.Context) error
}

type PerformanceService interface {
	GenerateMonthly(ctx context.Context) error
	DeleteOldReports(ctx context.Context) error
}

// job is one periodic back-office task.
type job struct {
	name       string
	definition gocron.JobDefinition
	task       taskFn
	immediate  bool
}

type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() *Scheduler {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		panic(fmt.Sprintf("create scheduler: %s", err))
	}
	return &Scheduler{scheduler: s}
}

// RegisterJobs schedules the exchange-rate refresh, the monthly fund
// snapshots and, with cloud storage enabled, the report cleanup.
func (s *Scheduler) RegisterJobs(cfg *config.Config, rates RateService, performance PerformanceService, withReportCleanup bool) {
	for _, j := range backofficeJobs(cfg, rates, performance, withReportCleanup) {
		s.add(j)
	}
}

func backofficeJobs(cfg *config.Config, rates RateService, performance PerformanceService, withReportCleanup bool) []job {
	jobs := []job{
		{
			name:       "fillExchangeRateCache",
			definition: gocron.DurationJob(cfg.Jobs.FillExchangeRateCacheInterval),
			task:       rates.FillExchangeRateCache,
			immediate:  true,
		},
		{
			name:       "generateFundSnapshots",
			definition: gocron.CronJob(cfg.Jobs.FundSnapshotsCrontab, true),
			task:       performance.GenerateMonthly,
		},
	}
	if withReportCleanup {
		jobs = append(jobs, job{
			name:       "deleteOldReports",
			definition: gocron.CronJob(cfg.Jobs.DeleteOldReportsCrontab, true),
			task:       performance.DeleteOldReports,
		})
	}
	return jobs
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("scheduler shutdown failed", slog.String("err", err.Error()))
	}
}

func (s *Scheduler) add(j job) {
	opts := []gocron.JobOption{
		gocron.WithName(j.name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if j.immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	if _, err := s.scheduler.NewJob(j.definition, gocron.NewTask(runJob(j.name, j.task)), opts...); err != nil {
		slog.Error("scheduler: job not registered", slog.String("jobName", j.name), slog.String("err", err.Error()))
		panic(err.Error())
	}
}

// runJob gives every run its own rqID and keeps a panic inside one run.
func runJob(name string, fn taskFn) func(ctx context.Context) {
	return func(ctx context.Context) {
		ctx = utils.CtxWithRqID(ctx, "")
		rqID := utils.GetRequestIDFromCtx(ctx)
		started := time.Now()

		defer func() {
			if r := recover(); r != nil {
				slog.Error("job panicked",
					slog.String("rqID", rqID),
					slog.String("jobName", name),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		slog.Info("job start", slog.String("rqID", rqID), slog.String("jobName", name))

		if err := fn(ctx); err != nil {
			slog.Error("job failed", slog.String("rqID", rqID), slog.String("jobName", name),
				slog.String("err", err.Error()), slog.Duration("duration", time.Since(started)))
			return
		}
		slog.Info("job completed", slog.String("rqID", rqID), slog.String("jobName", name), slog.Duration("duration", time.Since(started)))
	}
}
