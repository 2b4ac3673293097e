package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/KotFed0t/fondos_backoffice/data"
	"github.com/KotFed0t/fondos_backoffice/data/cache"
	"github.com/KotFed0t/fondos_backoffice/data/repository/postgres"
	"github.com/KotFed0t/fondos_backoffice/data/session"
	"github.com/KotFed0t/fondos_backoffice/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/fondos_backoffice/internal/externalApi/exchangeRateApi"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/notifier/telegramNotifier"
	"github.com/KotFed0t/fondos_backoffice/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/fondos_backoffice/internal/scheduler"
	"github.com/KotFed0t/fondos_backoffice/internal/service/backofficeService"
	"github.com/KotFed0t/fondos_backoffice/internal/service/importService"
	"github.com/KotFed0t/fondos_backoffice/internal/service/performanceService"
	"github.com/KotFed0t/fondos_backoffice/internal/service/rateService"
	"github.com/KotFed0t/fondos_backoffice/internal/transport/httpApi"
	"github.com/KotFed0t/fondos_backoffice/utils"
)

func main() {
	cfg := config.MustLoad()

	utils.SetupLogger(os.Stdout, cfg.LogLevel, true)

	slog.Debug("config", slog.Any("cfg", cfg))

	model.AddDomesticTickers(cfg.Import.DomesticTickers...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	exchangeRateApiClient := exchangeRateApi.New(cfg)

	reportGenerator := xslsxGenerator.New()

	var cloudStorage performanceService.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		drive, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("google drive disabled", slog.String("err", err.Error()))
		} else {
			cloudStorage = drive
		}
	}

	notifier, err := telegramNotifier.New(cfg)
	if err != nil {
		panic(err)
	}

	importSrv := importService.New(pgRepo, redisSession, notifier)
	rateSrv := rateService.New(exchangeRateApiClient, redisCache, pgRepo)
	performanceSrv := performanceService.New(pgRepo, reportGenerator, cloudStorage)
	backofficeSrv := backofficeService.New(pgRepo)

	sched := scheduler.New()
	sched.RegisterJobs(cfg, rateSrv, performanceSrv, cloudStorage != nil)
	sched.Start()
	defer sched.Stop()

	ctrl := httpApi.NewController(importSrv, rateSrv, performanceSrv, backofficeSrv, cfg.Import.MaxUploadBytes)

	server := httpApi.NewServer(cfg, httpApi.NewRouter(ctrl))
	server.Start()
	defer server.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}
