package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stocksignal/internal/autotrade"
	"stocksignal/internal/backtest"
	"stocksignal/internal/config"
	cronrunner "stocksignal/internal/cron"
	"stocksignal/internal/db"
	"stocksignal/internal/handler"
	"stocksignal/internal/logger"
	"stocksignal/internal/marketdata"
	gormrepository "stocksignal/internal/repository/gorm"
	"stocksignal/internal/service"
)

func main() {
	cfgPath := os.Getenv("KS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("KS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := gormrepository.New(dbConn.Gorm)

	var provider marketdata.Provider
	switch cfg.Market.Provider {
	case "", "synthetic":
		provider = marketdata.NewSynthetic()
	default:
		logger.Warn("unknown market data provider, using synthetic",
			zap.String("provider", cfg.Market.Provider))
		provider = marketdata.NewSynthetic()
	}

	settingsSvc := service.NewSettings(store, logger)
	stocksSvc := service.NewStocks(store, provider, settingsSvc, logger).
		WithHistoryDays(cfg.Market.HistoryDays)
	txSvc := service.NewTransactions(store, logger)
	riskSvc := service.NewRisk(store, settingsSvc, txSvc, logger)
	recommendSvc := service.NewRecommender(store, settingsSvc, txSvc, logger)
	alertSvc := service.NewAlerts(store, logger)
	brokerageSvc := service.NewBrokerage(settingsSvc, cfg.Brokerage.Timeout, logger)

	runner := backtest.NewRunner(store, service.NewSeriesLoader(store), settingsSvc, logger, cfg.Backtest.MaxConcurrentRuns)
	backtestSvc := service.NewBacktests(store, runner, ctx, logger)

	trader := autotrade.NewScheduler(store, settingsSvc, riskSvc, brokerageSvc, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORSMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	stockHandler := &handler.StockHandler{Stocks: stocksSvc, Logger: logger}
	stockHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Settings: settingsSvc}
	settingsHandler.Register(engine)
	riskHandler := &handler.RiskHandler{Risk: riskSvc, Settings: settingsSvc}
	riskHandler.Register(engine)
	recommendationHandler := &handler.RecommendationHandler{Recommender: recommendSvc}
	recommendationHandler.Register(engine)
	backtestHandler := &handler.BacktestHandler{Backtests: backtestSvc}
	backtestHandler.Register(engine)
	autoTradeHandler := &handler.AutoTradeHandler{Repo: store, Settings: settingsSvc}
	autoTradeHandler.Register(engine)
	transactionHandler := &handler.TransactionHandler{Transactions: txSvc}
	transactionHandler.Register(engine)
	alertHandler := &handler.AlertHandler{Alerts: alertSvc}
	alertHandler.Register(engine)
	brokerageHandler := &handler.BrokerageHandler{Brokerage: brokerageSvc, Settings: settingsSvc}
	brokerageHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	// refreshPipeline is the full scheduled pass: prices, then signals, then
	// alert triggers, then the auto-trade tick.
	refreshPipeline := func(ctx context.Context) {
		if err := stocksSvc.RefreshAll(ctx); err != nil {
			logger.Warn("scheduled refresh failed", zap.Error(err))
			return
		}
		if err := alertSvc.Check(ctx); err != nil {
			logger.Warn("alert sweep failed", zap.Error(err))
		}
		if err := trader.Tick(ctx); err != nil {
			logger.Warn("auto-trade tick failed", zap.Error(err))
		}
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Scheduler.Enabled {
		for _, spec := range cfg.Scheduler.RefreshSpecs {
			if _, err := cronRunner.Add(spec, refreshPipeline); err != nil {
				logger.Warn("cron register refresh failed", zap.String("spec", spec), zap.Error(err))
			}
		}
		if cfg.Scheduler.WatchdogInterval > 0 {
			spec := "@every " + cfg.Scheduler.WatchdogInterval.String()
			_, err := cronRunner.Add(spec, func(ctx context.Context) {
				if !dataStale(ctx, store, time.Now().UTC()) {
					return
				}
				logger.Info("stale market data detected, running catch-up refresh")
				refreshPipeline(ctx)
			})
			if err != nil {
				logger.Warn("cron register watchdog failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()

		if cfg.Scheduler.StartupCatchUp {
			go func() {
				if dataStale(ctx, store, time.Now().UTC()) {
					logger.Info("running startup catch-up refresh")
					refreshPipeline(ctx)
				}
			}()
		}
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	runner.Wait()
}

// dataStale reports whether the stored bars have fallen behind the calendar:
// a weekday with no bar for today means the scheduled refresh was missed.
func dataStale(ctx context.Context, store interface {
	GetNewestBarDate(ctx context.Context) (*time.Time, error)
}, now time.Time) bool {
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	newest, err := store.GetNewestBarDate(ctx)
	if err != nil || newest == nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return newest.Before(today)
}
