package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"boundless/config"
	"boundless/internal/handler"
	"boundless/internal/httpserver"
	"boundless/internal/ledger"
	"boundless/internal/repository"
	"boundless/internal/service/funding"
	"boundless/internal/service/milestone"
	"boundless/internal/service/notify"
	"boundless/internal/service/status"
	"boundless/internal/service/voting"
	"boundless/pkg/db"
	"boundless/pkg/logger"
	"boundless/pkg/mq"
	"boundless/pkg/outbox"
	redisclient "boundless/pkg/redis"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting api service...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("ledger_rpc", cfg.Ledger.RPCURL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ publisher + outbox dispatcher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Start(ctx)

	// Ledger bridge
	ledgerClient := ledger.NewClient(cfg.Ledger, log)
	oracle := ledger.NewHTTPOracle(cfg.Oracle, log)
	bridge := ledger.NewBridge(ledgerClient, oracle, cfg.Ledger.TokenContract, log)

	// Repositories and services
	store := repository.NewStore(dbConn, log)
	locks := util.NewKeyedMutex()
	notifier := notify.NewDispatcher(dbConn, log)

	phaseTracker := status.NewTracker(store, status.NewRedisPhaseStore(rdb), notifier, log)
	votingEngine := voting.NewEngine(store, locks, notifier, phaseTracker, log)
	fundingLedger := funding.NewLedger(store, locks, bridge, phaseTracker, log)
	milestoneMachine := milestone.NewStateMachine(store, locks, bridge, notifier, phaseTracker, log)

	// HTTP
	voteHandler := handler.NewVoteHandler(votingEngine, log)
	fundingHandler := handler.NewFundingHandler(fundingLedger, log)
	milestoneHandler := handler.NewMilestoneHandler(milestoneMachine, store.MilestoneRepository, log)
	statusHandler := handler.NewStatusHandler(phaseTracker, log)
	notificationHandler := handler.NewNotificationHandler(repository.NewNotificationRepository(dbConn, log), log)

	router := httpserver.NewRouter(
		voteHandler,
		fundingHandler,
		milestoneHandler,
		statusHandler,
		notificationHandler,
		cfg.JWT.Secret,
		dbConn,
	)

	// 监听退出信号，停掉 outbox dispatcher
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutdown signal received")
		cancel()
	}()

	log.Info("API service listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}
