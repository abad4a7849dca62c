package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"boundless/config"
	mqcontracts "boundless/contracts/mq"
	"boundless/internal/ledger"
	"boundless/internal/mqhandler"
	"boundless/internal/repository"
	"boundless/internal/service/funding"
	"boundless/internal/service/notify"
	"boundless/internal/service/status"
	"boundless/pkg/db"
	"boundless/pkg/logger"
	"boundless/pkg/mq"
	redisclient "boundless/pkg/redis"
	"boundless/pkg/util"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting worker service...")

	// Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	log.Info("DB ready")

	// MQ publisher, DLQ 拓扑先声明好
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("MQ publisher init failed", zap.Error(err))
	}
	defer publisher.Close()

	mqConn, err := mq.NewConnection(cfg.MQ.URL)
	if err != nil {
		log.Fatal("MQ connection failed", zap.Error(err))
	}
	defer mqConn.Close()

	ch, err := mqConn.Channel()
	if err != nil {
		log.Fatal("MQ channel failed", zap.Error(err))
	}
	if err := mq.DeclareDLQExchange(ch); err != nil {
		log.Fatal("DLQ exchange declare failed", zap.Error(err))
	}
	if _, err := mq.DeclareDLQQueue(ch, mqcontracts.RoutingContributionInitiated); err != nil {
		log.Fatal("DLQ queue declare failed", zap.Error(err))
	}
	ch.Close()

	// repositories and services
	store := repository.NewStore(dbConn, log)
	notiRepo := repository.NewNotificationRepository(dbConn, log)
	notifier := notify.NewDispatcher(dbConn, log)
	locks := util.NewKeyedMutex()

	ledgerClient := ledger.NewClient(cfg.Ledger, log)
	oracle := ledger.NewHTTPOracle(cfg.Oracle, log)
	bridge := ledger.NewBridge(ledgerClient, oracle, cfg.Ledger.TokenContract, log)

	phaseTracker := status.NewTracker(store, status.NewRedisPhaseStore(rdb), notifier, log)
	fundingLedger := funding.NewLedger(store, locks, bridge, phaseTracker, log)

	// handlers
	settlementHandler := mqhandler.NewContributionSettlementHandler(
		fundingLedger, bridge, retryCounter, publisher, log,
	)
	milestoneHandler := mqhandler.NewMilestoneNotificationHandler(notiRepo, deduper, log)
	projectHandler := mqhandler.NewProjectNotificationHandler(
		notiRepo, store.ProjectRepository, deduper, log,
	)

	type binding struct {
		routingKey string
		handler    mq.MessageHandler
	}
	bindings := []binding{
		{mqcontracts.RoutingContributionInitiated, settlementHandler.Handle},
		{mqcontracts.RoutingMilestoneUpdated, milestoneHandler.HandleUpdated},
		{mqcontracts.RoutingMilestoneCompleted, milestoneHandler.HandleCompleted},
		{mqcontracts.RoutingMilestoneRejected, milestoneHandler.HandleRejected},
		{mqcontracts.RoutingProjectValidated, projectHandler.HandleValidated},
		{mqcontracts.RoutingProjectPhaseChanged, projectHandler.HandlePhaseChanged},
	}

	for _, b := range bindings {
		log.Info("Init consumer", zap.String("routing_key", b.routingKey))
		consumer, err := mq.NewConsumer(cfg.MQ.URL, b.routingKey+".q", b.routingKey, log)
		if err != nil {
			log.Fatal("Consumer init failed",
				zap.String("routing_key", b.routingKey),
				zap.Error(err),
			)
		}
		consumer.SetHandler(b.handler)
		go func(c *mq.Consumer, key string) {
			if err := c.StartConsuming(); err != nil {
				log.Fatal("Consumer crashed", zap.String("routing_key", key), zap.Error(err))
			}
		}(consumer, b.routingKey)
		defer consumer.Close()
	}

	log.Info("Worker running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")
}
