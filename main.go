package main

import (
	"TicketMarket/configs"
	"TicketMarket/consts"
	"TicketMarket/controllers"
	"TicketMarket/database"
	"TicketMarket/jobs"
	"TicketMarket/monitoring"
	"TicketMarket/routers"
	"TicketMarket/service"
	"TicketMarket/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func setupLogger() {
	if configs.GetLogFormat() == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(configs.GetLogLevel())
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func main() {
	configs.LoadFileConfig()
	setupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//Mongo
	if err := database.ConnectMongo(); err != nil {
		logrus.WithError(err).Fatal("connecting to mongodb")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.DisconnectMongo(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("disconnecting mongodb")
		}
	}()
	if err := database.EnsureIndexes(ctx, database.GetDB()); err != nil {
		logrus.WithError(err).Fatal("creating indexes")
	}

	//Redis
	rdb, err := database.NewRedisClient(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("connecting to redis")
	}
	defer rdb.Client.Close()

	store := service.NewMongoStore()
	notifier := jobs.NewRedisNotifier(rdb.Client)
	vnpay := utils.NewVNPay()
	orderTTL := time.Duration(configs.GetOrderExpirationMinutes()) * time.Minute

	inventory := service.NewInventory(store, orderTTL)
	issuer := service.NewIssuer(store, inventory, configs.GetTicketCodeLength())
	checkout := service.NewCheckout(store, inventory, issuer, notifier, service.CheckoutConfig{
		FeePercent: configs.GetServiceFeePercent(),
		OrderTTL:   orderTTL,
		Currency:   configs.GetCurrency(),
	}, vnpay)

	h := controllers.NewHandler(
		service.NewCatalog(store, configs.GetCurrency()),
		checkout,
		issuer,
		service.NewCheckIn(store),
		service.NewTransfers(store, notifier),
		vnpay,
	)

	scheduler, err := jobs.NewScheduler(configs.GetSweepSchedule(), checkout)
	if err != nil {
		logrus.WithError(err).Fatal("creating scheduler")
	}
	worker := jobs.NewWorker(rdb.Client, store, utils.NewEmailService(), configs.GetMaxRetries())
	monitor := monitoring.NewMonitor(rdb.Client, consts.QueueNameNotification)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", configs.GetServerPort()),
		Handler:           routers.SetupRouter(h, rdb.Client),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("addr", server.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return monitor.Run(gctx) })

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("server stopped with error")
		return
	}
	logrus.Info("server stopped")
}
