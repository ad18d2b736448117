package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/relay-service/internal/api"
	"github.com/fathima-sithara/relay-service/internal/config"
	"github.com/fathima-sithara/relay-service/internal/hub"
	"github.com/fathima-sithara/relay-service/internal/kafka"
	"github.com/fathima-sithara/relay-service/internal/redis"
	"github.com/fathima-sithara/relay-service/internal/utils"
	"github.com/fathima-sithara/relay-service/internal/ws"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Development(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	h := hub.NewHub(logger)

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent)
		h.Sink = producer
		logger.Infow("kafka message mirror enabled", "topic", cfg.Kafka.TopicMessageSent)
	}

	if cfg.Redis.Addr != "" {
		rc := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Pass,
			DB:       cfg.Redis.DB,
		})
		h.ConnStore = redis.NewStore(rc, cfg.Redis.Prefix, 24*time.Hour)
		logger.Infow("redis connection mirror enabled", "addr", cfg.Redis.Addr)
	}

	go h.Run()

	wsrv := ws.NewServer(h, cfg, logger)
	app := api.NewServer(h, wsrv)

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infow("starting relay", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case e := <-errs:
		logger.Fatalw("server error", "err", e)
	case s := <-sig:
		logger.Infow("signal received", "signal", s)
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warnw("fiber shutdown", "err", err)
	}
	h.Stop()
	if producer != nil {
		_ = producer.Close()
	}
	logger.Infow("shut down")
}
