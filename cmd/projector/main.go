package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-retail-orders/internal/config"
	kafkax "github.com/ariefcatur/go-retail-orders/internal/kafka"
	"github.com/ariefcatur/go-retail-orders/internal/logx"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
	"github.com/ariefcatur/go-retail-orders/internal/projector"
	"github.com/ariefcatur/go-retail-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logx.Setup(cfg.LogLevel, cfg.ServiceName+"-projector", cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projector.Service{
		Cache: &redisx.StatusCache{RDB: rdb},
		Dedup: &redisx.Dedup{RDB: rdb, Service: "projector"},
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, orders.TopicOrderEvents, cfg.ProjectorWorkers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info().
			Str("group", cfg.ProjectorGroup).
			Str("topic", orders.TopicOrderEvents).
			Int("workers", cfg.ProjectorWorkers).
			Msg("projector consumer started")
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down consumer...")
	cancel()
	<-done
}
