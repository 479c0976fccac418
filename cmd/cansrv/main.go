// Command cansrv runs the CAN-bus scheduling control server: a TCP
// command listener on cfg.Port and, when cfg.AdminPort is non-zero, an
// admin HTTP surface on cfg.AdminPort.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/cansrv/cansrv/internal/adminhttp"
	"github.com/cansrv/cansrv/internal/caniface"
	"github.com/cansrv/cansrv/internal/config"
	"github.com/cansrv/cansrv/internal/events"
	"github.com/cansrv/cansrv/internal/globalstate"
	"github.com/cansrv/cansrv/internal/logger"
	"github.com/cansrv/cansrv/internal/protocol"
	"github.com/cansrv/cansrv/internal/schedcore"
)

func main() {
	configPath := flag.String("config", "cansrv.conf", "path to the server configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	logger.SetLevel(cfg.LogLevel)
	log := logger.Get()
	log.Info().Int("port", cfg.Port).Int("worker_threads", cfg.WorkerThreads).Msg("starting cansrv")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := newPublisher(cfg)
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("failed to close event publisher")
		}
	}()

	threads := globalstate.NewThreadRegistry()
	pids := globalstate.NewPIDRegistry()
	ifaces := caniface.NewCache()
	ifaces.Refresh()

	queue := schedcore.NewQueue()
	pool := schedcore.NewPool(cfg.WorkerThreads, queue)
	pool.SetThreadRegistry(threads)
	pool.Start(ctx)
	defer pool.Stop()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		log.Fatal().Err(err).Int("port", cfg.Port).Msg("failed to bind TCP listener")
	}

	server := &protocol.Server{
		Listener:   listener,
		Queue:      queue,
		Interfaces: ifaces,
		Threads:    threads,
		PIDs:       pids,
		Publisher:  publisher,
	}

	admin := adminhttp.NewServer(threads)

	if cfg.AdminPort != 0 {
		go func() {
			log.Info().Int("port", cfg.AdminPort).Msg("admin HTTP server listening")
			if aerr := admin.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.AdminPort)); aerr != nil {
				log.Error().Err(aerr).Msg("admin HTTP server error")
			}
		}()
	}

	go func() {
		log.Info().Str("addr", listener.Addr().String()).Msg("TCP control server listening")
		if serr := server.Serve(ctx); serr != nil && ctx.Err() == nil {
			log.Error().Err(serr).Msg("TCP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down cansrv")
	cancel()
}

func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.EventsRedisAddr == "" {
		return events.NoopPublisher{}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.EventsRedisAddr})
	return events.NewRedisPubSub(client)
}
