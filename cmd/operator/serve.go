package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-transfer-operator/internal/bus"
	"solana-transfer-operator/internal/config"
	"solana-transfer-operator/internal/keytransport"
	"solana-transfer-operator/internal/logging"
	"solana-transfer-operator/internal/orchestrator"
	"solana-transfer-operator/internal/solana"
	"solana-transfer-operator/internal/storage"
	chstore "solana-transfer-operator/internal/storage/clickhouse"
	"solana-transfer-operator/internal/storage/memory"
	"solana-transfer-operator/internal/storage/migrations"
	pgstore "solana-transfer-operator/internal/storage/postgres"
	redisstore "solana-transfer-operator/internal/storage/redis"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume transfer requests from the bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.ToLogOption())
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runServe(cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to the YAML config file")
	return cmd
}

func runServe(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	done := make(chan struct{})
	defer close(done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", zap.Stringer("signal", sig))
			cancel()
		case <-done:
			return
		}

		// A second signal or a stuck shutdown forces exit.
		select {
		case sig := <-sigCh:
			logger.Warn("second signal, forcing exit", zap.Stringer("signal", sig))
			os.Exit(1)
		case <-time.After(cfg.Server.ShutdownTimeout):
			logger.Error("graceful shutdown timed out, forcing exit", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
			os.Exit(1)
		case <-done:
		}
	}()

	api := &httpAPI{
		transfers: svc.transfers,
		events:    svc.events,
		started:   time.Now(),
		logger:    logger.Named("http"),
	}
	if cfg.Bus.Driver == config.BusMemory {
		api.sender = svc.transport
		go drainResults(ctx, svc.memBus, logger.Named("results"))
	}
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}()

	logger.Info("operator started",
		zap.String("bus", cfg.Bus.Driver),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("workers", cfg.Bus.Workers),
		zap.Bool("confirmation", svc.confirmer != nil),
	)

	err = svc.transport.Consume(ctx, cfg.Bus.Workers, svc.dispatcher.Handle)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", zap.Error(serr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// drainResults logs results of the in-process bus, which has no remote reader.
func drainResults(ctx context.Context, b *bus.MemoryBus, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-b.Results():
			if !ok {
				return
			}
			fields := []zap.Field{
				zap.String("request_id", res.ID),
				zap.String("status", string(res.Status)),
				zap.String("signature", res.Signature),
			}
			if res.Error != nil {
				fields = append(fields, zap.String("error_kind", string(res.Error.Kind)), zap.String("stage", string(res.Error.Stage)))
			}
			logger.Info("result", fields...)
		}
	}
}

// service holds the wired components of a running operator.
type service struct {
	keys       *keytransport.OperatorKey
	transfers  storage.TransferStore
	events     storage.StageEventStore
	claims     storage.IdempotencyStore
	confirmer  solana.Confirmer
	transport  bus.Transport
	memBus     *bus.MemoryBus
	dispatcher *bus.Dispatcher

	closers []func()
}

func (s *service) onClose(f func()) {
	s.closers = append(s.closers, f)
}

// close releases components in reverse order of creation.
func (s *service) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *service, err error) {
	svc := &service{}
	defer func() {
		if err != nil {
			svc.close()
		}
	}()

	svc.keys, err = keytransport.LoadOperatorKeyFile(cfg.Operator.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("load operator key: %w", err)
	}
	svc.onClose(func() { svc.keys.Close() })

	if err := svc.openStores(ctx, cfg, logger); err != nil {
		return nil, err
	}

	rdb, err := svc.openRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		svc.claims = redisstore.NewIdempotencyStore(rdb, cfg.Storage.Redis.KeyPrefix)
	} else {
		svc.claims = memory.NewIdempotencyStore()
	}

	if err := svc.openBus(cfg, rdb); err != nil {
		return nil, err
	}

	if cfg.Solana.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Commitment = cfg.Solana.Commitment
		ws, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, &wsCfg, logger.Named("ws"))
		if err != nil {
			// Confirmation is advisory; submit still works without it.
			logger.Warn("websocket unavailable, landing confirmation disabled", zap.Error(err))
		} else {
			svc.confirmer = ws
			svc.onClose(func() { ws.Close() })
		}
	}

	gateway := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithTimeout(cfg.Solana.Timeout),
		solana.WithCommitment(cfg.Solana.Commitment),
	)

	orch, err := orchestrator.New(orchestrator.Options{
		Keys:              svc.keys,
		Gateway:           gateway,
		Confirmer:         svc.confirmer,
		TransferStore:     svc.transfers,
		StageEventStore:   svc.events,
		Logger:            logger.Named("orchestrator"),
		Explorer:          orchestrator.Explorer{Network: cfg.Explorer.Network, Cluster: cfg.Explorer.Cluster},
		BlockhashAttempts: cfg.Retry.BlockhashAttempts,
		BlockhashRestarts: cfg.Retry.BlockhashRestarts,
		SubmitAttempts:    cfg.Retry.SubmitAttempts,
		RetryInterval:     cfg.Retry.Interval,
		SubmitTimeout:     cfg.Retry.SubmitTimeout,
		ConfirmTimeout:    cfg.Retry.ConfirmTimeout,
	})
	if err != nil {
		return nil, err
	}

	svc.dispatcher = bus.NewDispatcher(orch, svc.transport, svc.claims,
		bus.WithClaimTTL(cfg.Storage.ClaimTTL),
		bus.WithLogger(logger.Named("dispatcher")),
	)
	return svc, nil
}

func (s *service) openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Storage.Backend == config.StorageMemory {
		s.transfers = memory.NewTransferStore()
		s.events = memory.NewStageEventStore()
		return nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN, pgstore.WithMaxConns(cfg.Storage.PostgresMaxConns))
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	s.onClose(pool.Close)

	var chConn *chstore.Conn
	if cfg.Storage.Migrate {
		applied, err := migrations.ApplyPostgres(ctx, pool)
		if err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("postgres migrations applied", zap.Strings("scripts", applied))

		if chConn, err = migrations.ApplyClickHouse(ctx, cfg.Storage.ClickHouseDSN); err != nil {
			return fmt.Errorf("migrate clickhouse: %w", err)
		}
	} else if chConn, err = chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN); err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	s.onClose(func() { chConn.Close() })

	s.transfers = pgstore.NewTransferStore(pool)
	s.events = chstore.NewStageEventStore(chConn)
	return nil
}

// openRedis connects when an address is configured. The client is closed by
// the redis bus when that driver owns it.
func (s *service) openRedis(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	if cfg.Storage.Redis.Addr == "" {
		return nil, nil
	}
	rdb, err := redisstore.NewClient(ctx, redisstore.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if cfg.Bus.Driver != config.BusRedis {
		s.onClose(func() { rdb.Close() })
	}
	return rdb, nil
}

func (s *service) openBus(cfg *config.Config, rdb *goredis.Client) error {
	switch cfg.Bus.Driver {
	case config.BusRabbitMQ:
		q, err := bus.NewRabbitMQ(bus.RabbitMQConfig{
			URL:          cfg.Bus.RabbitMQURL,
			RequestQueue: cfg.Bus.RequestQueue,
			ResultQueue:  cfg.Bus.ResultQueue,
			Prefetch:     cfg.Bus.Prefetch,
			Durable:      cfg.Bus.Durable,
		})
		if err != nil {
			return err
		}
		s.transport = q
	case config.BusRedis:
		s.transport = bus.NewRedisQueue(rdb, bus.RedisQueueConfig{
			RequestQueue: cfg.Bus.RequestQueue,
			ResultQueue:  cfg.Bus.ResultQueue,
		})
	default:
		s.memBus = bus.NewMemoryBus(cfg.Bus.Workers * 16)
		s.transport = s.memBus
	}
	s.onClose(func() { s.transport.Close() })
	return nil
}
