package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"amm-market/internal/auth"
	"amm-market/internal/blockchain"
	"amm-market/internal/cache/redis"
	"amm-market/internal/config"
	"amm-market/internal/database"
	"amm-market/internal/handlers"
	"amm-market/internal/jobs"
	"amm-market/internal/logger"
	"amm-market/internal/middleware"
	"amm-market/internal/repository"
	"amm-market/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("server stopped with error", zap.Error(err))
	}
	zlog.Info("server exited")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database and run migrations
	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db, log); err != nil {
		return err
	}
	repo := repository.NewRepository(db)

	var opts []services.EngineOption
	var settler jobs.Settler = jobs.LogSettler{Log: log.Named("settler")}
	var nonces auth.NonceStore = auth.NewMemoryNonceStore(cfg.App.NonceTTL)

	// Redis serializes market calls across instances, shares login nonces
	// and carries transfers to the settlement worker
	if cfg.Redis.Addr != "" {
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rc.Close()
		opts = append(opts, services.WithLocker(redis.NewMarketLocker(rc, cfg.App.LockTTL)))
		settler = redis.NewTransferPublisher(rc, cfg.Redis.Stream)
		nonces = redis.NewNonceStore(rc, cfg.App.NonceTTL)
		log.Info("redis enabled", zap.String("addr", cfg.Redis.Addr), zap.String("stream", cfg.Redis.Stream))
	}

	// On-chain escrow caps liquidity withdrawals at what the wallet holds
	if cfg.Solana.EscrowOwner != "" {
		client := blockchain.NewSolanaClient(cfg.Solana)
		balances := blockchain.NewSolanaBalances(client, cfg.Solana, services.NewEscrowLedger(repo), log)
		opts = append(opts, services.WithBalanceQuerier(balances))
		log.Info("solana escrow balance enabled",
			zap.String("network", cfg.Solana.Network),
			zap.String("escrow_owner", cfg.Solana.EscrowOwner),
		)
	}

	registry := services.NewRegistryService(db, services.RegistryConfig{
		Principal:       cfg.App.RegistryAddress,
		FeesAddress:     cfg.App.FeesAddress,
		SettlementDenom: cfg.App.SettlementDenom,
	}, log)
	engine := services.NewMarketEngine(db, registry, log, opts...)
	registry.Bind(engine)
	if err := registry.EnsureAdmins(ctx, cfg.App.Admins); err != nil {
		return err
	}

	// Background jobs
	runner := jobs.NewRunner(log.Named("cron"), ctx)
	dispatcher := jobs.NewTransferDispatcher(repo, settler, cfg.Jobs.DispatchBatch, log)
	if _, err := runner.Add(cfg.Jobs.DispatchSchedule, dispatcher.Run); err != nil {
		return err
	}
	runner.Start()
	defer runner.Stop()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		Registry:       registry,
		Engine:         engine,
		Log:            log.Named("http"),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Nonces:         nonces,
		RateLimiter:    middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
