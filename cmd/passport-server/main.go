// Command passport-server is a small account service built on goPassport.
//
// It keeps principals in Redis or PostgreSQL and serves:
//
//	POST /user/register   JSON {"account":"...","password":"..."}
//	POST /user/login      JSON or form {"account":"...","password":"..."}
//	POST /user/extend     swaps the presented token for a fresh one (expired tokens allowed)
//	POST /user/logout     revokes the presented token (expired tokens allowed)
//	POST /user/logout/all revokes every token held by the principal
//	GET  /user/profile    returns the authenticated principal
//	GET  /metrics         Prometheus exposition
//
// Configuration is read from PASSPORT_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/MrEthical07/goPassport/directory"
	"github.com/MrEthical07/goPassport/directory/pgdir"
	"github.com/MrEthical07/goPassport/directory/redisdir"
	"github.com/MrEthical07/goPassport/internal/envconfig"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "passport-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := envconfig.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	passportCfg, err := cfg.PassportConfig()
	if err != nil {
		return err
	}
	engine, err := goPassport.New().
		WithConfig(passportCfg).
		WithDirectory(store).
		WithAuditSink(cfg.AuditSinkFor(logger, os.Stdout)).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	issuer, err := goPassport.NewJWTManager(passportCfg.JWT)
	if err != nil {
		return fmt.Errorf("jwt manager: %w", err)
	}
	hasher, err := goPassport.NewPasswordHasher(passportCfg.Password)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newServer(engine, store, issuer, hasher, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "backend", cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg envconfig.Env, logger *slog.Logger) (directory.Store, func(), error) {
	switch cfg.Backend {
	case "postgres":
		st, err := pgdir.New(ctx, pgdir.Config{
			DSN:              cfg.PostgresDSN,
			MigrateOnStart:   cfg.PostgresMigrate,
			MaxTokensPerUser: cfg.MaxTokensPerUser,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		st := redisdir.NewStore(rdb, redisdir.Config{
			Prefix:           cfg.RedisPrefix,
			MaxTokensPerUser: cfg.MaxTokensPerUser,
		})
		if _, err := st.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return st, func() { _ = rdb.Close() }, nil
	}
}
