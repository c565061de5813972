package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"piggybank/internal/amqp"
	"piggybank/internal/auth"
	"piggybank/internal/cli"
	apphttp "piggybank/internal/http"
	"piggybank/internal/log"
	"piggybank/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional: without a broker the report mirror stays pending and
	// the reconcile sweep catches up once the worker can reach it.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without sync messages", "error", err)
		} else {
			defer amqpClient.Close()
		}
	}

	var sessionStore auth.SessionStore
	switch cfg.SessionStore {
	case "memory":
		sessionStore = auth.NewMemoryStore(10_000)
	default:
		sessionStore = repo.Sessions()
	}

	sessions := auth.NewManager(sessionStore, repo, cfg.SessionSecret, cfg.SessionTTL)
	authenticator := auth.NewAuthenticator(repo)
	piggies := services.NewPiggyService(repo, amqpClient)

	srv := apphttp.NewServer(":"+cfg.Port, piggies, authenticator, sessions)
	if cfg.SecureCookies {
		srv.UseSecureCookies()
	}
	srv.Handler = log.Middleware(logger.WithComponent(log.ComponentHTTP))(srv.Handler)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	// Periodic sweep of expired sessions in the SQLite store.
	if store, ok := sessionStore.(interface {
		CleanExpired(ctx context.Context) (int64, error)
	}); ok {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n, err := store.CleanExpired(ctx); err != nil {
						logger.Warn("Session cleanup failed", "error", err)
					} else if n > 0 {
						logger.Info("Cleaned expired sessions", "count", n)
					}
				}
			}
		}()
	}

	logger.Info("Starting piggybank server",
		"port", cfg.Port, "session_store", cfg.SessionStore, "amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
