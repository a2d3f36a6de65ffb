package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/poll-ledger/auth"
	"github.com/danielhkuo/poll-ledger/cliparse"
	"github.com/danielhkuo/poll-ledger/db"
	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/middleware"
	"github.com/danielhkuo/poll-ledger/redisdb"
	"github.com/danielhkuo/poll-ledger/router"
)

func main() {
	var err error

	// .env values never override the real environment
	if err := cliparse.LoadEnvFile(".env"); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	if cfg.IssueToken != "" {
		token, err := auth.IssueCallerToken(cfg.IssueToken, cfg.JWTSecret, cfg.TokenTTL, time.Now())
		if err != nil {
			slog.Error("token issue failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closer, err := openLedger(ctx, cfg)
	if err != nil {
		slog.Error("ledger setup failed", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.Info("Ledger ready", "backend", cfg.Backend)

	// Create router
	mux := router.NewRouter(svc, cfg)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openLedger builds the configured backend and returns what to close on exit
func openLedger(ctx context.Context, cfg cliparse.Config) (ledger.Service, io.Closer, error) {
	switch cfg.Backend {
	case cliparse.BackendMemory:
		return ledger.NewMemory(), nopCloser{}, nil

	case cliparse.BackendSQLite, cliparse.BackendPostgres:
		dialect, err := db.ParseDialect(cfg.Backend)
		if err != nil {
			return nil, nil, err
		}
		conn, err := db.Open(ctx, dialect, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		// Create schema (tables)
		if err := db.CreateSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("schema creation failed: %w", err)
		}
		return db.NewStore(conn, dialect), conn, nil

	case cliparse.BackendRedis:
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewStore(rdb, cfg.RedisPrefix), rdb, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
