package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/webstylepress/chatbot-backend/internal/completion"
	"github.com/webstylepress/chatbot-backend/internal/config"
	"github.com/webstylepress/chatbot-backend/internal/handler"
	chathandler "github.com/webstylepress/chatbot-backend/internal/handler/chat"
	"github.com/webstylepress/chatbot-backend/internal/logger"
	chatservice "github.com/webstylepress/chatbot-backend/internal/service/chat"
	"github.com/webstylepress/chatbot-backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer appLog.Sync()

	messageStore := openStore(cfg.Store, appLog)
	defer messageStore.Close()

	if !cfg.Completion.Enabled() {
		appLog.Warn("OPENROUTER_API_KEY not set; upstream calls will fail as unauthorized")
	}
	completionCfg := completion.Config{
		BaseURL: cfg.Completion.BaseURL,
		APIKey:  cfg.Completion.APIKey,
		Model:   cfg.Completion.Model,
		Referer: cfg.Completion.Referer,
		Title:   cfg.Completion.Title,
		Timeout: cfg.Completion.Timeout,
	}
	if cfg.Completion.Temperature != nil {
		completionCfg.Temperature = *cfg.Completion.Temperature
	}
	if cfg.Completion.MaxTokens != nil {
		completionCfg.MaxTokens = *cfg.Completion.MaxTokens
	}
	completionClient := completion.NewClient(completionCfg, appLog)

	chatSvc := chatservice.NewService(messageStore, completionClient, cfg.Completion.Model, appLog)
	chatHandler := chathandler.New(chatSvc, cfg.Development(), appLog)
	router := handler.NewRouter(chatHandler)

	startServer(ctx, cfg.Server, router, appLog)
}

// openStore picks Postgres when DATABASE_URL is set, otherwise the local
// SQLite file, falling back to process memory as a last resort.
func openStore(cfg config.StoreConfig, appLog *logger.Logger) store.MessageStore {
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL, appLog)
		if err != nil {
			appLog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		appLog.Info("message store ready", "driver", "postgres")
		return pg
	}

	sqlite, err := store.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		appLog.Warn("sqlite unavailable, falling back to in-memory store", "path", cfg.SQLitePath, "error", err)
		return store.NewMemoryStore()
	}
	appLog.Info("message store ready", "driver", "sqlite", "path", cfg.SQLitePath)
	return sqlite
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, appLog *logger.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	appLog.Info("chat backend listening", "addr", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		appLog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
