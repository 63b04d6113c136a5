package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/mail"
	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/receiptsync/amazon-ynab-sync/internal/api"
	"github.com/receiptsync/amazon-ynab-sync/internal/application/service"
	appsync "github.com/receiptsync/amazon-ynab-sync/internal/application/sync"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/categorizer"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/matcher"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/cache"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/config"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/storage"
	"github.com/receiptsync/amazon-ynab-sync/internal/observability"
)

// pollInterval bounds how long the mail watcher idles before re-checking;
// some servers drop IDLE sessions silently.
const pollInterval = 10 * time.Minute

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file path")
		watch      = flag.Bool("watch", true, "Reconcile automatically when new mail arrives")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	logger := observability.NewLogger(cfg.Observability.Logging)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	ynabClient := ynab.NewClient(cfg.YNAB.AccessToken, logger)
	budgetID, err := ynabClient.ResolveBudget(ctx, cfg.YNAB.BudgetName)
	if err != nil {
		logger.Error("failed to resolve budget", slog.String("error", err.Error()))
		os.Exit(1)
	}
	ledger := ynabClient.ForBudget(budgetID)

	mailClient, err := mail.Dial(mail.Config{
		Address:  cfg.IMAP.Address,
		Username: cfg.IMAP.Username,
		Password: cfg.IMAP.Password,
		Mailbox:  cfg.IMAP.Mailbox,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to mail server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer mailClient.Close()

	var suggester categorizer.Suggester
	if cfg.Gemini.Enabled {
		gemini, err := categorizer.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Warn("category suggestions disabled", slog.String("error", err.Error()))
		} else {
			suggester = categorizer.NewCached(gemini)
		}
	}

	orchestrator := appsync.NewOrchestrator(
		mailClient,
		ledger,
		extractor.New(cfg.ExtractorConfig(), logger),
		matcher.New(cfg.MatcherConfig()),
		cache.NewTransactionCache(),
		store,
		suggester,
		logger,
	)
	syncService := service.NewSyncService(orchestrator, logger)

	server := api.NewServer(api.Config{
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}, store, syncService, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	if *watch {
		go watchMail(ctx, mailClient, syncService, cfg.IMAP.LookbackMessages, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
}

// watchMail reconciles whenever the server reports new mail, and on a slow
// poll as a safety net. The reconcile runs synchronously: the fetch shares
// the IMAP connection with the IDLE wait, and the session must be free before
// the loop idles again. A reconcile started over the API just skips the
// trigger; the next one picks up whatever it missed.
func watchMail(ctx context.Context, client *mail.Client, syncService *service.SyncService, lookback int, logger *slog.Logger) {
	for {
		arrived, err := client.WaitForMail(ctx, pollInterval)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("mail watch interrupted", slog.String("error", err.Error()))
			select {
			case <-time.After(time.Minute):
			case <-ctx.Done():
				return
			}
			continue
		}

		if arrived {
			logger.Info("new mail reported, starting reconcile")
		}

		if _, err := syncService.RunSync(ctx, appsync.Options{Lookback: lookback}); err != nil {
			logger.Debug("reconcile trigger skipped", slog.String("reason", err.Error()))
		}
	}
}
