package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/mail"
	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/ynab"
	appsync "github.com/receiptsync/amazon-ynab-sync/internal/application/sync"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/categorizer"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/matcher"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/cache"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/config"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/storage"
	"github.com/receiptsync/amazon-ynab-sync/internal/observability"
)

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file path")
		dryRun     = flag.Bool("dry-run", false, "Preview annotations without applying")
		lookback   = flag.Int("lookback", 0, "Number of recent messages to scan (0 = config default)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	logger := observability.NewLogger(cfg.Observability.Logging)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *lookback <= 0 {
		*lookback = cfg.IMAP.LookbackMessages
	}

	ctx := context.Background()

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

	result, err := orchestrator.Run(ctx, appsync.Options{
		DryRun:   *dryRun,
		Lookback: *lookback,
	})
	if err != nil {
		logger.Error("reconcile run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Scanned %d messages, extracted %d records, accepted %d matches, applied %d updates",
		result.MessagesScanned, result.RecordsExtracted, result.MatchesAccepted, result.UpdatesApplied)
	if *dryRun {
		fmt.Print(" (dry run)")
	}
	fmt.Println()

	if result.ErrorCount > 0 {
		fmt.Printf("%d errors; see log for details\n", result.ErrorCount)
		os.Exit(2)
	}
}
