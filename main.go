// Package main is the entry point for the inventory expense Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/storeops/inventory-expense/internal/bot"
	"gitlab.com/storeops/inventory-expense/internal/config"
	"gitlab.com/storeops/inventory-expense/internal/database"
	"gitlab.com/storeops/inventory-expense/internal/exchange"
	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/logger"
	"gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/quickadd"
	"gitlab.com/storeops/inventory-expense/internal/receipt"
	"gitlab.com/storeops/inventory-expense/internal/report"
	"gitlab.com/storeops/inventory-expense/internal/repository"
	"gitlab.com/storeops/inventory-expense/internal/telemetry"
)

const (
	serviceName     = "inventory-expense"
	shutdownTimeout = 5 * time.Second
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("%s %s (commit: %s, built: %s)\n", serviceName, version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		Exporter:       cfg.TelemetryExporter,
		ServiceName:    serviceName,
		ServiceVersion: version,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	companyID, err := database.SeedCompany(ctx, pool, cfg.CompanyName, cfg.CompanyCurrency)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to seed company")
	}

	companyRepo := repository.NewCompanyRepository(pool)
	company, err := companyRepo.GetByID(ctx, companyID)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load company")
	}

	logger.Log.Info().
		Int64("company_id", company.ID).
		Str("currency", company.Currency).
		Msg("Database initialized successfully")

	expenseRepo := repository.NewExpenseRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	changeLog := repository.NewChangeLogRepository(pool)
	expenses := expense.NewService(expenseRepo, changeLog)

	rates := exchange.NewCachedSource(
		exchange.NewFrankfurterClient(cfg.ExchangeRateBaseURL, cfg.ExchangeRateTimeout),
		cfg.ExchangeRateCacheTTL,
	)
	exporter := report.NewExporter(report.NewAggregator(expenseRepo, rates), attachmentRepo, nil)

	defaultModel := cfg.OpenAIModel
	if defaultModel == "" {
		defaultModel = receipt.DefaultModel(cfg.AIProvider)
	}
	quickAddTx := quickadd.NewPGXRunner(pool, func(db database.PGXDB) quickadd.Writers {
		return quickadd.Writers{
			Expenses:    expense.NewService(repository.NewExpenseRepository(db), nil),
			Attachments: repository.NewAttachmentRepository(db),
		}
	})
	qaOpts := []quickadd.Option{
		quickadd.WithModel(settingsRepo, defaultModel),
		quickadd.WithTx(quickAddTx),
	}

	completer, err := receipt.NewCompleter(ctx, cfg)
	switch {
	case models.IsConfigurationError(err):
		logger.Log.Warn().Err(err).Msg("Receipt extraction disabled")
		qaOpts = append(qaOpts, quickadd.WithoutExtractor(err))
	case err != nil:
		logger.Log.Fatal().Err(err).Msg("Failed to create receipt completer")
	default:
		qaOpts = append(qaOpts, quickadd.WithExtractor(receipt.NewExtractor(completer)))
		logger.Log.Info().Str("provider", cfg.AIProvider).Str("model", defaultModel).Msg("Receipt extraction enabled")
	}

	telegramBot, err := bot.New(cfg, bot.Deps{
		Company:      *company,
		Users:        repository.NewUserRepository(pool),
		Expenses:     expenses,
		Queries:      expenseRepo,
		History:      changeLog,
		Attachments:  attachmentRepo,
		Reports:      exporter,
		QuickAdd:     quickadd.NewService(expenses, attachmentRepo, qaOpts...),
		Settings:     settingsRepo,
		DefaultModel: defaultModel,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	telegramBot.Start(ctx)
}
