// Command scan runs the statement upload flow against a local image file:
// it extracts the transactions, flags duplicates and optionally saves them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/dedupe"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/services"
	"fintrack/internal/tokenstore"
	"fintrack/internal/upload"
	"fintrack/internal/uuid"
)

var (
	email      = flag.String("email", "", "Log in with this email when no session is stored. The password is read from FINTRACK_PASSWORD.")
	duplicates = flag.String("duplicates", "", "What to do with flagged duplicates: remove or keep.")
	save       = flag.Bool("save", false, "Save the reviewed transactions to the backend.")
	batched    = flag.Bool("batched", false, "Fetch existing transactions in one range instead of one window per item.")
)

var (
	errc  = color.New(color.BgRed, color.FgWhite).PrintfFunc()
	warnc = color.New(color.FgYellow).PrintfFunc()
	okc   = color.New(color.FgGreen).PrintfFunc()
)

// consoleNotifier prints notifications to the terminal.
type consoleNotifier struct{}

func (consoleNotifier) Success(msg string) { okc("✓ %s\n", msg) }
func (consoleNotifier) Info(msg string)    { fmt.Printf("  %s\n", msg) }
func (consoleNotifier) Warning(msg string) { warnc("! %s\n", msg) }
func (consoleNotifier) Error(msg string)   { errc(" %s ", msg); fmt.Println() }

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: scan [flags] <image>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(flag.Arg(0)); err != nil {
		errc(" %v ", err)
		fmt.Println()
		os.Exit(1)
	}
}

func run(path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	action := models.DuplicateAction(*duplicates)
	switch action {
	case models.DuplicateActionNone, models.DuplicateActionRemove, models.DuplicateActionKeep:
	default:
		return fmt.Errorf("-duplicates must be remove or keep, got %q", *duplicates)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return err
	}
	defer dbManager.Close()
	if err := dbManager.RunMigrations(); err != nil {
		return err
	}
	tokens, err := tokenstore.New(dbManager.DB(), cfg.TokenStoreKey)
	if err != nil {
		return err
	}

	client := backend.New(backend.Options{
		BaseURL:  cfg.BackendURL,
		Timeout:  cfg.RequestTimeout,
		Tokens:   tokens,
		Location: cfg.Location,
		Log:      logger.Named("backend"),
	})
	if err := ensureSession(ctx, client, tokens); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	strategy := dedupe.StrategySequential
	if *batched {
		strategy = dedupe.StrategyBatched
	}
	session := upload.NewSession(upload.Options{
		ID:      uuid.New(),
		Backend: client,
		Duplicates: dedupe.New(client, dedupe.Config{
			WindowDays:        cfg.DuplicateWindowDays,
			FetchLimit:        cfg.DuplicateFetchLimit,
			MinDescriptionLen: cfg.DuplicateMinDescriptionLen,
			Strategy:          strategy,
		}, logger.Named("dedupe")),
		Runs:               services.NewUploadRunService(dbManager.DB(), logger.Named("runs")),
		Notifier:           consoleNotifier{},
		Log:                logger.Named("scan"),
		MaxImageBytes:      cfg.MaxUploadBytes,
		ProcessingEstimate: cfg.ProcessingEstimate,
		SlowWarning:        cfg.SlowProcessingWarning,
		SaveConcurrency:    cfg.SaveConcurrency,
	})
	defer session.Close()

	if err := session.SelectImage(filepath.Base(path), data); err != nil {
		return err
	}
	fmt.Printf("Processing %s...\n", filepath.Base(path))
	if err := session.Process(ctx); err != nil {
		return err
	}

	if session.State() == upload.StateDuplicatesFound {
		printItems(session.View().Transactions)
		if action == models.DuplicateActionNone {
			warnc("Re-run with -duplicates=remove or -duplicates=keep to continue.\n")
			return nil
		}
		if err := session.ResolveDuplicates(action); err != nil {
			return err
		}
	}

	items := session.View().Transactions
	printItems(items)
	if !*save {
		fmt.Printf("%d transaction(s) ready. Re-run with -save to create them.\n", len(items))
		return nil
	}

	result, err := session.Save(ctx)
	if err != nil {
		return err
	}
	for _, item := range result.Items {
		if item.Error != "" {
			errc(" FAILED ")
			fmt.Printf(" %s: %s\n", item.Description, item.Error)
		}
	}
	fmt.Printf("Saved %d, failed %d.\n", result.Saved, result.Failed)
	if result.Failed > 0 {
		return errors.New("some transactions were not saved")
	}
	return nil
}

func ensureSession(ctx context.Context, client *backend.Client, tokens *tokenstore.Store) error {
	pair, err := tokens.Tokens(ctx)
	if err != nil {
		return err
	}
	if pair.AccessToken != "" {
		return nil
	}
	if *email == "" {
		return errors.New("not logged in: pass -email and set FINTRACK_PASSWORD")
	}
	if _, err := client.Login(ctx, *email, os.Getenv("FINTRACK_PASSWORD")); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

func printItems(items []models.ExtractedTransaction) {
	for i, item := range items {
		color.New(color.BgBlue, color.FgWhite).Printf(" [%2d of %2d] ", i+1, len(items))
		if item.IsDuplicate {
			color.New(color.BgYellow, color.FgBlack).Printf(" DUPLICATE ")
		}
		sign := "-"
		c := color.New(color.FgRed)
		if item.TransactionType == models.TransactionTypeIncome {
			sign = "+"
			c = color.New(color.FgGreen)
		}
		fmt.Printf(" %s %-40.40s ", item.Date, item.Description)
		c.Printf("%s%s", sign, item.Amount.StringFixed(2))
		if item.CategoryName != "" {
			fmt.Printf("  (%s)", item.CategoryName)
		}
		fmt.Println()
	}
}
