// Package dedupe flags freshly extracted transactions that already exist in
// the backend. Flags are advisory; nothing is ever removed here.
package dedupe

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"fintrack/internal/models"
)

// Strategy selects how existing transactions are fetched.
type Strategy string

const (
	// StrategySequential fetches one window per candidate, in order.
	StrategySequential Strategy = "sequential"
	// StrategyBatched fetches a single range covering every candidate.
	StrategyBatched Strategy = "batched"
)

const (
	DefaultWindowDays = 30
	DefaultFetchLimit = 100
	maxBatchedLimit   = 1000
)

// TransactionLister fetches existing transactions from the backend.
type TransactionLister interface {
	ListTransactions(ctx context.Context, query models.TransactionQuery) (*models.TransactionPage, error)
}

// Config tunes a Detector.
type Config struct {
	WindowDays        int
	FetchLimit        int
	MinDescriptionLen int
	Strategy          Strategy
}

// Match marks candidate Index as a duplicate of backend transaction DuplicateID.
type Match struct {
	Index       int
	DuplicateID string
}

// Detector finds duplicates among extracted transactions.
type Detector struct {
	lister TransactionLister
	cfg    Config
	log    *zap.SugaredLogger
}

// New creates a Detector. Zero config values take the defaults.
func New(lister TransactionLister, cfg Config, log *zap.SugaredLogger) *Detector {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySequential
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Detector{lister: lister, cfg: cfg, log: log}
}

// Find returns one Match per candidate that duplicates an existing
// transaction, in candidate order. Fetch errors are logged and the affected
// candidates are treated as unique.
func (d *Detector) Find(ctx context.Context, candidates []models.ExtractedTransaction) []Match {
	if len(candidates) == 0 {
		return nil
	}
	if d.cfg.Strategy == StrategyBatched {
		return d.findBatched(ctx, candidates)
	}
	return d.findSequential(ctx, candidates)
}

// Detect returns the flagged subset of candidates, each copy annotated with
// IsDuplicate and DuplicateID.
func (d *Detector) Detect(ctx context.Context, candidates []models.ExtractedTransaction) []models.ExtractedTransaction {
	matches := d.Find(ctx, candidates)
	flagged := make([]models.ExtractedTransaction, 0, len(matches))
	for _, m := range matches {
		item := candidates[m.Index]
		item.IsDuplicate = true
		item.DuplicateID = m.DuplicateID
		flagged = append(flagged, item)
	}
	return flagged
}

// Apply returns a copy of candidates with the duplicate flags from matches set
// and every other flag cleared.
func Apply(candidates []models.ExtractedTransaction, matches []Match) []models.ExtractedTransaction {
	out := make([]models.ExtractedTransaction, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].IsDuplicate = false
		out[i].DuplicateID = ""
	}
	for _, m := range matches {
		if m.Index >= 0 && m.Index < len(out) {
			out[m.Index].IsDuplicate = true
			out[m.Index].DuplicateID = m.DuplicateID
		}
	}
	return out
}

func (d *Detector) window(date civil.Date) (civil.Date, civil.Date) {
	return date.AddDays(-d.cfg.WindowDays), date.AddDays(d.cfg.WindowDays)
}

func (d *Detector) findSequential(ctx context.Context, candidates []models.ExtractedTransaction) []Match {
	var matches []Match
	for i, candidate := range candidates {
		if !candidate.Date.IsValid() {
			d.log.Warnw("Skipping duplicate check for undated transaction", "index", i, "description", candidate.Description)
			continue
		}
		start, end := d.window(candidate.Date)
		page, err := d.lister.ListTransactions(ctx, models.TransactionQuery{
			StartDate: start,
			EndDate:   end,
			Limit:     d.cfg.FetchLimit,
		})
		if err != nil {
			d.log.Warnw("Duplicate check failed, treating transaction as unique",
				"index", i,
				"description", candidate.Description,
				"error", err,
			)
			continue
		}
		if id, ok := firstDuplicate(candidate, page.Transactions, d.cfg.MinDescriptionLen); ok {
			matches = append(matches, Match{Index: i, DuplicateID: id})
		}
	}
	return matches
}

func (d *Detector) findBatched(ctx context.Context, candidates []models.ExtractedTransaction) []Match {
	var first, last civil.Date
	dated := 0
	for _, c := range candidates {
		if !c.Date.IsValid() {
			continue
		}
		if dated == 0 || c.Date.Before(first) {
			first = c.Date
		}
		if dated == 0 || c.Date.After(last) {
			last = c.Date
		}
		dated++
	}
	if dated == 0 {
		return nil
	}

	start, _ := d.window(first)
	_, end := d.window(last)
	limit := min(d.cfg.FetchLimit*dated, maxBatchedLimit)

	page, err := d.lister.ListTransactions(ctx, models.TransactionQuery{StartDate: start, EndDate: end, Limit: limit})
	if err != nil {
		d.log.Warnw("Batched duplicate check failed, treating all transactions as unique",
			"candidates", len(candidates),
			"error", err,
		)
		return nil
	}

	var matches []Match
	for i, candidate := range candidates {
		if !candidate.Date.IsValid() {
			continue
		}
		if id, ok := firstDuplicate(candidate, page.Transactions, d.cfg.MinDescriptionLen); ok {
			matches = append(matches, Match{Index: i, DuplicateID: id})
		}
	}
	return matches
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategySequential:
		return StrategySequential, nil
	case StrategyBatched:
		return StrategyBatched, nil
	}
	return "", fmt.Errorf("unknown duplicate strategy %q", s)
}
