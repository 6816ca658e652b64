package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/bimakw/chain-analytics/internal/analytics/iforest"
	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// recentTransactions is how many transactions analyze_address prints
const recentTransactions = 5

// request carries the flags an action may use
type request struct {
	Network string
	Address string
	Hash    string
	Days    int
}

type analyzer struct {
	chain     *services.ChainService
	portfolio *services.PortfolioService
	anomaly   *services.AnomalyService
	out       io.Writer
	now       func() time.Time
}

type actionFunc func(a *analyzer, ctx context.Context, req request) error

var actions = map[string]actionFunc{
	"analyze_tx":       (*analyzer).analyzeTransaction,
	"analyze_address":  (*analyzer).analyzeAddress,
	"track_portfolio":  (*analyzer).trackPortfolio,
	"detect_anomalies": (*analyzer).detectAnomalies,
	"volume_data":      (*analyzer).volumeData,
}

func actionNames() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *analyzer) run(ctx context.Context, action string, req request) error {
	fn, ok := actions[action]
	if !ok {
		return fmt.Errorf("unknown action %q", action)
	}
	return fn(a, ctx, req)
}

func (a *analyzer) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func requireFlag(name, value string) error {
	if value == "" {
		return apperrors.NewValidationError(name, value, "flag -"+name+" is required for this action")
	}
	return nil
}

// contaminationOverride validates the -contamination flag. An unset flag
// keeps the configured fraction.
func contaminationOverride(value float64, set bool) (*float64, error) {
	if !set {
		return nil, nil
	}
	if !iforest.ValidContamination(value) {
		return nil, apperrors.NewValidationError("contamination", strconv.FormatFloat(value, 'g', -1, 64), "must be in (0, 0.5]")
	}
	return &value, nil
}

func (a *analyzer) historyQuery(req request) entities.HistoryQuery {
	query := entities.DefaultHistoryQuery()
	if req.Days > 0 {
		now := time.Now
		if a.now != nil {
			now = a.now
		}
		since := now().UTC().AddDate(0, 0, -req.Days)
		query.Since = &since
	}
	return query
}

func (a *analyzer) analyzeTransaction(ctx context.Context, req request) error {
	if err := requireFlag("tx", req.Hash); err != nil {
		return err
	}

	a.printf("\n--- Transaction %s ---\n", req.Hash)
	tx, err := a.chain.GetTransaction(ctx, req.Hash, req.Network)
	if err != nil {
		return err
	}
	if tx == nil {
		a.printf("Transaction not found on %s\n", req.Network)
		return nil
	}

	symbol := symbolFor(tx.Network)
	a.printf("Hash:      %s\n", tx.Hash)
	a.printf("From:      %s\n", tx.From)
	a.printf("To:        %s\n", tx.To)
	a.printf("Value:     %g %s\n", tx.Value, symbol)
	a.printf("Timestamp: %s\n", formatTime(tx.Timestamp))
	a.printf("Status:    %s\n", tx.Status)
	a.printf("Block:     %d\n", tx.BlockNumber)
	a.printf("Gas used:  %d\n", tx.GasUsed)
	a.printf("Gas price: %d\n", tx.GasPrice)
	return nil
}

func (a *analyzer) analyzeAddress(ctx context.Context, req request) error {
	if err := requireFlag("address", req.Address); err != nil {
		return err
	}

	a.printf("\n--- Address %s ---\n", req.Address)
	balance, err := a.chain.GetBalance(ctx, req.Address, req.Network)
	if err != nil {
		return err
	}
	symbol := symbolFor(balance.Network)
	a.printf("Balance: %g %s\n", balance.Value, symbol)

	history, err := a.chain.GetAddressHistory(ctx, req.Address, req.Network, a.historyQuery(req))
	if err != nil {
		return err
	}
	a.printf("Transactions: %d\n", len(history))
	if len(history) == 0 {
		a.printf("No transactions found for this address\n")
		return nil
	}

	a.printf("Most recent:\n")
	start := len(history) - recentTransactions
	if start < 0 {
		start = 0
	}
	for i := len(history) - 1; i >= start; i-- {
		tx := history[i]
		a.printf("  - %s  %g %s  %s -> %s\n", short(tx.Hash), tx.Value, symbol, short(tx.From), short(tx.To))
	}
	return nil
}

func (a *analyzer) trackPortfolio(ctx context.Context, _ request) error {
	a.printf("\n--- Portfolio ---\n")
	summary := a.portfolio.GetPortfolioSummary(ctx)
	if len(summary) == 0 {
		return apperrors.NewValidationError("addresses", "", "no addresses tracked, use -addresses or PORTFOLIO_ADDRESSES")
	}

	for _, e := range a.portfolio.Entries() {
		a.printf("  %s %s\n", e.Network, e.Address)
		if e.Failed() {
			a.printf("    Error: %s\n", e.Error)
			continue
		}
		a.printf("    Balance: %g %s\n", e.Balance, symbolFor(e.Network))
		a.printf("    Transactions: %d\n", e.TransactionCount)
	}

	allocation := services.BuildAllocation(a.portfolio.Entries())
	symbols := make([]string, 0, len(allocation))
	for s := range allocation {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	a.printf("Allocation:\n")
	for _, s := range symbols {
		a.printf("  %s: %g\n", s, allocation[s])
	}

	// Batch errors are reported per entry, a context error ends the run
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (a *analyzer) detectAnomalies(ctx context.Context, req request) error {
	if err := requireFlag("address", req.Address); err != nil {
		return err
	}

	history, err := a.chain.GetAddressHistory(ctx, req.Address, req.Network, a.historyQuery(req))
	if err != nil {
		return err
	}

	a.printf("\n--- Anomalies for %s (contamination %g) ---\n", req.Address, a.anomaly.Contamination())
	flagged := a.anomaly.DetectTransactions(history)
	a.printf("Analyzed %d transactions, %d flagged\n", len(history), len(flagged))
	for _, f := range flagged {
		a.printf("  #%d %v  value=%v  score=%.3f\n", f.Index, f.Record["hash"], f.Record["value"], f.Score)
	}
	return nil
}

func (a *analyzer) volumeData(ctx context.Context, req request) error {
	if err := requireFlag("address", req.Address); err != nil {
		return err
	}

	history, err := a.chain.GetAddressHistory(ctx, req.Address, req.Network, a.historyQuery(req))
	if err != nil {
		return err
	}

	points := services.BuildDailyVolume(history)
	if len(points) == 0 {
		return errors.New("no timestamped transactions to chart")
	}

	a.printf("day,value,count\n")
	for _, p := range points {
		a.printf("%s,%g,%d\n", p.Day.Format("2006-01-02"), p.Value, p.Count)
	}
	return nil
}

func symbolFor(network string) string {
	if n, ok := entities.LookupNetwork(network); ok {
		return n.Symbol
	}
	return ""
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

func short(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:10] + "..."
}
