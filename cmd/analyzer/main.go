package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/infrastructure/gateway"
	"github.com/bimakw/chain-analytics/internal/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	network := flag.String("network", "ethereum", "network to query")
	address := flag.String("address", "", "address to analyze")
	tx := flag.String("tx", "", "transaction hash to analyze")
	addresses := flag.String("addresses", "", "comma-separated portfolio addresses, network:address or bare")
	action := flag.String("action", "", "one of "+strings.Join(actionNames(), ", "))
	days := flag.Int("days", 0, "only consider transactions from the last N days")
	contamination := flag.Float64("contamination", 0, "expected outlier fraction, overrides the config")
	flag.Parse()

	if _, ok := actions[*action]; !ok {
		flag.Usage()
		os.Exit(2)
	}

	contaminationSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "contamination" {
			contaminationSet = true
		}
	})
	override, err := contaminationOverride(*contamination, contaminationSet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid flag: %v\n", err)
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.File == "" {
		log.Warn("Config file not found, using environment and defaults", zap.String("path", *configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := gateway.New(cfg, nil, log)
	defer gw.Close()

	chain := services.NewChainService(gw.Repository, nil, log)
	anomaly := services.NewAnomalyService(cfg.Anomaly, nil, log)
	if override != nil {
		anomaly = anomaly.WithContamination(*override)
	}

	portfolioCfg := cfg.Portfolio
	if *addresses != "" {
		portfolioCfg.Addresses = strings.Split(*addresses, ",")
	}
	portfolio := services.NewPortfolioService(chain, portfolioCfg, nil, log)

	a := &analyzer{
		chain:     chain,
		portfolio: portfolio,
		anomaly:   anomaly,
		out:       os.Stdout,
	}

	if err := a.run(ctx, *action, request{
		Network: *network,
		Address: *address,
		Hash:    *tx,
		Days:    *days,
	}); err != nil {
		log.Error("Action aborted", zap.String("action", *action), zap.Error(err))
		os.Exit(1)
	}
}
