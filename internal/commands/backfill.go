package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vp-back/internal/database"
	"github.com/vp-back/internal/exchange"
	"github.com/vp-back/internal/services"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/logger"
)

var (
	backfillSymbol   string
	backfillInterval string
	backfillDays     int
	backfillAll      bool
	backfillSource   string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill historical candles into InfluxDB",
	Long: `Backfill historical OHLCV candles from an exchange into InfluxDB.

Examples:
  # Backfill 30 days of 1-hour candles for BTC/USD from Kraken
  vp-back backfill --symbol BTC/USD --interval 1h --days 30

  # Backfill 365 days of daily candles for ETHUSDT from Binance
  vp-back backfill --symbol ETHUSDT --source binance --interval 1d --days 365

  # Backfill every registered symbol
  vp-back backfill --all --interval 1h --days 90`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillSymbol, "symbol", "", "Symbol to backfill (e.g. BTC/USD)")
	backfillCmd.Flags().StringVar(&backfillInterval, "interval", "1h", "Candle interval (1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w)")
	backfillCmd.Flags().IntVar(&backfillDays, "days", 30, "Number of days to backfill")
	backfillCmd.Flags().BoolVar(&backfillAll, "all", false, "Backfill all registered symbols")
	backfillCmd.Flags().StringVar(&backfillSource, "source", "", "Candle source (kraken, binance); defaults to EXCHANGE_SOURCE")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	if !backfillAll && backfillSymbol == "" {
		return fmt.Errorf("either --symbol or --all must be specified")
	}
	if backfillAll && backfillSymbol != "" {
		return fmt.Errorf("cannot specify both --symbol and --all")
	}

	validIntervals := []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d", "1w"}
	valid := false
	for _, v := range validIntervals {
		if v == backfillInterval {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid interval: %s. Valid intervals: %s", backfillInterval, strings.Join(validIntervals, ", "))
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("Note: .env file not loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return err
	}

	sourceName := backfillSource
	if sourceName == "" {
		sourceName = cfg.Exchange.Source
	}

	var source exchange.CandleSource
	switch sourceName {
	case "binance":
		source = exchange.NewBinanceRESTClient(&cfg.Exchange, log)
	case "kraken", "":
		source = exchange.NewKrakenRESTClient(&cfg.Exchange, log)
	default:
		return fmt.Errorf("unknown source: %q", sourceName)
	}

	influxClient := database.NewInfluxClient(&cfg.InfluxDB, log)
	defer influxClient.Close()

	// The registry is optional for backfills
	mysqlClient, err := database.NewMySQLClient(&cfg.MySQL, log)
	if err != nil {
		log.WithError(err).Warn("MySQL unavailable, using configured symbols")
		mysqlClient = nil
	} else {
		defer mysqlClient.Close()
	}

	backfiller := services.NewBackfiller(source, influxClient, mysqlClient, log)

	ctx := context.Background()

	if backfillAll {
		return backfiller.BackfillAll(ctx, backfillInterval, backfillDays, cfg.Profile.Symbols)
	}
	return backfiller.Backfill(ctx, backfillSymbol, backfillInterval, backfillDays)
}
