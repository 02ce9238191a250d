package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vp-back/internal/exchange"
	"github.com/vp-back/internal/profile"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/logger"
)

var (
	scanSymbol   string
	scanInterval string
	scanLimit    int
	scanBins     int
	scanVA       float64
	scanRR       float64
	scanSource   string
	scanFull     bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Compute a volume profile and signal once and print it",
	Long: `Fetch a candle window from the exchange, compute the volume
profile and evaluate the trade signal, then print the result as JSON.

No databases or brokers are required; this talks only to the exchange.

Examples:
  vp-back scan --symbol BTC/USD
  vp-back scan --symbol ETH/USD --interval 4h --limit 500
  vp-back scan --symbol BTC/USD --bins 50 --va 0.68 --rr 3
  vp-back scan --symbol BTCUSDT --source binance --full`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanSymbol, "symbol", "BTC/USD", "Symbol to scan")
	scanCmd.Flags().StringVar(&scanInterval, "interval", "1h", "Candle interval (1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w)")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 300, "Number of candles in the window")
	scanCmd.Flags().IntVar(&scanBins, "bins", 100, "Histogram bin count")
	scanCmd.Flags().Float64Var(&scanVA, "va", 0.7, "Value area volume fraction")
	scanCmd.Flags().Float64Var(&scanRR, "rr", 2.0, "Risk/reward ratio for take-profit")
	scanCmd.Flags().StringVar(&scanSource, "source", "kraken", "Candle source (kraken, binance)")
	scanCmd.Flags().BoolVar(&scanFull, "full", false, "Include the full bin histogram in the output")
}

func runScan(cmd *cobra.Command, args []string) error {
	// .env file is optional, and scan output should stay clean
	_ = config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if scanLimit < config.MinWindowLength || scanLimit > config.MaxWindowLength {
		return fmt.Errorf("limit must be between %d and %d", config.MinWindowLength, config.MaxWindowLength)
	}

	opts := profile.Options{
		BinCount:   scanBins,
		VAFraction: scanVA,
		RiskReward: scanRR,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	// Keep the terminal clean unless asked otherwise
	cfg.Logging.Level = "warn"
	if verbose {
		cfg.Logging.Level = "debug"
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return err
	}

	var source exchange.CandleSource
	switch scanSource {
	case "binance":
		source = exchange.NewBinanceRESTClient(&cfg.Exchange, log)
	case "kraken":
		source = exchange.NewKrakenRESTClient(&cfg.Exchange, log)
	default:
		return fmt.Errorf("unknown source: %q", scanSource)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	window, err := source.GetCandles(ctx, scanSymbol, scanInterval, scanLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch candles: %w", err)
	}

	vp, sig, err := profile.Compute(window, opts)
	if err != nil {
		return err
	}

	vp.Symbol = scanSymbol
	vp.Interval = scanInterval
	sig.Symbol = scanSymbol
	sig.Interval = scanInterval

	if !scanFull {
		vp.Bins = nil
	}

	out := struct {
		Profile interface{} `json:"profile"`
		Signal  interface{} `json:"signal"`
	}{Profile: vp, Signal: sig}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
