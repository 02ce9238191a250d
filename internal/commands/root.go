package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vp-back",
	Short: "Volume Profile Scanner Backend",
	Long: `A market-data backend that computes volume profiles over rolling
candle windows and derives mean-reversion trade signals from the
value area boundaries.

Features:
• Volume profile histogram with POC and value area (VAH/VAL)
• LONG/SHORT/WAIT signal evaluation with stop-loss and take-profit
• Kraken and Binance candle suppliers with live kline streaming
• Redis caching, InfluxDB persistence and NATS distribution
• REST API and WebSocket push for profiles and signals`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
