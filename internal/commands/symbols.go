package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vp-back/internal/database"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/logger"
	"github.com/vp-back/pkg/models"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Manage the symbol registry",
}

var symbolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered symbols",
	RunE:  runSymbolsList,
}

var symbolsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Register the configured symbols in MySQL",
	Long: `Insert the symbols from PROFILE_SYMBOLS into the registry,
marking them active. Existing rows are refreshed.`,
	RunE: runSymbolsSync,
}

var symbolsRemoveCmd = &cobra.Command{
	Use:   "remove <symbol>",
	Short: "Deactivate a symbol in the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbolsRemove,
}

func init() {
	symbolsCmd.AddCommand(symbolsListCmd)
	symbolsCmd.AddCommand(symbolsSyncCmd)
	symbolsCmd.AddCommand(symbolsRemoveCmd)
	rootCmd.AddCommand(symbolsCmd)
}

func symbolsClient() (*database.MySQLClient, *config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("Note: .env file not loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	mysqlClient, err := database.NewMySQLClient(&cfg.MySQL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	return mysqlClient, cfg, nil
}

func runSymbolsList(cmd *cobra.Command, args []string) error {
	mysqlClient, _, err := symbolsClient()
	if err != nil {
		return err
	}
	defer mysqlClient.Close()

	symbols, err := mysqlClient.GetSymbols(context.Background())
	if err != nil {
		return err
	}

	if len(symbols) == 0 {
		fmt.Println("No symbols registered. Run: vp-back symbols sync")
		return nil
	}

	for _, s := range symbols {
		fmt.Printf("%-12s %-10s %s/%s\n", s.Symbol, s.Exchange, s.BaseCurrency, s.QuoteCurrency)
	}
	return nil
}

func runSymbolsSync(cmd *cobra.Command, args []string) error {
	mysqlClient, cfg, err := symbolsClient()
	if err != nil {
		return err
	}
	defer mysqlClient.Close()

	ctx := context.Background()
	for _, symbol := range cfg.Profile.Symbols {
		base, quote := splitPair(symbol)
		info := &models.SymbolInfo{
			Exchange:      cfg.Exchange.Source,
			Symbol:        symbol,
			BaseCurrency:  base,
			QuoteCurrency: quote,
			IsActive:      true,
		}
		if err := mysqlClient.UpsertSymbol(ctx, info); err != nil {
			return fmt.Errorf("failed to register %s: %w", symbol, err)
		}
		fmt.Printf("registered %s\n", symbol)
	}

	return nil
}

func runSymbolsRemove(cmd *cobra.Command, args []string) error {
	mysqlClient, cfg, err := symbolsClient()
	if err != nil {
		return err
	}
	defer mysqlClient.Close()

	ctx := context.Background()
	symbol := args[0]

	info, err := mysqlClient.GetSymbol(ctx, cfg.Exchange.Source, symbol)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("symbol %s is not registered", symbol)
	}
	if !info.IsActive {
		fmt.Printf("%s is already inactive\n", symbol)
		return nil
	}

	if err := mysqlClient.DeactivateSymbol(ctx, cfg.Exchange.Source, symbol); err != nil {
		return err
	}
	fmt.Printf("deactivated %s\n", symbol)
	return nil
}

// splitPair splits "BTC/USD" into base and quote. Concatenated forms
// like BTCUSDT fall back to the common quote suffixes.
func splitPair(symbol string) (base, quote string) {
	if base, quote, ok := strings.Cut(symbol, "/"); ok {
		return base, quote
	}
	for _, suffix := range []string{"USDT", "USDC", "USD", "EUR", "BTC", "ETH"} {
		if strings.HasSuffix(symbol, suffix) && len(symbol) > len(suffix) {
			return strings.TrimSuffix(symbol, suffix), suffix
		}
	}
	return symbol, ""
}
