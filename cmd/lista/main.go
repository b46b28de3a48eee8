package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	apiKey    string
	workspace string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lista",
	Short: "listacerta - lista de compras com sugestões e comparação de preços",
	Long: `listacerta keeps a shopping list in a local SQLite file.

Typing a product name asks Gemini for matching products (with a generated
photo each), and the list can be priced at supermarkets near a city or
coordinates before the purchase is archived in the history.

Run without arguments to start the interactive interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY and config)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory holding .lista/ (default: current directory)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Timeout for each Gemini call (default: llm.timeout from config)")

	qtyFlag(addCmd)
	addCmd.Flags().String("image", "", "Image URL to attach to the item")

	compareCmd.Flags().String("city", "", "City to search supermarkets in")
	compareCmd.Flags().String("state", "", "State (UF) of the city")
	compareCmd.Flags().Float64("lat", 0, "Latitude (use with --lon instead of --city/--state)")
	compareCmd.Flags().Float64("lon", 0, "Longitude")
	compareCmd.Flags().Bool("markdown", false, "Print the raw markdown report instead of rendering it")

	suggestCmd.Flags().Bool("no-images", false, "Skip product photo generation")
	suggestCmd.Flags().Int("pick", 0, "Add the Nth suggestion to the list")

	historyCmd.Flags().Bool("items", false, "List the items of each purchase")

	serveCmd.Flags().String("addr", "", "Listen address (default: server.addr from config)")

	usageCmd.Flags().Int("recent", 10, "Number of recent calls to show")

	rootCmd.AddCommand(
		addCmd,
		listCmd,
		removeCmd,
		toggleCmd,
		qtyCmd,
		suggestCmd,
		compareCmd,
		completeCmd,
		historyCmd,
		reuseCmd,
		serveCmd,
		usageCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
