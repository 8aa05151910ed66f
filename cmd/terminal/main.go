package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-analytics-terminal/internal/api"
	"trade-analytics-terminal/internal/backup"
	"trade-analytics-terminal/internal/config"
	"trade-analytics-terminal/internal/database"
	"trade-analytics-terminal/internal/journal"
	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/logger"
	"trade-analytics-terminal/internal/market"
	"trade-analytics-terminal/internal/parser"
	"trade-analytics-terminal/internal/quotes"
	"trade-analytics-terminal/internal/report"
)

const shutdownTimeout = 10 * time.Second

// app holds the services shared by every command.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	journal  *journal.Journal
	settings *journal.SettingsStore
	market   *market.Service
	backup   *backup.Service
	engine   *ledger.Engine
}

func newApp(configDir string) (*app, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection successful and schema migrated.")

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		journal:  journal.NewJournal(db, log, parser.NewParser(cfg.Contracts.Traders)),
		settings: journal.NewSettingsStore(db, log),
		market:   market.NewService(db, log),
		backup:   backup.NewService(db, log),
		engine:   ledger.NewEngine(log, cfg.Contracts.Multipliers()),
	}, nil
}

func configDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "./configs"
}

var serveCmd = &cobra.Command{
	Use:   "serve [config-dir]",
	Short: "Run the HTTP API and, when enabled, the quote poller",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(configDir(args))
		if err != nil {
			return err
		}
		defer a.log.Sync()
		return serve(a)
	},
}

func serve(a *app) error {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		a.log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if a.cfg.Quotes.Enabled {
		client, err := quotes.NewClient(&a.cfg.Quotes, a.log)
		if err != nil {
			return fmt.Errorf("failed to create quotes client: %w", err)
		}
		interval := time.Duration(a.cfg.Quotes.PollInterval) * time.Second
		go market.NewPoller(a.log, client, a.market, interval).Run(ctx)
	}

	h := api.NewHandler(a.log, a.cfg.Contracts, a.journal, a.settings, a.market, a.backup, a.engine)
	server := api.NewAPIServer(a.cfg.Server.Port, h, a.cfg.Server.StaticDir, a.log)
	errCh := make(chan error, 1)
	server.Start(errCh)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Stop(shutdownCtx); err != nil {
		a.log.Error("Failed to stop API server", zap.Error(err))
	}
	a.log.Info("Terminal has been shut down.")
	return serveErr
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse confirmation text from a file or stdin and print the trades",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			text []byte
			err  error
		)
		if len(args) == 1 {
			text, err = os.ReadFile(args[0])
		} else {
			text, err = readAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		traders, err := parseTraders(cmd)
		if err != nil {
			return err
		}
		parsed := parser.NewParser(traders).ParseText(string(text))

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Trader", "Product", "Contract", "Quantity", "Price", "Valid", "Error"})
		for _, p := range parsed {
			table.Append([]string{
				p.Trader,
				p.Product,
				p.Contract,
				fmt.Sprintf("%g", p.Quantity),
				fmt.Sprintf("%g", p.Price),
				fmt.Sprintf("%t", p.Valid),
				p.Error,
			})
		}
		table.Render()
		fmt.Fprintf(cmd.OutOrStdout(), "%d trades parsed\n", len(parsed))
		return nil
	},
}

// parseTraders returns the --traders flag when given, otherwise the
// contracts.traders list of the --config directory, the same list serve uses.
func parseTraders(cmd *cobra.Command) ([]string, error) {
	if cmd.Flags().Changed("traders") {
		return cmd.Flags().GetStringSlice("traders")
	}
	dir, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	return cfg.Contracts.Traders, nil
}

var reportCmd = &cobra.Command{
	Use:   "report [config-dir]",
	Short: "Print the AI context or dashboard report of the stored book",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := cmd.Flags().GetString("kind")
		if err != nil {
			return err
		}
		since, err := cmd.Flags().GetString("since")
		if err != nil {
			return err
		}
		render, err := cmd.Flags().GetBool("render")
		if err != nil {
			return err
		}

		a, err := newApp(configDir(args))
		if err != nil {
			return err
		}
		defer a.log.Sync()

		text, err := buildReport(cmd.Context(), a, kind, since)
		if err != nil {
			return err
		}
		if render {
			if text, err = report.Terminal(text); err != nil {
				return err
			}
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	},
}

func buildReport(ctx context.Context, a *app, kind, filter string) (string, error) {
	var since time.Time
	if filter != "" {
		var err error
		if since, err = time.Parse(ledger.DayLayout, filter); err != nil {
			return "", fmt.Errorf("since must be YYYY-MM-DD: %w", err)
		}
	}

	settings, err := a.settings.Load(ctx)
	if err != nil {
		return "", err
	}
	trades, err := a.journal.Active(ctx, since)
	if err != nil {
		return "", err
	}
	book, err := a.market.PriceMap(ctx)
	if err != nil {
		return "", err
	}
	positions, history := a.engine.Rebuild(trades, settings)
	valuation := a.engine.Value(positions, book, settings)
	initial := settings.InitialRealizedPL
	if filter != "" {
		initial = 0
	}
	realized := ledger.RealizedTotal(history, initial, since)
	now := time.Now().UTC()

	switch kind {
	case "context":
		prices, err := a.market.Prices(ctx, "", "")
		if err != nil {
			return "", err
		}
		return report.AIContext(report.ContextInput{
			Generated: now,
			Valuation: valuation,
			History:   history,
			Realized:  realized,
			Prices:    prices,
		}), nil
	case "dashboard":
		daily, err := a.market.LatestDailyPackage(ctx)
		if err != nil && !errors.Is(err, market.ErrNoDailyPackage) {
			return "", err
		}
		return report.Dashboard(report.DashboardInput{
			Now:        now,
			FilterDate: filter,
			Valuation:  valuation,
			History:    history,
			Realized:   realized,
			Settings:   settings,
			Daily:      daily,
		}), nil
	default:
		return "", fmt.Errorf("unknown report kind %q", kind)
	}
}

var rootCmd = &cobra.Command{
	Use:          "terminal",
	Short:        "Contract trade analytics terminal",
	SilenceUsage: true,
}

func init() {
	parseCmd.Flags().String("config", "./configs", "Config directory to read contracts.traders from.")
	parseCmd.Flags().StringSlice("traders", nil, "Known trader codes, overriding the config; the first is the default.")
	reportCmd.Flags().String("kind", "dashboard", "Report to print: context or dashboard.")
	reportCmd.Flags().String("since", "", "Only include trades on or after this day (YYYY-MM-DD).")
	reportCmd.Flags().Bool("render", false, "Render the markdown for the terminal.")

	rootCmd.AddCommand(serveCmd, parseCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
