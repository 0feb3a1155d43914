package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"sugarcube-l10n/internal/config"
	"sugarcube-l10n/internal/filewalker"
	"sugarcube-l10n/internal/pipeline"
)

var cfgFile string

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "sugarcube-l10n",
		Short: "Extract translatable units from SugarCube/Twee stories",
		Long: `Splits Twee source files into passages, classifies passage bodies into
comments, macros, HTML tags, plain text and scripts, pairs block macros and tags
into a nested hierarchy and groups the result into translation chunks.

Example usage:
  sugarcube-l10n extract ./story            # Parse and store the corpus
  sugarcube-l10n validate ./story           # Check the corpus for structural problems
  sugarcube-l10n chunks ./story ./paratranz # Export translation units`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML or TOML config file")

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(chunksCmd())
	rootCmd.AddCommand(blocksCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// openGraph connects to Neo4j.
func openGraph(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Str("uri", cfg.Neo4jURI).Msg("Connected to Neo4j")
	return driver, nil
}

// runPipeline walks root and runs the corpus pipeline with a progress bar.
func runPipeline(ctx context.Context, cfg *config.Config, root string) (*pipeline.Result, error) {
	w := filewalker.NewWalker(cfg.SourceSuffix, cfg.Excludes)
	files, err := w.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walk source directory: %w", err)
	}
	log.Info().Str("root", root).Int("files", len(files)).Msg("Starting extraction")

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Extracting[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	result, err := pipeline.Run(ctx, files, pipeline.Options{
		Workers: cfg.WorkerCount,
		Chunker: cfg.Chunker(),
		OnFile:  func() { _ = bar.Add(1) },
	})
	_ = bar.Finish()
	if err != nil {
		return nil, err
	}
	return result, nil
}
