package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/logging"
	"docqa/internal/service"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docqa",
		Short: "Question answering over project documentation",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
		SilenceUsage: true,
	}

	cfgPath  string
	logLevel string

	cfg    *config.AppConfig
	logger *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger == nil {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
	_ = logger.Sync()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML config file (default ./config.yaml or ~/.config/docqa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(ingestCmd, askCmd, chatCmd, cleanCmd, blocksCmd, watchCmd)
}

func loadConfig() error {
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err = logging.New(cfg.Log)
	return err
}

// app holds the assembled service and whatever must be released on exit.
type app struct {
	svc   *service.RAGServiceImpl
	close func() error
}

func buildApp(ctx context.Context) (*app, error) {
	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := newVectorStore(cfg)
	if err != nil {
		return nil, err
	}
	sum, err := newSummarizer(cfg)
	if err != nil {
		closeStore()
		return nil, err
	}
	model, err := newChatModel(ctx, cfg)
	if err != nil {
		closeStore()
		return nil, err
	}
	logger.Debug("components assembled",
		zap.String("embedder", emb.Name()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("model", model.Name()),
	)
	svc := service.NewRAGService(cfg, newChunker(cfg), emb, store, sum, model, logger)
	return &app{svc: svc, close: closeStore}, nil
}

// roots returns the command arguments, or the configured roots when there are none.
func roots(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Docs.Roots
}
