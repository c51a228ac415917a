package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/answer"
	"docqa/internal/markdown"
	"docqa/internal/service"
	"docqa/internal/tui"
)

var (
	skipIngest bool
	session    string
	asJSON     bool
	streamOut  bool
	noExamples bool
	kind       string
)

func init() {
	for _, c := range []*cobra.Command{askCmd, chatCmd, watchCmd} {
		c.Flags().BoolVar(&skipIngest, "skip-ingest", false, "Reuse the existing index (persistent store and remote embedder only)")
	}
	askCmd.Flags().StringVar(&session, "session", "", "Session id whose history is used and extended")
	askCmd.Flags().BoolVar(&asJSON, "json", false, "Print the answer with its blocks and sources as JSON")
	askCmd.Flags().BoolVar(&streamOut, "stream", false, "Print stream events as JSON lines")

	cleanCmd.Flags().BoolVar(&noExamples, "no-examples", false, "Do not add the alternate include/import example")
	cleanCmd.Flags().StringVar(&kind, "kind", "answer", "answer, markdown (index cleaning) or code")
	blocksCmd.Flags().BoolVar(&noExamples, "no-examples", false, "Do not add the alternate include/import example")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// prepare builds the service and indexes roots unless --skip-ingest is set.
func prepare(ctx context.Context, args []string) (*app, string, error) {
	a, err := buildApp(ctx)
	if err != nil {
		return nil, "", err
	}
	if skipIngest {
		return a, "", nil
	}
	start := time.Now()
	summary, err := a.svc.IngestDocuments(ctx, roots(args))
	if err != nil {
		a.close()
		return nil, "", fmt.Errorf("ingest failed: %w", err)
	}
	logger.Info("ingest finished", zap.Duration("took", time.Since(start)))
	return a, summary, nil
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Index documentation and print a summary of it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, summary, err := prepare(ctx, args)
		if err != nil {
			return err
		}
		defer a.close()
		n, err := a.svc.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks.\n\n%s\n", n, summary)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the configured docs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, _, err := prepare(ctx, nil)
		if err != nil {
			return err
		}
		defer a.close()
		question := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		if streamOut {
			events, err := a.svc.AskStream(ctx, session, question)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			for ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		}

		ans, err := a.svc.Ask(ctx, session, question)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(ans)
		}
		fmt.Fprintln(out, ans.Text)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat [paths...]",
	Short: "Index docs and open the interactive chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, summary, err := prepare(ctx, args)
		if err != nil {
			return err
		}
		defer a.close()
		_, err = tea.NewProgram(tui.New(a.svc, summary), tea.WithAltScreen()).Run()
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Index docs and re-index whenever they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, _, err := prepare(ctx, args)
		if err != nil {
			return err
		}
		defer a.close()
		w, err := service.NewWatcher(a.svc, roots(args), cfg.Docs.SkipDirs, logger)
		if err != nil {
			return err
		}
		logger.Info("watching docs", zap.Strings("roots", roots(args)))
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean [file]",
	Short: "Print the canonical form of an answer or document (stdin when no file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		var out string
		switch kind {
		case "answer":
			res := answer.Normalize(text, !noExamples)
			for _, n := range res.Notes {
				logger.Info("auto-corrected", zap.String("note", n))
			}
			out = res.Text
		case "markdown", "code":
			out = markdown.Clean(text, markdown.Kind(kind))
		default:
			return fmt.Errorf("unknown kind: %s", kind)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var blocksCmd = &cobra.Command{
	Use:   "blocks [file]",
	Short: "Print the renderer blocks of an answer as JSON (stdin when no file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		blocks, err := answer.BuildBlocks(answer.Normalize(text, !noExamples).Text)
		if err != nil {
			logger.Warn("block extraction failed", zap.Error(err))
		}
		if blocks == nil {
			blocks = []markdown.Block{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(blocks)
	},
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		return string(data), err
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	return string(data), err
}
