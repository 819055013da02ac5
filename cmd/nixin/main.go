package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nixin/internal/assistant"
	"nixin/internal/config"
	"nixin/internal/embedding"
	"nixin/internal/intent"
	"nixin/internal/logging"
	"nixin/internal/memory"
)

var (
	// Global flags
	verbose    bool
	configPath string
	backend    string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nixin",
	Short: "nixin - context-aware assistant",
	Long: `nixin is a context-aware assistant with persistent memory.

It extracts time and person entities from natural language, classifies
intent through one of several backends (rule-based, embeddings,
zero-shot, or a remote LLM), plans an action with a rationale, and
executes it against a local SQLite memory.

Run without arguments to start the interactive prompt.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize("."); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// runCmd processes a single input and exits.
var runCmd = &cobra.Command{
	Use:   "run [text]",
	Short: "Process one input through the pipeline",
	Long: `Processes a natural language input through the full pipeline:
  1. Extract time and person entities
  2. Classify intent via the configured backend
  3. Plan an action with a rationale
  4. Execute the action against memory and print the response`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOnce,
}

// backendsCmd classifies the same input with every backend.
var backendsCmd = &cobra.Command{
	Use:   "backends [text]",
	Short: "Compare every classification backend on one input",
	Long: `Runs the same input through every available backend and prints a
table of (backend, intent, confidence, fallback). Backends that need
missing credentials report the error instead of a row of numbers.

Example:
  nixin backends "remind me to pay the electricity bill"`,
	Args: cobra.MinimumNArgs(1),
	RunE: compareBackends,
}

// memoryCmd prints the persistent memory snapshot.
var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Show the persistent memory snapshot",
	RunE:  showMemory,
}

// statusCmd reports the effective configuration.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show effective configuration and backend",
	RunE:  showStatus,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "nixin.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "", "Intent backend (rule, embedding, zeroshot, remote)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Per-request timeout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves config file, env overrides, and the backend flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Intent.Backend = backend
	}
	return cfg, nil
}

// newEngine opens the memory store and wires the pipeline. The
// embedding engine is shared between recall and the embedding backend;
// engines that cannot be constructed (no key, no endpoint) leave
// recall on lexical fallback.
func newEngine(cfg *config.Config) (*assistant.Engine, *memory.Store, error) {
	var engine embedding.Engine
	if e, err := embedding.NewEngine(cfg.Embedding); err != nil {
		logger.Debug("embedding engine unavailable", zap.Error(err))
	} else {
		engine = e
	}

	store, err := memory.Open(cfg.Memory.DatabasePath, engine)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	asst, err := assistant.New(cfg, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return asst, store, nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	asst, store, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	return processAndPrint(ctx, asst, strings.Join(args, " "))
}

func processAndPrint(ctx context.Context, asst *assistant.Engine, text string) error {
	trace, err := asst.Process(ctx, text)
	if err != nil {
		if errors.Is(err, intent.ErrCredentialsRequired) {
			return fmt.Errorf("backend %q needs an API key (set ANTHROPIC_API_KEY or remote.api_key): %w",
				asst.Backend(), err)
		}
		return err
	}

	fmt.Printf("Intent:     %s (%.2f via %s)\n", trace.Outcome.Intent, trace.Outcome.Confidence, trace.Outcome.Backend)
	if len(trace.Extraction.Entities) > 0 {
		parts := make([]string, 0, len(trace.Extraction.Entities))
		for _, e := range trace.Extraction.Entities {
			parts = append(parts, fmt.Sprintf("%s=%q", e.Kind, e.Text))
		}
		fmt.Printf("Entities:   %s\n", strings.Join(parts, ", "))
	}
	fmt.Printf("Reasoning:  %s\n", trace.Plan.Reasoning)
	fmt.Printf("Response:   %s\n", trace.Response)
	return nil
}

func runInteractive() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	asst, store, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	fmt.Printf("nixin %s (backend: %s). Type 'exit' to quit.\n", cfg.Version, asst.Backend())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reqCtx, reqCancel := context.WithTimeout(ctx, timeout)
		if err := processAndPrint(reqCtx, asst, line); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		reqCancel()

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

func compareBackends(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	asst, store, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	text := strings.Join(args, " ")
	fmt.Printf("Input: %q\n\n", text)
	fmt.Printf("%-12s %-18s %-12s %s\n", "BACKEND", "INTENT", "CONFIDENCE", "NOTE")

	for _, report := range asst.CompareBackends(ctx, text) {
		if report.Err != nil {
			fmt.Printf("%-12s %-18s %-12s %v\n", report.Backend, "-", "-", report.Err)
			continue
		}
		note := ""
		if report.FellBack {
			note = "fell back to rules"
		}
		fmt.Printf("%-12s %-18s %-12.2f %s\n", report.Backend, report.Intent, report.Confidence, note)
	}
	return nil
}

func showMemory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := memory.Open(cfg.Memory.DatabasePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open memory store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	snap, err := store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Memory at %s\n\n", store.Path())

	fmt.Printf("Preferences (%d):\n", len(snap.Preferences))
	for k, v := range snap.Preferences {
		fmt.Printf("  %s = %s\n", k, v)
	}

	fmt.Printf("\nTasks (%d):\n", len(snap.Tasks))
	for _, task := range snap.Tasks {
		fmt.Printf("  [%s] %s (%s)\n", task.CreatedAt, task.Task, task.Time)
	}

	fmt.Printf("\nConversations (%d):\n", len(snap.Conversations))
	for _, text := range snap.Conversations {
		fmt.Printf("  %s\n", text)
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("nixin %s\n", cfg.Version)
	fmt.Printf("  config:    %s\n", configPath)
	fmt.Printf("  backend:   %s\n", cfg.Intent.Backend)
	fmt.Printf("  database:  %s\n", cfg.Memory.DatabasePath)
	fmt.Printf("  embedding: %s (%s)\n", cfg.Embedding.Provider, embeddingModel(cfg))
	if cfg.Remote.APIKey != "" {
		fmt.Printf("  remote:    %s (key set)\n", cfg.Remote.Model)
	} else {
		fmt.Printf("  remote:    %s (no key)\n", cfg.Remote.Model)
	}
	return nil
}

func embeddingModel(cfg *config.Config) string {
	if cfg.Embedding.Provider == "genai" {
		return cfg.Embedding.GenAIModel
	}
	return cfg.Embedding.OllamaModel
}
