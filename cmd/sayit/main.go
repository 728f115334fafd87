// Package main provides the CLI entrypoint for sayit.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/sayit/internal/capture"
	"github.com/verte-zerg/sayit/internal/config"
	"github.com/verte-zerg/sayit/internal/dataset"
	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/observe"
	"github.com/verte-zerg/sayit/internal/recognizer/vosk"
	"github.com/verte-zerg/sayit/internal/session"
	"github.com/verte-zerg/sayit/internal/store"
)

const defaultLogLevel = "info"

var version = "dev"

var (
	rootLogLevel    string
	rootDBPath      string
	rootDatasetsDir string
	rootSampleSize  int
	rootFallback    bool
	rootMaxAttempts int
	rootThreshold   float64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := model.DefaultPolicy()
	rootCmd := &cobra.Command{
		Use:           "sayit",
		Short:         "Pronunciation practice with live speech recognition",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runPracticeCmd,
	}
	addPracticeFlags(rootCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&rootDBPath, "db", config.DefaultDBPath(), "SQLite results database")
	pf.StringVar(&rootDatasetsDir, "datasets", config.DefaultDatasetDir(), "prompt dataset directory")
	pf.IntVar(&rootSampleSize, "sample-size", dataset.DefaultSampleSize, "prompts per session")
	pf.BoolVar(&rootFallback, "fallback", false, "use built-in sample words when a dataset file is missing")
	pf.IntVar(&rootMaxAttempts, "max-attempts", defaults.MaxAttempts, "attempts per prompt")
	pf.Float64Var(&rootThreshold, "threshold", defaults.Threshold, "minimum similarity to accept an utterance (0-1)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPracticeCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newDatasetsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// settings is the merged result of flags, config file and defaults.
type settings struct {
	file        config.FileConfig
	logLevel    string
	dbPath      string
	datasetsDir string
	sampleSize  int
	fallback    bool
	policy      model.Policy
	pacing      model.Pacing
	format      capture.Format
	models      map[string]string
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &rootLogLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "db", &rootDBPath, fileCfg.Server.DB)
	applyStringConfig(cmd, "datasets", &rootDatasetsDir, fileCfg.Datasets.Dir)
	applyIntConfig(cmd, "sample-size", &rootSampleSize, fileCfg.Datasets.SampleSize)
	applyBoolConfig(cmd, "fallback", &rootFallback, fileCfg.Datasets.Fallback)
	applyIntConfig(cmd, "max-attempts", &rootMaxAttempts, fileCfg.Policy.MaxAttempts)
	applyFloatConfig(cmd, "threshold", &rootThreshold, fileCfg.Policy.Threshold)

	policy := fileCfg.Policy.Apply(model.DefaultPolicy())
	policy.MaxAttempts = rootMaxAttempts
	policy.Threshold = rootThreshold

	s := settings{
		file:        fileCfg,
		logLevel:    rootLogLevel,
		dbPath:      rootDBPath,
		datasetsDir: rootDatasetsDir,
		sampleSize:  rootSampleSize,
		fallback:    rootFallback,
		policy:      policy,
		pacing:      fileCfg.Pacing.Apply(model.DefaultPacing()),
		format:      fileCfg.Audio.Apply(capture.DefaultFormat()),
		models:      fileCfg.ModelPaths(),
	}
	if err := validateSettings(s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func validateSettings(s settings) error {
	if _, err := log.ParseLevel(s.logLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	if s.dbPath == "" {
		return fmt.Errorf("--db must not be empty")
	}
	if s.datasetsDir == "" {
		return fmt.Errorf("--datasets must not be empty")
	}
	if s.sampleSize <= 0 {
		return fmt.Errorf("--sample-size must be > 0")
	}
	if s.policy.MaxAttempts <= 0 {
		return fmt.Errorf("--max-attempts must be > 0")
	}
	if s.policy.Threshold < 0 || s.policy.Threshold > 1 {
		return fmt.Errorf("--threshold must be between 0 and 1")
	}
	if err := s.policy.Validate(); err != nil {
		return fmt.Errorf("invalid [policy] config: %w", err)
	}
	if s.format.SampleRate <= 0 || s.format.Channels <= 0 || s.format.PeriodFrames <= 0 {
		return fmt.Errorf("invalid [audio] config: sample-rate, channels and period-frames must be > 0")
	}
	if len(s.models) == 0 {
		return fmt.Errorf("no recognizer models configured")
	}
	return nil
}

func newLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "sayit",
	}), nil
}

// runtime holds the collaborators of a session engine.
type runtime struct {
	store   *store.Store
	models  *vosk.Factory
	capture *capture.MalgoSource
	prompts *dataset.Source
	engine  *session.Engine
}

func newRuntime(s settings, logger *log.Logger, metrics *observe.Metrics) (*runtime, error) {
	st, err := store.Open(s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	rt := &runtime{
		store:   st,
		models:  vosk.NewFactory(s.models, s.format.SampleRate, logger),
		capture: capture.NewMalgoSource(s.format, logger),
		prompts: dataset.NewSource(s.datasetsDir,
			dataset.WithSampleSize(s.sampleSize),
			dataset.WithFallback(s.fallback),
		),
	}
	rt.engine, err = session.New(session.Config{
		Recognizers: rt.models,
		Capture:     rt.capture,
		Prompts:     rt.prompts,
		Results:     rt.store,
		Policy:      s.policy,
		Pacing:      s.pacing,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		rt.Close(logger)
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) Close(logger *log.Logger) {
	rt.models.Close()
	if err := rt.store.Close(); err != nil {
		logger.Error("failed to close db", "err", err)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.DefaultTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
