package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/sayit/internal/capture"
	"github.com/verte-zerg/sayit/internal/dataset"
	"github.com/verte-zerg/sayit/internal/health"
	"github.com/verte-zerg/sayit/internal/recognizer/vosk"
)

var errSetupIssues = errors.New("setup has issues")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check models, datasets and the microphone",
		Args:  cobra.NoArgs,
		RunE:  runCheckCmd,
	}
}

func runCheckCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, s.logLevel)
	if err != nil {
		return err
	}
	models := vosk.NewFactory(s.models, s.format.SampleRate, logger)
	defer models.Close()
	source := capture.NewMalgoSource(s.format, logger)

	report := health.NewSetup(models, s.datasetsDir, health.Checker{Name: "Audio", Check: source.Probe}).Report(cmd.Context())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status: %s\n", report.Status)
	fmt.Fprintf(out, "datasets: %s\n", report.DatasetsPath)
	for _, lang := range sortedKeys(report.Models) {
		fmt.Fprintf(out, "model %s: %s\n", lang, report.Models[lang])
	}
	for _, issue := range report.Issues {
		logErrln("  -", issue)
	}
	if !report.OK() {
		return errSetupIssues
	}
	return nil
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List prompt datasets per language and mode",
		Args:  cobra.NoArgs,
		RunE:  runDatasetsCmd,
	}
}

func runDatasetsCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	src := dataset.NewSource(s.datasetsDir)
	return writeDatasets(cmd.OutOrStdout(), src.List(sortedKeys(s.models)))
}

func writeDatasets(w io.Writer, infos []dataset.Info) error {
	for _, info := range infos {
		count := "missing"
		if info.Count > 0 {
			count = fmt.Sprintf("%d prompts", info.Count)
		}
		if _, err := fmt.Fprintf(w, "%-4s %-9s %-12s %s\n", info.Language, info.Mode, count, info.Path); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
