package cmd

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/atikulmunna/lograte/internal/output"
	"github.com/atikulmunna/lograte/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newScanCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [patterns...]",
		Short: "Analyze every log file matching glob patterns, one after another",
		Long: `Expand one or more glob patterns (including recursive ** patterns) and
analyze each matched file in turn, in lexical order. Every file gets its own complete report,
preceded by a "==> path <==" header. A file that cannot be read is reported
and skipped.

Examples:
  lograte scan "/var/log/app*.log"
  lograte scan "logs/**/*.{log,gz}"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runScan(cmd, v, args)
		},
	}
}

func runScan(cmd *cobra.Command, v *viper.Viper, patterns []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	logger := log.New(errOut, "", log.LstdFlags)

	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := watcher.Expand(pattern)
		if err != nil {
			logger.Printf("warning: failed to expand pattern %q: %v", pattern, err)
			continue
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched the given patterns: %v", patterns)
	}
	sort.Strings(paths)

	a, err := newAnalyzer(v, errOut, nil)
	if err != nil {
		return err
	}
	base := newRenderer(v, out)
	jsonOut := strings.EqualFold(v.GetString("output"), "json")

	failed := 0
	for i, p := range paths {
		// JSON lines carry the path on every event instead of a header.
		if !jsonOut {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "==> %s <==\n", p)
		}
		renderer := output.Tagged{Next: base, Source: p}
		if _, err := a.AnalyzeFile(p, renderer); err != nil {
			logger.Printf("scan %s: %v", p, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(paths))
	}
	return nil
}
