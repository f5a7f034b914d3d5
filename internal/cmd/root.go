package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/atikulmunna/lograte/internal/analyzer"
	"github.com/atikulmunna/lograte/internal/output"
	"github.com/atikulmunna/lograte/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree with its own configuration instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "lograte <log_file_path>",
		Short: "Hourly error counts for plain or gzipped log files",
		Long: `lograte reads a log file line by line, groups lines by the date and hour of
their "YYYY-MM-DD HH:MM:SS-ZZ" timestamp, and counts lines containing the error
keyword. A line is printed for each hour bucket when the next one starts,
followed by the total error count. Files ending in .gz are decompressed on the fly.

Examples:
  lograte /var/log/app.log
  lograte /var/log/app.log.1.gz
  lograte app.log --keyword FATAL --output json`,
		Args:          requireLogPath,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := newAnalyzer(v, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			_, err = a.AnalyzeFile(args[0], newRenderer(v, cmd.OutOrStdout()))
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.lograte.yaml)")
	pf.StringP("keyword", "k", parser.DefaultKeyword, "case-sensitive substring that marks an error line")
	pf.StringP("pattern", "p", parser.DefaultPattern, "timestamp regex; the match must start with YYYY-MM-DD HH")
	pf.StringP("output", "o", "text", "output format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	for _, name := range []string{"keyword", "pattern", "output", "no-color"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(newScanCmd(v), newWatchCmd(v), newServeCmd(v))
	return root
}

// requireLogPath rejects a missing path before any file is touched.
func requireLogPath(cmd *cobra.Command, args []string) error {
	switch {
	case len(args) == 0:
		return errors.New("missing required log file path")
	case len(args) > 1:
		return fmt.Errorf("expected exactly one log file path, got %d", len(args))
	}
	return nil
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".lograte")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("LOGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// newAnalyzer builds an Analyzer from the resolved configuration. Line
// diagnostics go to errOut.
func newAnalyzer(v *viper.Viper, errOut io.Writer, rec analyzer.Recorder) (*analyzer.Analyzer, error) {
	return analyzer.New(analyzer.Options{
		Keyword:  v.GetString("keyword"),
		Pattern:  v.GetString("pattern"),
		Logger:   log.New(errOut, "", log.LstdFlags),
		Recorder: rec,
	})
}

func newRenderer(v *viper.Viper, out io.Writer) output.Renderer {
	switch strings.ToLower(v.GetString("output")) {
	case "json":
		return output.NewJSONRenderer(out)
	default:
		return output.NewTextRenderer(out, !v.GetBool("no-color"))
	}
}
