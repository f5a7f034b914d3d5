package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/atikulmunna/lograte/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultDebounce = 250 * time.Millisecond

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <log_file_path>",
		Short: "Re-run the analysis whenever a log file changes",
		Long: `Analyze a log file, then analyze it again from the start every time it is
written to or replaced. Each run is complete and independent; nothing is
resumed from a previous run.

Examples:
  lograte watch /var/log/app.log
  lograte watch app.log --debounce 1s`,
		Args: requireLogPath,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runWatch(cmd, v, args[0])
		},
	}

	cmd.Flags().Duration("debounce", defaultDebounce, "quiet period after a change before re-analyzing")
	_ = v.BindPFlag("watch.debounce", cmd.Flags().Lookup("debounce"))
	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper, path string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newAnalyzer(v, cmd.ErrOrStderr(), nil)
	if err != nil {
		return err
	}
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	renderer := newRenderer(v, out)

	analyze := func() error {
		_, err := a.AnalyzeFile(path, renderer)
		return err
	}

	// The first run fails hard so a bad path is reported immediately.
	if err := analyze(); err != nil {
		return err
	}

	w, err := watcher.New([]string{path})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	go w.Start(ctx)

	fmt.Fprintf(errOut, "lograte watching %s (Ctrl-C to stop)\n", path)

	watchLoop(ctx, w.Events, v.GetDuration("watch.debounce"), func() {
		fmt.Fprintf(errOut, "--- %s changed, re-analyzing ---\n", path)
		if err := analyze(); err != nil {
			// The file may be mid-rotation; the next event retries.
			fmt.Fprintf(errOut, "analysis failed: %v\n", err)
		}
	})

	fmt.Fprintln(errOut, "lograte shutting down")
	return nil
}

// watchLoop calls rerun once per burst of events, after debounce has passed
// without a new event. It returns when ctx is done or events is closed.
func watchLoop(ctx context.Context, events <-chan watcher.Event, debounce time.Duration, rerun func()) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	// Timers are unbuffered as of Go 1.23, so Reset never sees a stale tick.
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			timer.Reset(debounce)
		case <-timer.C:
			rerun()
		}
	}
}
