package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dt-pm-tools/jira-sync/internal/logging"
	"github.com/dt-pm-tools/jira-sync/internal/watch"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the documents folder and sync every change to JIRA",
	Long: `Syncs every existing document once, then keeps watching the folder (default:
the nearest .jira directory above the working directory) and syncs each file a
short while after it was last saved. Files are processed one at a time with a
pause between them. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		stateDir := appConfig.ResolveStateDir()
		if err := os.MkdirAll(stateDir, 0o755); err != nil {
			return fmt.Errorf("creating state dir: %w", err)
		}
		lockPath := filepath.Join(stateDir, appConfig.Project+".lock")
		lock := flock.New(lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("another jira-sync is already watching project %s (lock %s)", appConfig.Project, lockPath)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("failed to release lock", logging.Error(err))
			}
		}()

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		root := syncRoot(watchDir)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		scheduler := watch.NewScheduler(rt.engine.Process, watch.Options{
			Root:     root,
			Ext:      appConfig.Extension,
			Debounce: appConfig.Debounce(),
			Pace:     appConfig.Pace(),
			Logger:   logger,
		})
		runErr := scheduler.Run(ctx)

		stats := rt.engine.Stats()
		logging.NewComponentLogger(logger, "jira-sync").Info("stopped",
			"created", stats.Created,
			"updated", stats.Updated,
			"recreated", stats.Recreated,
			"skipped", stats.Skipped,
			"failed", stats.Failed)
		return runErr
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "directory to watch (overrides config and .jira discovery)")
	rootCmd.AddCommand(watchCmd)
}
