package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dt-pm-tools/jira-sync/internal/watch"
	"github.com/spf13/cobra"
)

var syncDir string

var syncCmd = &cobra.Command{
	Use:   "sync [files...]",
	Short: "Sync documents once and exit",
	Long: `Runs the same create/update logic as 'watch' over the given files, or over
every document in the folder when no files are given, then prints a summary.
Exits non-zero when any file failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		files := make([]string, 0, len(args))
		for _, arg := range args {
			files = append(files, absPath(arg))
		}
		if len(files) == 0 {
			root := syncRoot(syncDir)
			found, err := watch.Walk(root, appConfig.Extension)
			if err != nil {
				return fmt.Errorf("scanning %s: %w", root, err)
			}
			files = found
		}
		if len(files) == 0 {
			fmt.Println("No documents found.")
			return nil
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		queue := watch.NewQueue(ctx, appConfig.Pace(), rt.engine.Process, logger)
		for _, f := range files {
			queue.Enqueue(f)
		}
		queue.Wait()

		stats := rt.engine.Stats()
		rows := [][]string{
			{"created", strconv.Itoa(stats.Created)},
			{"updated", strconv.Itoa(stats.Updated)},
			{"recreated", strconv.Itoa(stats.Recreated)},
			{"skipped", strconv.Itoa(stats.Skipped)},
			{"failed", strconv.Itoa(stats.Failed)},
		}
		fmt.Println(renderTable([]string{"Outcome", "Files"}, rows, []columnAlignment{alignLeft, alignRight}))
		for _, msg := range stats.Errors {
			fmt.Fprintln(os.Stderr, "  "+msg)
		}

		if stats.Failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed", stats.Failed, stats.Total())
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncDir, "dir", "d", "", "directory to scan when no files are given")
	rootCmd.AddCommand(syncCmd)
}
