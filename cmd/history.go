package cmd

import (
	"fmt"

	"github.com/dt-pm-tools/jira-sync/internal/journal"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyFile  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync outcomes from the local journal",
	Long:  `Prints the latest entries of the sync journal, newest first. Recreated issues show the key they replaced. Use --file to show the history of one document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadSettings(); err != nil {
			return err
		}

		store, err := journal.Open(appConfig.ResolveStateDir())
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []journal.Entry
		if historyFile != "" {
			entries, err = store.ForPath(cmd.Context(), absPath(historyFile), historyLimit)
			if err != nil {
				return err
			}
		} else {
			entries, err = store.Recent(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
		}

		if len(entries) == 0 {
			fmt.Println("No sync history yet.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				string(e.Action),
				e.Kind,
				e.Path,
				e.RemoteKey,
				e.PreviousKey,
				e.Error,
			})
		}
		fmt.Println(renderTable([]string{"Time", "Action", "Kind", "File", "JIRA", "Replaced", "Error"}, rows, nil))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show (0 for all)")
	historyCmd.Flags().StringVarP(&historyFile, "file", "f", "", "only show entries for this document")
	rootCmd.AddCommand(historyCmd)
}
