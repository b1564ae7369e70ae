package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dt-pm-tools/jira-sync/internal/journal"
	"github.com/dt-pm-tools/jira-sync/internal/logging"
	"github.com/dt-pm-tools/jira-sync/internal/markdown"
	"github.com/dt-pm-tools/jira-sync/internal/watch"
	"github.com/spf13/cobra"
)

var statusDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List documents with their JIRA link and last sync outcome",
	Long:  `Lists every document in the folder with its detected kind, summary, linked JIRA key and the last outcome recorded in the local sync journal. Works offline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadSettings(); err != nil {
			return err
		}

		root := syncRoot(statusDir)
		files, err := watch.Walk(root, appConfig.Extension)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", root, err)
		}
		if len(files) == 0 {
			fmt.Printf("No documents found in %s.\n", root)
			return nil
		}

		store, err := journal.Open(appConfig.ResolveStateDir())
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		rows := make([][]string, 0, len(files))
		for _, path := range files {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}

			doc, err := markdown.ParseFile(path)
			if err != nil {
				rows = append(rows, []string{rel, "?", err.Error(), "", ""})
				continue
			}

			last := ""
			entry, err := store.LastForPath(ctx, path)
			if err != nil {
				logger.Warn("failed to read journal", logging.Error(err))
			} else if entry != nil {
				last = fmt.Sprintf("%s %s", entry.Action, entry.CreatedAt.Local().Format("2006-01-02 15:04"))
			}

			rows = append(rows, []string{rel, string(doc.Kind), doc.Summary, doc.RemoteKey, last})
		}

		fmt.Println(renderTable([]string{"File", "Kind", "Summary", "JIRA", "Last sync"}, rows, nil))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusDir, "dir", "d", "", "documents directory (overrides config and .jira discovery)")
	rootCmd.AddCommand(statusCmd)
}
