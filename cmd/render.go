package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dt-pm-tools/jira-sync/internal/config"
	"github.com/dt-pm-tools/jira-sync/internal/jira"
	"github.com/dt-pm-tools/jira-sync/internal/markdown"
	"github.com/spf13/cobra"
)

var (
	renderFile    string
	renderPlain   bool
	renderPreview bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Show how a document would be sent to JIRA, without sending it",
	Long: `Parses a markdown document and prints what was detected (kind, summary,
Key: and JIRA: lines) followed by the description payload. No network calls
are made. Use --plain to preview the plain text renderer instead of ADF, or
--preview to print the ADF payload rendered back as markdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderFile == "" {
			return fmt.Errorf("--file (-f) is required")
		}
		if err := loadSettings(); err != nil {
			return err
		}

		doc, err := markdown.ParseFile(renderFile)
		if err != nil {
			return fmt.Errorf("parsing markdown: %w", err)
		}

		remote := doc.RemoteKey
		if remote == "" {
			remote = "(not linked, would be created)"
		}
		fmt.Fprintf(os.Stderr, "Kind:     %s\n", doc.Kind)
		fmt.Fprintf(os.Stderr, "Summary:  %s\n", doc.Summary)
		if doc.InternalKey != "" {
			fmt.Fprintf(os.Stderr, "Key:      %s\n", doc.InternalKey)
		}
		fmt.Fprintf(os.Stderr, "JIRA:     %s\n\n", remote)

		name := appConfig.Renderer
		if renderPlain {
			name = config.RendererPlain
		}
		description := rendererFor(name).RenderDescription(doc)

		switch d := description.(type) {
		case string:
			fmt.Println(d)
			return nil
		case *jira.ADFNode:
			if renderPreview {
				fmt.Print(markdown.Preview(d))
				return nil
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(description); err != nil {
			return fmt.Errorf("encoding ADF: %w", err)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderFile, "file", "f", "", "markdown file to render (required)")
	renderCmd.Flags().BoolVar(&renderPlain, "plain", false, "use the plain text renderer")
	renderCmd.Flags().BoolVar(&renderPreview, "preview", false, "print the ADF payload as markdown instead of JSON")
	rootCmd.AddCommand(renderCmd)
}
