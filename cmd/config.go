package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/dt-pm-tools/jira-sync/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure JIRA connection settings",
	Long:  `Interactively set up JIRA URL, email, API token and target project. Settings are saved to ~/.jira-sync.yaml. Other settings already in the file are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		// Load existing config for defaults
		existing, _ := config.Load(cfgFile)

		cfg := existing
		cfg.URL = prompt(reader, "JIRA URL", "e.g., https://your-org.atlassian.net", existing.URL)
		cfg.Email = prompt(reader, "Email", "", existing.Email)

		// Token (masked input)
		fmt.Print("API Token (input hidden): ")
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // newline after hidden input
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		cfg.Token = strings.TrimSpace(string(tokenBytes))
		if cfg.Token == "" {
			cfg.Token = existing.Token
		}

		cfg.Project = strings.ToUpper(prompt(reader, "Project key", "e.g., BOOK", existing.Project))

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}

		if err := config.Save(cfg, path); err != nil {
			return err
		}

		fmt.Printf("Configuration saved to %s\n", path)
		return nil
	},
}

// prompt asks for one value, showing the current value as the default.
func prompt(reader *bufio.Reader, label, hint, current string) string {
	switch {
	case current != "":
		fmt.Printf("%s [%s]: ", label, current)
	case hint != "":
		fmt.Printf("%s (%s): ", label, hint)
	default:
		fmt.Printf("%s: ", label)
	}
	value, _ := reader.ReadString('\n')
	value = strings.TrimSpace(value)
	if value == "" {
		return current
	}
	return value
}

func init() {
	rootCmd.AddCommand(configCmd)
}
