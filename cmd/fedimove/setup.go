// ABOUTME: Cobra command for interactive Mastodon account setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate credentials.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fedimove/fedimove/internal/config"
	"github.com/fedimove/fedimove/internal/tui"
)

var (
	setupInstance string
	setupUser     string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect a Mastodon account",
	Long:  "Interactive wizard to save an access token for an account. Run once per instance you move between.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().StringVarP(&setupInstance, "instance", "i", "", "Instance to pre-fill")
	setupCmd.Flags().StringVarP(&setupUser, "user", "u", "", "Username to pre-fill")
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token := ""
	if acct, ok := cfg.FindAccount(setupInstance, setupUser); ok {
		token = acct.AccessToken
	}
	model := tui.NewSetupModel(setupInstance, setupUser, token)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	instance, username, accessToken := final.Result()
	cfg.SetAccount(config.Account{
		Instance:    instance,
		Username:    username,
		AccessToken: accessToken,
	})

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
