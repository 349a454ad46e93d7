// ABOUTME: Root Cobra command and global flags for fedimove CLI.
// ABOUTME: Loads config, sets log level, and resolves saved account credentials.
package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fedimove/fedimove/internal/config"
	"github.com/fedimove/fedimove/internal/mastodon"
)

var globalConfig *config.Config
var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "fedimove",
	Short: "Move your Mastodon posts between instances",
	Long: `
███████╗███████╗██████╗ ██╗███╗   ███╗ ██████╗ ██╗   ██╗███████╗
██╔════╝██╔════╝██╔══██╗██║████╗ ████║██╔═══██╗██║   ██║██╔════╝
█████╗  █████╗  ██║  ██║██║██╔████╔██║██║   ██║██║   ██║█████╗
██╔══╝  ██╔══╝  ██║  ██║██║██║╚██╔╝██║██║   ██║╚██╗ ██╔╝██╔══╝
██║     ███████╗██████╔╝██║██║ ╚═╝ ██║╚██████╔╝ ╚████╔╝ ███████╗
╚═╝     ╚══════╝╚═════╝ ╚═╝╚═╝     ╚═╝ ╚═════╝   ╚═══╝  ╚══════╝

Save your posts from one Mastodon instance to a local archive,
then publish the archive to another instance: text, media, threads,
bookmarks and pins included.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugFlag {
			logrus.SetLevel(logrus.DebugLevel)
		}

		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

// clientFor resolves the saved credential for an account and builds a client
// for it. Errors steer the user towards the setup wizard.
func clientFor(instance, username string) (*mastodon.Client, error) {
	acct, ok := globalConfig.FindAccount(instance, username)
	if !ok {
		return nil, fmt.Errorf("no saved credentials for @%s@%s - run 'fedimove setup' first", username, instance)
	}
	return mastodon.NewClient(acct.Instance, acct.AccessToken), nil
}

// extraThrottleFor combines the per-run flag with the configured default:
// the flag wins when set.
func extraThrottleFor(cmd *cobra.Command, flagSeconds int) time.Duration {
	if cmd.Flags().Changed("extra-throttle") {
		return time.Duration(flagSeconds) * time.Second
	}
	return time.Duration(globalConfig.ExtraThrottleSeconds) * time.Second
}
