// ABOUTME: Cobra command that saves an account's posts into a new local archive.
// ABOUTME: Drives the archive pipeline with throttling and progress output.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fedimove/fedimove/internal/archive"
	"github.com/fedimove/fedimove/internal/mover"
)

var (
	saveInstance       string
	saveUser           string
	saveBookmarkedOnly bool
	saveExtraThrottle  int
)

var saveCmd = &cobra.Command{
	Use:   "save <archive-name>",
	Short: "Save an account's posts to a new local archive",
	Long: `Download every post of an account into a new named archive: source
text, media files, visibility, threading, bookmarks and pins.

Archives are write-once. Saving into an existing archive name is refused;
pick a new name per snapshot.`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringVarP(&saveInstance, "instance", "i", "", "Instance to save from (required)")
	saveCmd.Flags().StringVarP(&saveUser, "user", "u", "", "Username on the instance (required)")
	saveCmd.Flags().BoolVar(&saveBookmarkedOnly, "bookmarked-only", false, "Save only bookmarked posts")
	saveCmd.Flags().IntVar(&saveExtraThrottle, "extra-throttle", 0, "Extra seconds added to every pause between API calls")
	_ = saveCmd.MarkFlagRequired("instance")
	_ = saveCmd.MarkFlagRequired("user")
}

func runSave(cmd *cobra.Command, args []string) error {
	name := args[0]

	client, err := clientFor(saveInstance, saveUser)
	if err != nil {
		return err
	}

	dataDir, err := globalConfig.GetDataDir()
	if err != nil {
		return err
	}
	arch, err := archive.Create(dataDir, name)
	if errors.Is(err, archive.ErrArchiveExists) {
		return fmt.Errorf("archive %q already exists - archives are write-once, pick a new name", name)
	}
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	saver := mover.NewSaver(client, arch, mover.SaveOptions{
		Instance:       saveInstance,
		BookmarkedOnly: saveBookmarkedOnly,
		ExtraThrottle:  extraThrottleFor(cmd, saveExtraThrottle),
	})
	if err := saver.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("Done. Archive %q saved to %s\n", name, arch.Dir())
	return nil
}
