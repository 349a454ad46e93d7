// ABOUTME: Cobra command that publishes a local archive to a Mastodon instance.
// ABOUTME: Drives the publish pipeline with filtering, throttling and progress output.
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
	postInstance          string
	postUser              string
	postBookmarkedOnly    bool
	postFrom              string
	postUntil             string
	postPreserveHashtags  bool
	postPreserveBookmarks bool
	postPreservePins      bool
	postSuppressPublic    bool
	postExtraThrottle     int
)

var postCmd = &cobra.Command{
	Use:   "post <archive-name>",
	Short: "Publish a local archive to an instance",
	Long: `Re-post an archive to an instance, oldest first, rebuilding threads
as it goes. Long text is split into reply chains, media is re-uploaded,
and bookmarks and pins are restored.

Mentions are rewritten to ＠ so nobody gets re-notified, and public posts
are published unlisted unless --suppress-public=false.`,
	Args: cobra.ExactArgs(1),
	RunE: runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)
	postCmd.Flags().StringVarP(&postInstance, "instance", "i", "", "Instance to publish to (required)")
	postCmd.Flags().StringVarP(&postUser, "user", "u", "", "Username on the instance (required)")
	postCmd.Flags().BoolVar(&postBookmarkedOnly, "bookmarked-only", false, "Publish only bookmarked posts")
	postCmd.Flags().StringVar(&postFrom, "from", "", "Publish only posts created after this ISO 8601 instant")
	postCmd.Flags().StringVar(&postUntil, "until", "", "Publish only posts created before this ISO 8601 instant")
	postCmd.Flags().BoolVar(&postPreserveHashtags, "preserve-hashtags", false, "Keep # intact instead of substituting ⋕")
	postCmd.Flags().BoolVar(&postPreserveBookmarks, "preserve-bookmarks", true, "Re-bookmark posts that were bookmarked")
	postCmd.Flags().BoolVar(&postPreservePins, "preserve-pins", true, "Re-pin posts that were pinned")
	postCmd.Flags().BoolVar(&postSuppressPublic, "suppress-public", true, "Publish public posts as unlisted")
	postCmd.Flags().IntVar(&postExtraThrottle, "extra-throttle", 0, "Extra seconds added to every pause between API calls")
	_ = postCmd.MarkFlagRequired("instance")
	_ = postCmd.MarkFlagRequired("user")
}

func runPost(cmd *cobra.Command, args []string) error {
	name := args[0]

	client, err := clientFor(postInstance, postUser)
	if err != nil {
		return err
	}

	dataDir, err := globalConfig.GetDataDir()
	if err != nil {
		return err
	}
	arch, err := archive.Load(dataDir, name)
	if errors.Is(err, archive.ErrNotPresent) {
		return fmt.Errorf("no archive named %q - run 'fedimove save' first", name)
	}
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	publisher := mover.NewPublisher(client, arch, mover.PublishOptions{
		Instance:          postInstance,
		BookmarkedOnly:    postBookmarkedOnly,
		From:              postFrom,
		Until:             postUntil,
		PreserveBookmarks: postPreserveBookmarks,
		PreservePins:      postPreservePins,
		PreserveHashtags:  postPreserveHashtags,
		SuppressPublic:    postSuppressPublic,
		ExtraThrottle:     extraThrottleFor(cmd, postExtraThrottle),
	})
	if err := publisher.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("Done. Archive %q published to %s\n", name, postInstance)
	return nil
}
