// ABOUTME: The publish pipeline: re-posts an archive to a server, oldest first.
// ABOUTME: Uploads media, splits long text, threads replies and restores bookmarks/pins.
package mover

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/fedimove/fedimove/internal/archive"
	"github.com/fedimove/fedimove/internal/mastodon"
	"github.com/fedimove/fedimove/internal/segment"
)

// PublishOptions configures one publish run. The Preserve flags and
// SuppressPublic default to true in the CLI.
type PublishOptions struct {
	// Instance is the address of the server being published to, as it will
	// appear in recorded remote ids.
	Instance string
	// BookmarkedOnly limits the run to bookmarked posts.
	BookmarkedOnly bool
	// From and Until bound the run to posts created inside the window.
	// Either may be "" for no bound; both are ISO 8601 instants.
	From  string
	Until string
	// PreserveBookmarks re-bookmarks published posts that were bookmarked.
	PreserveBookmarks bool
	// PreservePins re-pins published posts that were pinned.
	PreservePins bool
	// PreserveHashtags leaves # alone instead of substituting ⋕.
	PreserveHashtags bool
	// SuppressPublic demotes public posts to unlisted.
	SuppressPublic bool
	// ExtraThrottle is added to every pause between remote calls.
	ExtraThrottle time.Duration
}

// Publisher re-posts an archive's posts to a server.
type Publisher struct {
	remote RemoteService
	arch   *archive.Archive
	opts   PublishOptions
	thr    *throttle
	out    io.Writer
}

func NewPublisher(remote RemoteService, arch *archive.Archive, opts PublishOptions) *Publisher {
	return &Publisher{
		remote: remote,
		arch:   arch,
		opts:   opts,
		thr:    newThrottle(opts.ExtraThrottle),
		out:    os.Stdout,
	}
}

// Run publishes every selected post, oldest first so threads rebuild in
// order. Each emitted status id is recorded in the archive as soon as the
// server returns it, but a re-run re-posts every selected post again; an
// interrupted run is narrowed with From and Until, not resumed.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.validateWindow(); err != nil {
		return err
	}
	account, err := p.remote.VerifyCredentials(ctx)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	logrus.WithField("account", account.Acct).Debug("credentials verified")

	limits, err := p.remote.ServerLimits(ctx)
	if err != nil {
		return fmt.Errorf("fetch server limits: %w", err)
	}

	var selected []*archive.Post
	for _, post := range p.arch.Posts() {
		ok, err := p.shouldPublish(post)
		if err != nil {
			return err
		}
		if ok {
			selected = append(selected, post)
		}
	}
	fmt.Fprintf(p.out, "Publishing %d posts from archive %q to %s\n",
		len(selected), p.arch.Name(), p.opts.Instance)

	estimate, err := p.estimate(selected, limits)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "This may take about %s\n", formatDuration(withMargin(estimate)))

	for i, post := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.publishPost(ctx, post, limits); err != nil {
			return fmt.Errorf("publish post %s: %w", post.LocalID(), err)
		}
		fmt.Fprintf(p.out, "Published %d of %d\n", i+1, len(selected))
	}
	return nil
}

func (p *Publisher) validateWindow() error {
	for _, iso := range []string{p.opts.From, p.opts.Until} {
		if iso == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339Nano, iso); err != nil {
			return fmt.Errorf("parse time bound %q: %w", iso, err)
		}
	}
	return nil
}

// shouldPublish applies the run's filters: posts with no text (boost
// records, media-less placeholders) are skipped, as is anything outside the
// bookmark filter or time window.
func (p *Publisher) shouldPublish(post *archive.Post) (bool, error) {
	if strings.TrimSpace(post.Text()) == "" {
		return false, nil
	}
	if p.opts.BookmarkedOnly && !post.Bookmarked() {
		return false, nil
	}
	if p.opts.From != "" {
		after, err := post.IsAfter(p.opts.From)
		if err != nil {
			return false, err
		}
		if !after {
			return false, nil
		}
	}
	if p.opts.Until != "" {
		before, err := post.IsBefore(p.opts.Until)
		if err != nil {
			return false, err
		}
		if !before {
			return false, nil
		}
	}
	return true, nil
}

// estimate sums the throttled pauses of the planned run: every upload, every
// emitted status and every bookmark or pin restoration.
func (p *Publisher) estimate(posts []*archive.Post, limits mastodon.Limits) (time.Duration, error) {
	var total time.Duration
	for _, post := range posts {
		emitted, mediaCount, err := p.planSize(post, limits)
		if err != nil {
			return 0, err
		}
		total += time.Duration(mediaCount) * p.thr.cost(throttleMediaUpload)
		postCost := p.thr.cost(throttleNonPublicPost)
		if post.Visibility() == "public" && !p.opts.SuppressPublic {
			postCost = p.thr.cost(throttlePublicPost)
		}
		total += time.Duration(emitted) * postCost
		if post.Bookmarked() && p.opts.PreserveBookmarks {
			total += time.Duration(emitted) * p.thr.cost(throttleDefault)
		}
		if post.Pinned() && p.opts.PreservePins {
			total += time.Duration(emitted) * p.thr.cost(throttleDefault)
		}
	}
	return total, nil
}

// planSize computes how many statuses a post will become and how many media
// files it will upload, without touching the server.
func (p *Publisher) planSize(post *archive.Post, limits mastodon.Limits) (emitted, mediaCount int, err error) {
	segments, err := p.segments(post, limits)
	if err != nil {
		return 0, 0, err
	}
	mediaCount = len(post.Media())
	chunks := (mediaCount + limits.MaxMediaAttachments - 1) / limits.MaxMediaAttachments
	emitted = len(segments)
	if chunks > emitted {
		emitted = chunks
	}
	return emitted, mediaCount, nil
}

// segments returns the post's outgoing text split to the server's character
// limit, with mention and hashtag substitutions already applied.
func (p *Publisher) segments(post *archive.Post, limits mastodon.Limits) ([]string, error) {
	text := strings.TrimRightFunc(post.Text(), unicode.IsSpace)
	text = segment.SubstituteMentions(text)
	if !p.opts.PreserveHashtags {
		text = segment.SubstituteHashtags(text)
	}
	if segment.PostedLength(text) <= limits.MaxCharacters {
		return []string{text}, nil
	}
	return segment.Split(text, limits.MaxCharacters)
}

func (p *Publisher) publishPost(ctx context.Context, post *archive.Post, limits mastodon.Limits) error {
	mediaIDs, err := p.uploadMedia(ctx, post)
	if err != nil {
		return err
	}
	chunks := chunk(mediaIDs, limits.MaxMediaAttachments)

	segments, err := p.segments(post, limits)
	if err != nil {
		return err
	}

	visibility := post.Visibility()
	if p.opts.SuppressPublic && visibility == "public" {
		visibility = "unlisted"
	}
	postPause := throttleNonPublicPost
	if visibility == "public" {
		postPause = throttlePublicPost
	}

	replyTo := p.parentStatusID(post)

	emitted := len(segments)
	if len(chunks) > emitted {
		emitted = len(chunks)
	}
	for k := 0; k < emitted; k++ {
		params := mastodon.CreateStatusParams{
			InReplyToID: replyTo,
			Sensitive:   post.Sensitive(),
			SpoilerText: post.SpoilerText(),
			Visibility:  visibility,
			Language:    post.Language(),
		}
		if k < len(segments) {
			params.Status = segments[k]
		}
		if k < len(chunks) {
			params.MediaIDs = chunks[k]
		}
		status, err := p.remote.CreateStatus(ctx, params)
		if err != nil {
			return err
		}
		if err := post.AddRemoteID(archive.RemoteID(p.opts.Instance, status.ID)); err != nil {
			return err
		}
		replyTo = status.ID
		p.thr.pause(postPause)

		if post.Bookmarked() && p.opts.PreserveBookmarks {
			if err := p.remote.Bookmark(ctx, status.ID); err != nil {
				return fmt.Errorf("bookmark status %s: %w", status.ID, err)
			}
			p.thr.pause(throttleDefault)
		}
		if post.Pinned() && p.opts.PreservePins {
			if err := p.remote.Pin(ctx, status.ID); err != nil {
				return fmt.Errorf("pin status %s: %w", status.ID, err)
			}
			p.thr.pause(throttleDefault)
		}
	}
	return nil
}

func (p *Publisher) uploadMedia(ctx context.Context, post *archive.Post) ([]string, error) {
	var ids []string
	for _, m := range post.Media() {
		id, err := p.remote.UploadMedia(ctx, m.Path(), m.AltText, m.FocalPointX, m.FocalPointY)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", m.Filename, err)
		}
		logrus.WithFields(logrus.Fields{"file": m.Filename, "id": id}).Debug("uploaded media")
		ids = append(ids, id)
		p.thr.pause(throttleMediaUpload)
	}
	return ids, nil
}

// parentStatusID resolves the id the first emitted status should reply to:
// the latest copy of the parent post on the target instance, or "" when the
// parent was never published there.
func (p *Publisher) parentStatusID(post *archive.Post) string {
	localID := post.InReplyTo()
	if localID == "" {
		return ""
	}
	parent := p.arch.PostByLocalID(localID)
	if parent == nil {
		return ""
	}
	rid := parent.LatestRemoteID(p.opts.Instance)
	if rid == "" {
		return ""
	}
	_, id := archive.SplitRemoteID(rid)
	return id
}

func chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
