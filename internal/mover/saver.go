// ABOUTME: The archive pipeline: pulls an account's statuses down into a local archive.
// ABOUTME: Fetches source text and media, threads self-replies, throttles every call.
package mover

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fedimove/fedimove/internal/archive"
	"github.com/fedimove/fedimove/internal/mastodon"
)

const statusPageSize = 40

// SaveOptions configures one archive run.
type SaveOptions struct {
	// Instance is the address of the server being archived from, as it
	// appears in remote ids.
	Instance string
	// BookmarkedOnly limits the run to bookmarked statuses.
	BookmarkedOnly bool
	// ExtraThrottle is added to every pause between remote calls.
	ExtraThrottle time.Duration
}

// Saver downloads an account's statuses into an archive.
type Saver struct {
	remote RemoteService
	arch   *archive.Archive
	opts   SaveOptions
	thr    *throttle
	out    io.Writer
}

func NewSaver(remote RemoteService, arch *archive.Archive, opts SaveOptions) *Saver {
	return &Saver{
		remote: remote,
		arch:   arch,
		opts:   opts,
		thr:    newThrottle(opts.ExtraThrottle),
		out:    os.Stdout,
	}
}

// Run archives every selected status, oldest first so that parents are in
// place before the replies that reference them.
func (s *Saver) Run(ctx context.Context) error {
	account, err := s.remote.VerifyCredentials(ctx)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	logrus.WithField("account", account.Acct).Debug("credentials verified")

	statuses, err := s.fetchAllStatuses(ctx, account.ID)
	if err != nil {
		return err
	}
	if s.opts.BookmarkedOnly {
		kept := statuses[:0]
		for _, st := range statuses {
			if st.Bookmarked {
				kept = append(kept, st)
			}
		}
		statuses = kept
	}
	fmt.Fprintf(s.out, "Saving %d posts to archive %q\n", len(statuses), s.arch.Name())
	fmt.Fprintf(s.out, "This may take about %s\n", formatDuration(withMargin(s.estimate(statuses))))

	// The API returns newest first; walk backwards to save oldest first.
	for i := len(statuses) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.savePost(ctx, account, statuses[i]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved %d of %d\n", len(statuses)-i, len(statuses))
	}
	return nil
}

func (s *Saver) fetchAllStatuses(ctx context.Context, accountID string) ([]mastodon.Status, error) {
	var all []mastodon.Status
	maxID := ""
	for {
		page, err := s.remote.AccountStatuses(ctx, accountID, maxID, statusPageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch statuses: %w", err)
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		maxID = page[len(page)-1].ID
		fmt.Fprintf(s.out, "Found %d posts so far...\n", len(all))
		s.thr.pause(throttleStatusPage)
	}
}

// estimate sums the throttled pauses the run will spend: one per status for
// its source text plus one per media download.
func (s *Saver) estimate(statuses []mastodon.Status) time.Duration {
	var total time.Duration
	for _, st := range statuses {
		total += s.thr.cost(throttleDefault)
		total += time.Duration(len(st.MediaAttachments)) * s.thr.cost(throttleDefault)
	}
	return total
}

func (s *Saver) savePost(ctx context.Context, account mastodon.Account, st mastodon.Status) error {
	rid := archive.RemoteID(s.opts.Instance, st.ID)

	// Boosts keep only a pointer to the boosted post.
	if st.Reblog != nil {
		p, err := s.arch.AddPost(st.CreatedAt, rid)
		if err != nil {
			return err
		}
		return p.SetReblogURL(st.Reblog.URL)
	}

	text, err := s.remote.StatusSource(ctx, st.ID)
	if err != nil {
		return fmt.Errorf("fetch source of status %s: %w", st.ID, err)
	}
	s.thr.pause(throttleDefault)

	p, err := s.arch.AddPost(st.CreatedAt, rid)
	if err != nil {
		return err
	}
	p.PausePersistence()
	if err := s.populate(p, st, text, account.ID); err != nil {
		return err
	}
	for _, att := range st.MediaAttachments {
		if err := s.saveAttachment(ctx, p, att); err != nil {
			return err
		}
		s.thr.pause(throttleDefault)
	}
	return p.ResumePersistence()
}

func (s *Saver) populate(p *archive.Post, st mastodon.Status, text, accountID string) error {
	steps := []error{
		p.SetText(text),
		p.SetSpoilerText(st.SpoilerText),
		p.SetVisibility(st.Visibility),
		p.SetSensitive(st.Sensitive),
		p.SetLanguage(st.Language),
		p.SetFavourited(st.Favourited),
		p.SetBookmarked(st.Bookmarked),
		p.SetPinned(st.Pinned),
		p.SetFavouritesCount(st.FavouritesCount),
		p.SetReblogsCount(st.ReblogsCount),
	}
	// Thread only self-replies; replies to other accounts are archived as
	// standalone posts.
	if st.InReplyToID != "" && st.InReplyToAccountID == accountID {
		parentRID := archive.RemoteID(s.opts.Instance, st.InReplyToID)
		if parent := s.arch.PostByRemoteID(parentRID); parent != nil {
			steps = append(steps, p.SetInReplyTo(parent.LocalID()))
		}
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Saver) saveAttachment(ctx context.Context, p *archive.Post, att mastodon.Attachment) error {
	body, err := s.remote.Download(ctx, att.URL)
	if err != nil {
		return fmt.Errorf("download media %s: %w", att.URL, err)
	}
	defer func() { _ = body.Close() }()

	src := archive.MediaSource{
		URL:       att.URL,
		Body:      body,
		MediaType: att.Type,
		AltText:   att.Description,
	}
	src.FocalPointX, src.FocalPointY = att.Focus()

	// Videos carry a server-generated still; keep it so a re-upload can
	// offer the same preview.
	if (att.Type == "video" || att.Type == "gifv") && att.PreviewURL != "" {
		thumb, err := s.remote.Download(ctx, att.PreviewURL)
		if err != nil {
			return fmt.Errorf("download thumbnail %s: %w", att.PreviewURL, err)
		}
		defer func() { _ = thumb.Close() }()
		src.ThumbnailURL = att.PreviewURL
		src.Thumbnail = thumb
	}
	return p.AddMedia(src)
}
