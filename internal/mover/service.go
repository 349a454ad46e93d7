// ABOUTME: The remote-service port the archive and publish pipelines run against.
// ABOUTME: Kept narrow so tests can drive the pipelines with a fake server.
package mover

import (
	"context"
	"io"

	"github.com/fedimove/fedimove/internal/mastodon"
)

// RemoteService is the slice of the Mastodon API the pipelines consume.
// *mastodon.Client satisfies it.
type RemoteService interface {
	VerifyCredentials(ctx context.Context) (mastodon.Account, error)
	ServerLimits(ctx context.Context) (mastodon.Limits, error)
	AccountStatuses(ctx context.Context, accountID, maxID string, limit int) ([]mastodon.Status, error)
	StatusSource(ctx context.Context, id string) (string, error)
	CreateStatus(ctx context.Context, params mastodon.CreateStatusParams) (*mastodon.Status, error)
	UploadMedia(ctx context.Context, path, description string, focalX, focalY float64) (string, error)
	Bookmark(ctx context.Context, id string) error
	Pin(ctx context.Context, id string) error
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
