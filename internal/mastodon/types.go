// ABOUTME: Wire types for the slice of the Mastodon REST API this tool consumes.
// ABOUTME: Field sets are trimmed to what archiving and publishing need.
package mastodon

// Account is the authenticated user, as returned by verify_credentials.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"`
}

// Status is one post as the server reports it.
type Status struct {
	ID                 string       `json:"id"`
	CreatedAt          string       `json:"created_at"`
	Content            string       `json:"content"`
	SpoilerText        string       `json:"spoiler_text"`
	Visibility         string       `json:"visibility"`
	Sensitive          bool         `json:"sensitive"`
	Language           string       `json:"language"`
	InReplyToID        string       `json:"in_reply_to_id"`
	InReplyToAccountID string       `json:"in_reply_to_account_id"`
	Favourited         bool         `json:"favourited"`
	Bookmarked         bool         `json:"bookmarked"`
	Pinned             bool         `json:"pinned"`
	FavouritesCount    int64        `json:"favourites_count"`
	ReblogsCount       int64        `json:"reblogs_count"`
	URL                string       `json:"url"`
	Reblog             *Status      `json:"reblog"`
	MediaAttachments   []Attachment `json:"media_attachments"`
}

// Attachment is one media file hanging off a status.
type Attachment struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	URL         string          `json:"url"`
	PreviewURL  string          `json:"preview_url"`
	Description string          `json:"description"`
	Meta        *AttachmentMeta `json:"meta"`
}

// AttachmentMeta carries the focal point, when one was set.
type AttachmentMeta struct {
	Focus *FocalPoint `json:"focus"`
}

// FocalPoint is the x/y focus of an attachment, each in [-1, 1].
type FocalPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Focus returns the attachment's focal point, defaulting to the centre.
func (a Attachment) Focus() (x, y float64) {
	if a.Meta != nil && a.Meta.Focus != nil {
		return a.Meta.Focus.X, a.Meta.Focus.Y
	}
	return 0, 0
}

// Limits holds the per-server posting limits published by /api/v2/instance.
type Limits struct {
	MaxCharacters       int
	MaxMediaAttachments int
}

// Defaults Mastodon ships with, used when a server does not publish limits.
const (
	DefaultMaxCharacters       = 500
	DefaultMaxMediaAttachments = 4
)

// CreateStatusParams is the body of a status creation request.
type CreateStatusParams struct {
	Status      string   `json:"status"`
	InReplyToID string   `json:"in_reply_to_id,omitempty"`
	MediaIDs    []string `json:"media_ids,omitempty"`
	Sensitive   bool     `json:"sensitive,omitempty"`
	SpoilerText string   `json:"spoiler_text,omitempty"`
	Visibility  string   `json:"visibility,omitempty"`
	Language    string   `json:"language,omitempty"`
}
