// ABOUTME: A single archived post: text, flags, media attachments and remote ids.
// ABOUTME: Persists itself as an XML document inside its own directory on every change.
package archive

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Post is one archived status. Every mutation is written straight back to
// disk unless persistence is paused, so a loaded archive always reflects the
// last completed change.
type Post struct {
	archive  *Archive
	localID  string
	dir      string
	filename string

	mu     sync.Mutex
	paused bool

	remoteIDs       []string
	text            string
	spoilerText     string
	visibility      string
	language        string
	inReplyTo       string
	reblogURL       string
	sensitive       bool
	favourited      bool
	bookmarked      bool
	pinned          bool
	favouritesCount int64
	reblogsCount    int64
	media           []MediaFile
}

// postDocument is the on-disk XML layout of a post.
type postDocument struct {
	XMLName         xml.Name    `xml:"post"`
	ArchiveID       string      `xml:"archiveId"`
	MastodonIDs     []string    `xml:"mastodonIds,omitempty"`
	Text            string      `xml:"text"`
	Visibility      string      `xml:"visibility,omitempty"`
	Sensitive       bool        `xml:"sensitive"`
	SpoilerText     string      `xml:"spoilerText,omitempty"`
	InReplyTo       string      `xml:"inReplyToArchiveId,omitempty"`
	ReblogURL       string      `xml:"reblogUrl,omitempty"`
	Language        string      `xml:"language,omitempty"`
	Favourited      bool        `xml:"favourited"`
	Bookmarked      bool        `xml:"bookmarked"`
	Pinned          bool        `xml:"pinned"`
	FavouritesCount int64       `xml:"favouritesCount"`
	ReblogsCount    int64       `xml:"reblogsCount"`
	MediaFiles      []MediaFile `xml:"mediaFiles,omitempty"`
}

// createPost makes a new post directory and registers the post in the
// archive's indexes. remoteID may be "" for posts with no known remote copy.
func createPost(a *Archive, localID, remoteID string) (*Post, error) {
	p := &Post{
		archive:  a,
		localID:  localID,
		dir:      filepath.Join(a.dir, localID),
		filename: localID + ".xml",
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create post directory: %w", err)
	}
	if remoteID != "" {
		p.remoteIDs = append(p.remoteIDs, remoteID)
	}
	if err := p.persist(); err != nil {
		return nil, err
	}
	if err := a.registerLocalID(p); err != nil {
		return nil, err
	}
	for _, rid := range p.remoteIDs {
		if err := a.registerRemoteID(rid, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// loadPost reads an existing post directory back into memory and registers
// the post in the archive's indexes.
func loadPost(a *Archive, localID string) (*Post, error) {
	p := &Post{
		archive:  a,
		localID:  localID,
		dir:      filepath.Join(a.dir, localID),
		filename: localID + ".xml",
	}
	raw, err := os.ReadFile(filepath.Join(p.dir, p.filename))
	if err != nil {
		return nil, fmt.Errorf("read post %s: %w", localID, err)
	}
	var doc postDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode post %s: %w", localID, err)
	}
	if doc.ArchiveID != localID {
		return nil, fmt.Errorf("post %s: stored id %q does not match its directory", localID, doc.ArchiveID)
	}
	p.remoteIDs = doc.MastodonIDs
	p.text = doc.Text
	p.visibility = doc.Visibility
	p.sensitive = doc.Sensitive
	p.spoilerText = doc.SpoilerText
	p.inReplyTo = doc.InReplyTo
	p.reblogURL = doc.ReblogURL
	p.language = doc.Language
	p.favourited = doc.Favourited
	p.bookmarked = doc.Bookmarked
	p.pinned = doc.Pinned
	p.favouritesCount = doc.FavouritesCount
	p.reblogsCount = doc.ReblogsCount
	p.media = doc.MediaFiles
	for i := range p.media {
		p.media[i].directory = p.dir
	}
	if err := a.registerLocalID(p); err != nil {
		return nil, err
	}
	for _, rid := range p.remoteIDs {
		if err := a.registerRemoteID(rid, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// persist writes the post's metadata file. Callers hold no lock or the
// post's own lock; persist itself takes none.
func (p *Post) persist() error {
	if p.paused {
		return nil
	}
	doc := postDocument{
		ArchiveID:       p.localID,
		MastodonIDs:     p.remoteIDs,
		Text:            p.text,
		Visibility:      p.visibility,
		Sensitive:       p.sensitive,
		SpoilerText:     p.spoilerText,
		InReplyTo:       p.inReplyTo,
		ReblogURL:       p.reblogURL,
		Language:        p.language,
		Favourited:      p.favourited,
		Bookmarked:      p.bookmarked,
		Pinned:          p.pinned,
		FavouritesCount: p.favouritesCount,
		ReblogsCount:    p.reblogsCount,
		MediaFiles:      p.media,
	}
	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode post %s: %w", p.localID, err)
	}
	data := append([]byte(xml.Header), b...)
	data = append(data, '\n')
	if err := atomicWrite(filepath.Join(p.dir, p.filename), data); err != nil {
		return fmt.Errorf("write post %s: %w", p.localID, err)
	}
	return nil
}

// atomicWrite writes data to a temp file in the target's directory and
// renames it into place, so readers never observe a half-written file.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// PausePersistence suspends writes to disk until ResumePersistence, so a
// burst of setter calls costs one write instead of one per call.
func (p *Post) PausePersistence() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// ResumePersistence re-enables writes and flushes the current state.
func (p *Post) ResumePersistence() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	return p.persist()
}

func (p *Post) set(apply func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	apply()
	return p.persist()
}

func (p *Post) LocalID() string { return p.localID }

// Directory returns the post's directory inside the archive.
func (p *Post) Directory() string { return p.dir }

func (p *Post) Text() string { return p.text }

func (p *Post) SetText(text string) error {
	return p.set(func() { p.text = text })
}

func (p *Post) SpoilerText() string { return p.spoilerText }

func (p *Post) SetSpoilerText(text string) error {
	return p.set(func() { p.spoilerText = text })
}

func (p *Post) Visibility() string { return p.visibility }

// SetVisibility stores the visibility lowercased so later comparisons are
// exact.
func (p *Post) SetVisibility(v string) error {
	return p.set(func() { p.visibility = strings.ToLower(v) })
}

func (p *Post) Language() string { return p.language }

func (p *Post) SetLanguage(lang string) error {
	return p.set(func() { p.language = lang })
}

func (p *Post) InReplyTo() string { return p.inReplyTo }

// SetInReplyTo records the archive id of the post this one replies to.
func (p *Post) SetInReplyTo(localID string) error {
	return p.set(func() { p.inReplyTo = localID })
}

func (p *Post) ReblogURL() string { return p.reblogURL }

func (p *Post) SetReblogURL(u string) error {
	return p.set(func() { p.reblogURL = u })
}

func (p *Post) Sensitive() bool { return p.sensitive }

func (p *Post) SetSensitive(v bool) error {
	return p.set(func() { p.sensitive = v })
}

func (p *Post) Favourited() bool { return p.favourited }

func (p *Post) SetFavourited(v bool) error {
	return p.set(func() { p.favourited = v })
}

func (p *Post) Bookmarked() bool { return p.bookmarked }

func (p *Post) SetBookmarked(v bool) error {
	return p.set(func() { p.bookmarked = v })
}

func (p *Post) Pinned() bool { return p.pinned }

func (p *Post) SetPinned(v bool) error {
	return p.set(func() { p.pinned = v })
}

func (p *Post) FavouritesCount() int64 { return p.favouritesCount }

func (p *Post) SetFavouritesCount(n int64) error {
	return p.set(func() { p.favouritesCount = n })
}

func (p *Post) ReblogsCount() int64 { return p.reblogsCount }

func (p *Post) SetReblogsCount(n int64) error {
	return p.set(func() { p.reblogsCount = n })
}

// RemoteIDs returns a copy of the post's remote ids, oldest first.
func (p *Post) RemoteIDs() []string {
	out := make([]string, len(p.remoteIDs))
	copy(out, p.remoteIDs)
	return out
}

// AddRemoteID records a newly published remote copy of this post and
// indexes it in the archive.
func (p *Post) AddRemoteID(rid string) error {
	if err := p.archive.registerRemoteID(rid, p); err != nil {
		return err
	}
	return p.set(func() { p.remoteIDs = append(p.remoteIDs, rid) })
}

// LatestRemoteID returns the most recently recorded remote id on the given
// instance, or "" when the post has never been published there. Instance
// addresses compare case-insensitively.
func (p *Post) LatestRemoteID(instance string) string {
	latest := ""
	for _, rid := range p.remoteIDs {
		host, _ := SplitRemoteID(rid)
		if strings.EqualFold(host, instance) {
			latest = rid
		}
	}
	return latest
}

// HasMedia reports whether the post has any attachments.
func (p *Post) HasMedia() bool { return len(p.media) > 0 }

// Media returns a copy of the post's attachment list in archival order.
func (p *Post) Media() []MediaFile {
	out := make([]MediaFile, len(p.media))
	copy(out, p.media)
	return out
}

// IsBefore reports whether the post was created before the given ISO 8601
// instant.
func (p *Post) IsBefore(iso string) (bool, error) {
	return IDBefore(p.localID, iso)
}

// IsAfter reports whether the post was created after the given ISO 8601
// instant.
func (p *Post) IsAfter(iso string) (bool, error) {
	return IDAfter(p.localID, iso)
}

// MediaSource carries the data and metadata for one attachment being added
// to a post.
type MediaSource struct {
	URL          string
	Body         io.Reader
	MediaType    string
	ThumbnailURL string
	Thumbnail    io.Reader
	AltText      string
	FocalPointX  float64
	FocalPointY  float64
}

// AddMedia stores the attachment bytes in the post's directory and appends
// its metadata. Files are numbered from 1 in the order added, keeping the
// original extension; video thumbnails get a "_thumbnail" suffix.
func (p *Post) AddMedia(src MediaSource) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.media) + 1
	name := fmt.Sprintf("%d.%s", n, fileExtension(src.URL))
	if err := writeStream(filepath.Join(p.dir, name), src.Body); err != nil {
		return fmt.Errorf("store media %s: %w", name, err)
	}

	thumbName := ""
	if src.Thumbnail != nil && src.ThumbnailURL != "" {
		thumbName = fmt.Sprintf("%d_thumbnail.%s", n, fileExtension(src.ThumbnailURL))
		if err := writeStream(filepath.Join(p.dir, thumbName), src.Thumbnail); err != nil {
			return fmt.Errorf("store thumbnail %s: %w", thumbName, err)
		}
	}

	p.media = append(p.media, MediaFile{
		Filename:          name,
		MimeType:          mimeTypeFor(fileExtension(src.URL)),
		MediaType:         src.MediaType,
		ThumbnailFilename: thumbName,
		AltText:           src.AltText,
		FocalPointX:       src.FocalPointX,
		FocalPointY:       src.FocalPointY,
		directory:         p.dir,
	})
	return p.persist()
}

func writeStream(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// fileExtension extracts the bare extension from a media URL, ignoring any
// query string.
func fileExtension(rawURL string) string {
	pathPart := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		pathPart = u.Path
	}
	if i := strings.LastIndex(pathPart, "."); i >= 0 && i < len(pathPart)-1 {
		return pathPart[i+1:]
	}
	return "bin"
}
