// ABOUTME: Tests for archive creation, loading, indexing and post persistence.
// ABOUTME: Uses temp directories and real files the way the store does in production.
package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRefusesExistingArchive(t *testing.T) {
	dir := t.TempDir()
	_, err := Create(dir, "toots")
	require.NoError(t, err)

	_, err = Create(dir, "toots")
	require.ErrorIs(t, err, ErrArchiveExists)
}

func TestLoadRefusesMissingArchive(t *testing.T) {
	_, err := Load(t.TempDir(), "toots")
	require.ErrorIs(t, err, ErrNotPresent)
}

func TestArchiveNameValidation(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"", "my archive", "a/b", "dots.dots"} {
		_, err := Create(dir, name)
		assert.Error(t, err, "name %q", name)
	}
	_, err := Create(dir, "archive_2023")
	assert.NoError(t, err)
}

func TestAddPostAndIndexes(t *testing.T) {
	a, err := Create(t.TempDir(), "toots")
	require.NoError(t, err)

	p, err := a.AddPost("2023-01-02T13:15:45.123Z", "mastodon.example_111")
	require.NoError(t, err)
	assert.Equal(t, "20230102_131545_123Z", p.LocalID())

	assert.Same(t, p, a.PostByLocalID("20230102_131545_123Z"))
	assert.Same(t, p, a.PostByRemoteID("mastodon.example_111"))
	assert.Same(t, p, a.PostByRemoteID("MASTODON.EXAMPLE_111"), "remote lookup is case-insensitive")
	assert.Equal(t, 1, a.Len())
}

func TestAddPostRejectsDuplicateInstant(t *testing.T) {
	a, err := Create(t.TempDir(), "toots")
	require.NoError(t, err)

	_, err = a.AddPost("2023-01-02T13:15:45.123Z", "")
	require.NoError(t, err)
	_, err = a.AddPost("2023-01-02T13:15:45.123Z", "")
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestPostsSortedOldestFirst(t *testing.T) {
	a, err := Create(t.TempDir(), "toots")
	require.NoError(t, err)

	for _, iso := range []string{
		"2023-06-11T14:25:09Z",
		"2023-01-02T13:15:45.123Z",
		"2023-03-20T08:00:00Z",
	} {
		_, err := a.AddPost(iso, "")
		require.NoError(t, err)
	}

	posts := a.Posts()
	require.Len(t, posts, 3)
	assert.Equal(t, "20230102_131545_123Z", posts[0].LocalID())
	assert.Equal(t, "20230320_080000_000Z", posts[1].LocalID())
	assert.Equal(t, "20230611_142509_000Z", posts[2].LocalID())
}

func TestPostRoundTripThroughDisk(t *testing.T) {
	dir := t.TempDir()
	a, err := Create(dir, "toots")
	require.NoError(t, err)

	p, err := a.AddPost("2023-01-02T13:15:45.123Z", "mastodon.example_111")
	require.NoError(t, err)
	require.NoError(t, p.SetText("hello fediverse"))
	require.NoError(t, p.SetSpoilerText("greeting"))
	require.NoError(t, p.SetVisibility("Public"))
	require.NoError(t, p.SetSensitive(true))
	require.NoError(t, p.SetLanguage("en"))
	require.NoError(t, p.SetBookmarked(true))
	require.NoError(t, p.SetPinned(true))
	require.NoError(t, p.SetFavouritesCount(7))
	require.NoError(t, p.AddRemoteID("other.example_222"))

	b, err := Load(dir, "toots")
	require.NoError(t, err)
	got := b.PostByLocalID(p.LocalID())
	require.NotNil(t, got)
	assert.Equal(t, "hello fediverse", got.Text())
	assert.Equal(t, "greeting", got.SpoilerText())
	assert.Equal(t, "public", got.Visibility(), "visibility is stored lowercased")
	assert.True(t, got.Sensitive())
	assert.Equal(t, "en", got.Language())
	assert.True(t, got.Bookmarked())
	assert.True(t, got.Pinned())
	assert.Equal(t, int64(7), got.FavouritesCount())
	assert.Equal(t, []string{"mastodon.example_111", "other.example_222"}, got.RemoteIDs())
	assert.Same(t, got, b.PostByRemoteID("other.example_222"))
}

func TestLoadRejectsMismatchedStoredID(t *testing.T) {
	dir := t.TempDir()
	a, err := Create(dir, "toots")
	require.NoError(t, err)
	p, err := a.AddPost("2023-01-02T13:15:45.123Z", "")
	require.NoError(t, err)

	// Rename the post directory so it no longer matches the id inside.
	renamed := filepath.Join(a.Dir(), "20230102_131545_999Z")
	require.NoError(t, os.Rename(p.Directory(), renamed))
	require.NoError(t, os.Rename(
		filepath.Join(renamed, p.LocalID()+".xml"),
		filepath.Join(renamed, "20230102_131545_999Z.xml")))

	_, err = Load(dir, "toots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestLoadRejectsDuplicateRemoteID(t *testing.T) {
	dir := t.TempDir()
	a, err := Create(dir, "toots")
	require.NoError(t, err)
	_, err = a.AddPost("2023-01-02T13:15:45.123Z", "mastodon.example_111")
	require.NoError(t, err)
	p2, err := a.AddPost("2023-01-02T13:15:45.124Z", "")
	require.NoError(t, err)

	// Hand-edit the second post's file to claim the first post's remote id.
	path := filepath.Join(p2.Directory(), p2.LocalID()+".xml")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := strings.Replace(string(raw), "<sensitive>",
		"<mastodonIds>mastodon.example_111</mastodonIds><sensitive>", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	_, err = Load(dir, "toots")
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestPausePersistenceBatchesWrites(t *testing.T) {
	dir := t.TempDir()
	a, err := Create(dir, "toots")
	require.NoError(t, err)
	p, err := a.AddPost("2023-01-02T13:15:45.123Z", "")
	require.NoError(t, err)
	path := filepath.Join(p.Directory(), p.LocalID()+".xml")

	p.PausePersistence()
	require.NoError(t, p.SetText("draft"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "draft", "paused setter must not write")

	require.NoError(t, p.ResumePersistence())
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "draft")
}

func TestAddMediaNumbersFilesFromOne(t *testing.T) {
	a, err := Create(t.TempDir(), "toots")
	require.NoError(t, err)
	p, err := a.AddPost("2023-01-02T13:15:45.123Z", "")
	require.NoError(t, err)

	require.NoError(t, p.AddMedia(MediaSource{
		URL:         "https://files.example/media/cat.jpeg?sig=abc",
		Body:        strings.NewReader("jpegbytes"),
		MediaType:   "image",
		AltText:     "a cat",
		FocalPointX: 0.5,
		FocalPointY: -0.25,
	}))
	require.NoError(t, p.AddMedia(MediaSource{
		URL:          "https://files.example/media/clip.mp4",
		Body:         strings.NewReader("mp4bytes"),
		MediaType:    "video",
		ThumbnailURL: "https://files.example/media/clip.png",
		Thumbnail:    strings.NewReader("pngbytes"),
	}))

	media := p.Media()
	require.Len(t, media, 2)

	assert.Equal(t, "1.jpeg", media[0].Filename)
	assert.Equal(t, "image/jpeg", media[0].MimeType)
	assert.Equal(t, "a cat", media[0].AltText)
	assert.Equal(t, 0.5, media[0].FocalPointX)
	assert.Equal(t, "", media[0].ThumbnailPath())

	assert.Equal(t, "2.mp4", media[1].Filename)
	assert.Equal(t, "video/mp4", media[1].MimeType)
	assert.Equal(t, "2_thumbnail.png", media[1].ThumbnailFilename)

	got, err := os.ReadFile(media[0].Path())
	require.NoError(t, err)
	assert.Equal(t, "jpegbytes", string(got))
	got, err = os.ReadFile(media[1].ThumbnailPath())
	require.NoError(t, err)
	assert.Equal(t, "pngbytes", string(got))

	// Mutating the returned copy must not touch the archive.
	media[0].AltText = "changed"
	assert.Equal(t, "a cat", p.Media()[0].AltText)
}

func TestLatestRemoteID(t *testing.T) {
	a, err := Create(t.TempDir(), "toots")
	require.NoError(t, err)
	p, err := a.AddPost("2023-01-02T13:15:45.123Z", "old.example_1")
	require.NoError(t, err)
	require.NoError(t, p.AddRemoteID("new.example_2"))
	require.NoError(t, p.AddRemoteID("New.Example_3"))

	assert.Equal(t, "New.Example_3", p.LatestRemoteID("new.example"))
	assert.Equal(t, "old.example_1", p.LatestRemoteID("old.example"))
	assert.Equal(t, "", p.LatestRemoteID("elsewhere.example"))
}
