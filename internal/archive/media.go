// ABOUTME: Media attachment metadata and on-disk naming within a post directory.
// ABOUTME: Maps file extensions to the MIME types re-upload requires.
package archive

import (
	"path/filepath"
	"strings"
)

// MediaFile describes one attachment stored alongside a post. Values are
// returned by copy from Post.Media, so mutating a MediaFile never alters
// the archive.
type MediaFile struct {
	Filename          string  `xml:"filename"`
	MimeType          string  `xml:"mimeType"`
	MediaType         string  `xml:"mastodonMediaType"`
	ThumbnailFilename string  `xml:"thumbnailFilename,omitempty"`
	AltText           string  `xml:"altText,omitempty"`
	FocalPointX       float64 `xml:"focalPointX"`
	FocalPointY       float64 `xml:"focalPointY"`

	directory string `xml:"-"`
}

// Path returns the absolute location of the attachment bytes.
func (m MediaFile) Path() string {
	return filepath.Join(m.directory, m.Filename)
}

// ThumbnailPath returns the absolute location of the attachment's thumbnail,
// or "" when no thumbnail was archived.
func (m MediaFile) ThumbnailPath() string {
	if m.ThumbnailFilename == "" {
		return ""
	}
	return filepath.Join(m.directory, m.ThumbnailFilename)
}

var mimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
	"avif": "image/avif",
	"mp4":  "video/mp4",
	"m4v":  "video/mp4",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"mp3":  "audio/mpeg",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"wav":  "audio/wave",
	"flac": "audio/flac",
	"opus": "audio/opus",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",
	"3gp":  "video/3gpp",
}

// mimeTypeFor maps a bare file extension to a MIME type, falling back to
// application/octet-stream for anything unrecognised.
func mimeTypeFor(ext string) string {
	if t, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return t
	}
	return "application/octet-stream"
}
