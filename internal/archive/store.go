// ABOUTME: Archive handle over a directory of post directories, with in-memory indexes.
// ABOUTME: Create refuses to reuse an existing directory; Load refuses a missing one.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrArchiveExists is returned by Create when the archive directory is
	// already present.
	ErrArchiveExists = errors.New("archive already exists")
	// ErrNotPresent is returned by Load when the archive directory is missing.
	ErrNotPresent = errors.New("archive not present")
	// ErrDuplicateID is returned when two posts claim the same id.
	ErrDuplicateID = errors.New("duplicate post id")
)

var validName = regexp.MustCompile(`^\w+$`)

// ValidName reports whether name is usable as an archive name: letters,
// digits and underscores only, so it maps cleanly to a directory.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Archive is a named collection of posts rooted at one directory. It keeps
// two indexes: by archive id (ordered) and by remote id.
type Archive struct {
	name string
	dir  string

	byLocalID  map[string]*Post
	byRemoteID map[string]*Post
}

func newArchive(dataDir, name string) *Archive {
	return &Archive{
		name:       name,
		dir:        filepath.Join(dataDir, name),
		byLocalID:  make(map[string]*Post),
		byRemoteID: make(map[string]*Post),
	}
}

// Create makes a new, empty archive. It fails with ErrArchiveExists when the
// directory is already present: archives are written once and never merged.
func Create(dataDir, name string) (*Archive, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid archive name %q: use letters, digits and underscores", name)
	}
	a := newArchive(dataDir, name)
	if _, err := os.Stat(a.dir); err == nil {
		return nil, fmt.Errorf("archive %q at %s: %w", name, a.dir, ErrArchiveExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat archive directory: %w", err)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return a, nil
}

// Load opens an existing archive and reads every post directory into memory.
// It fails with ErrNotPresent when the directory does not exist.
func Load(dataDir, name string) (*Archive, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid archive name %q: use letters, digits and underscores", name)
	}
	a := newArchive(dataDir, name)
	info, err := os.Stat(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("archive %q at %s: %w", name, a.dir, ErrNotPresent)
	}
	if err != nil {
		return nil, fmt.Errorf("stat archive directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive path %s is not a directory", a.dir)
	}
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("read archive directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := loadPost(a, entry.Name()); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Archive) Name() string { return a.name }

// Dir returns the archive's directory on disk.
func (a *Archive) Dir() string { return a.dir }

// Len returns the number of posts in the archive.
func (a *Archive) Len() int { return len(a.byLocalID) }

// AddPost creates a post keyed by the creation instant, optionally
// registering one known remote id. ErrDuplicateID when a post for the same
// instant already exists.
func (a *Archive) AddPost(createdAt, remoteID string) (*Post, error) {
	id, err := LocalID(createdAt)
	if err != nil {
		return nil, err
	}
	return createPost(a, id, remoteID)
}

// PostByLocalID returns the post with the given archive id, or nil.
func (a *Archive) PostByLocalID(id string) *Post {
	return a.byLocalID[id]
}

// PostByRemoteID returns the post recorded under the given remote id, or
// nil. Remote ids compare case-insensitively because instance addresses do.
func (a *Archive) PostByRemoteID(rid string) *Post {
	return a.byRemoteID[strings.ToLower(rid)]
}

// Posts returns every post ordered by archive id, oldest first.
func (a *Archive) Posts() []*Post {
	ids := make([]string, 0, len(a.byLocalID))
	for id := range a.byLocalID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Post, len(ids))
	for i, id := range ids {
		out[i] = a.byLocalID[id]
	}
	return out
}

func (a *Archive) registerLocalID(p *Post) error {
	if _, taken := a.byLocalID[p.localID]; taken {
		return fmt.Errorf("archive id %s: %w", p.localID, ErrDuplicateID)
	}
	a.byLocalID[p.localID] = p
	return nil
}

func (a *Archive) registerRemoteID(rid string, p *Post) error {
	if existing, taken := a.byRemoteID[strings.ToLower(rid)]; taken && existing != p {
		return fmt.Errorf("remote id %s already belongs to post %s: %w", rid, existing.localID, ErrDuplicateID)
	}
	a.byRemoteID[strings.ToLower(rid)] = p
	return nil
}
