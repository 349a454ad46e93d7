// ABOUTME: Identity scheme for archived posts and their remote copies.
// ABOUTME: Derives sortable archive ids from creation instants and joins/splits remote ids.
package archive

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const remoteIDSeparator = "_"

// LocalID derives the archive-internal identifier for a post from its
// original creation instant (ISO 8601, offset required). The id is rendered
// with fixed field widths so that lexicographic order equals chronological
// order, e.g. "20230611_142509_041Z".
func LocalID(iso string) (string, error) {
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return "", fmt.Errorf("parse creation instant %q: %w", iso, err)
	}
	return formatLocalID(t), nil
}

func formatLocalID(t time.Time) string {
	millis := t.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("%s_%03d%s", t.Format("20060102_150405"), millis, zoneSuffix(t))
}

// zoneSuffix renders the UTC offset as "Z" for UTC, otherwise ±HH with
// minutes appended only when non-zero (matching the ids written by earlier
// versions of the archive format).
func zoneSuffix(t time.Time) string {
	_, offset := t.Zone()
	if offset == 0 {
		return "Z"
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours := offset / 3600
	minutes := (offset % 3600) / 60
	if minutes == 0 {
		return fmt.Sprintf("%s%02d", sign, hours)
	}
	return fmt.Sprintf("%s%02d%02d", sign, hours, minutes)
}

// TimeOfLocalID parses an archive id back into the instant it encodes.
func TimeOfLocalID(id string) (time.Time, error) {
	// yyyymmdd_hhmmss_mmm plus at least a one-byte zone suffix
	if len(id) < 20 || id[8] != '_' || id[15] != '_' {
		return time.Time{}, fmt.Errorf("malformed archive id %q", id)
	}
	base, err := time.Parse("20060102150405", id[:8]+id[9:15])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed archive id %q: %w", id, err)
	}
	millis, err := strconv.Atoi(id[16:19])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed archive id %q: %w", id, err)
	}
	loc, err := parseZoneSuffix(id[19:])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed archive id %q: %w", id, err)
	}
	return time.Date(base.Year(), base.Month(), base.Day(),
		base.Hour(), base.Minute(), base.Second(), millis*int(time.Millisecond), loc), nil
}

func parseZoneSuffix(s string) (*time.Location, error) {
	if s == "Z" {
		return time.UTC, nil
	}
	if (len(s) != 3 && len(s) != 5) || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("bad zone suffix %q", s)
	}
	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return nil, fmt.Errorf("bad zone suffix %q", s)
	}
	minutes := 0
	if len(s) == 5 {
		if minutes, err = strconv.Atoi(s[3:5]); err != nil {
			return nil, fmt.Errorf("bad zone suffix %q", s)
		}
	}
	offset := hours*3600 + minutes*60
	if s[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(s, offset), nil
}

// IDBefore reports whether the instant encoded in the archive id precedes
// the given ISO 8601 instant.
func IDBefore(id, iso string) (bool, error) {
	idTime, err := TimeOfLocalID(id)
	if err != nil {
		return false, err
	}
	mark, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return false, fmt.Errorf("parse instant %q: %w", iso, err)
	}
	return idTime.Before(mark), nil
}

// IDAfter reports whether the instant encoded in the archive id follows the
// given ISO 8601 instant.
func IDAfter(id, iso string) (bool, error) {
	idTime, err := TimeOfLocalID(id)
	if err != nil {
		return false, err
	}
	mark, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return false, fmt.Errorf("parse instant %q: %w", iso, err)
	}
	return idTime.After(mark), nil
}

// RemoteID joins an instance address and that instance's status id into the
// composite id used to index remote copies of a post.
func RemoteID(instance, id string) string {
	return instance + remoteIDSeparator + id
}

// SplitRemoteID decomposes a remote id into its instance address and the
// instance-local status id. An instance address containing the separator
// would decompose wrongly; hostnames never contain underscores in practice.
func SplitRemoteID(rid string) (instance, id string) {
	instance, id, _ = strings.Cut(rid, remoteIDSeparator)
	return instance, id
}
