// ABOUTME: Posted-length accounting and whitespace-aware splitting of long post text.
// ABOUTME: Links count as a fixed weight, the way Mastodon meters them server-side.
package segment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LinkWeight is the fixed character cost Mastodon charges for any URL,
// regardless of its literal length.
const LinkWeight = 23

const ellipsis = "..."

// ErrLimitTooSmall is returned when a character limit leaves no room for
// text between the leading and trailing continuation markers.
var ErrLimitTooSmall = errors.New("character limit too small to split text")

var linkPattern = regexp.MustCompile(`https?://[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-z]{2,6}\b[-a-zA-Z0-9@:%_+.~#?&/=]*`)

// PostedLength returns the number of characters the server will meter for
// text: trailing whitespace stripped, codepoints counted, and every link
// counted as LinkWeight.
func PostedLength(text string) int {
	s := strings.TrimRightFunc(text, unicode.IsSpace)
	n := 0
	last := 0
	for _, m := range linkPattern.FindAllStringIndex(s, -1) {
		n += utf8.RuneCountInString(s[last:m[0]]) + LinkWeight
		last = m[1]
	}
	return n + utf8.RuneCountInString(s[last:])
}

func containsLink(s string) bool {
	return linkPattern.MatchString(s)
}

// Split breaks text into segments that each fit within limit, joined for the
// reader by "..." continuation markers: the first segment ends with one,
// interior segments carry one at both ends, and the last starts with one.
// Cuts land on whitespace where possible. Text already within limit comes
// back as a single unmarked segment.
func Split(text string, limit int) ([]string, error) {
	ellipsisLen := PostedLength(ellipsis)
	if limit < 2*ellipsisLen+1 {
		return nil, fmt.Errorf("limit %d: %w", limit, ErrLimitTooSmall)
	}

	remaining := strings.TrimRightFunc(text, unicode.IsSpace)
	if PostedLength(remaining) <= limit {
		return []string{remaining}, nil
	}

	var segments []string
	for PostedLength(remaining) > 0 {
		// Whatever is left fits in a final segment with its leading marker.
		if PostedLength(remaining) <= limit-ellipsisLen {
			segments = append(segments, ellipsis+remaining)
			break
		}

		segLimit := limit - ellipsisLen
		if len(segments) > 0 {
			segLimit -= ellipsisLen
		}

		// Link-dense text can meter over the limit with fewer runes than
		// segLimit, so the cut is clamped; the link pass below shrinks the
		// candidate back under budget.
		runes := []rune(remaining)
		end := segLimit
		if end > len(runes) {
			end = len(runes)
		}
		candidate := string(runes[:end])
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			// Mid-word: snap back to the last whitespace, or hard-truncate
			// when the prefix has none.
			if i := lastSpace(runes[:end]); i > 0 {
				end = i
				candidate = string(runes[:end])
			}
		}

		if containsLink(candidate) {
			var err error
			candidate, end, err = fitLinkSegment(runes, candidate, end, segLimit, limit)
			if err != nil {
				return nil, err
			}
		}

		seg := candidate + ellipsis
		if len(segments) > 0 {
			seg = ellipsis + seg
		}
		segments = append(segments, seg)
		remaining = strings.TrimLeftFunc(string(runes[end:]), unicode.IsSpace)
	}
	return segments, nil
}

// fitLinkSegment re-balances a candidate segment whose links make its
// metered length diverge from its rune count: grow word by word while under
// budget, then shrink word by word (or rune by rune when no whitespace is
// left) until it fits.
func fitLinkSegment(runes []rune, candidate string, end, segLimit, limit int) (string, int, error) {
	length := PostedLength(candidate)

	for length < segLimit && end < len(runes) {
		if i := firstSpace(runes[end+1:]); i >= 0 {
			end = end + 1 + i
		} else {
			end = len(runes)
		}
		candidate = string(runes[:end])
		length = PostedLength(candidate)
	}

	for length > segLimit {
		cr := []rune(candidate)
		if i := lastSpace(cr); i > 0 {
			end = i
			candidate = string(runes[:end])
		} else {
			for end = len(cr); length > segLimit && end > 0; {
				end--
				candidate = string(runes[:end])
				length = PostedLength(candidate)
			}
			if end == 0 {
				return "", 0, fmt.Errorf("cannot fit segment within limit %d", limit)
			}
			break
		}
		length = PostedLength(candidate)
	}
	return candidate, end, nil
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return -1
}

func firstSpace(r []rune) int {
	for i, c := range r {
		if unicode.IsSpace(c) {
			return i
		}
	}
	return -1
}
