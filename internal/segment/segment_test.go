// ABOUTME: Tests for posted-length metering, text splitting and substitutions.
// ABOUTME: Includes the link-weight cases that make naive rune counting wrong.
package segment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostedLength(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain text", "hello world", 11},
		{"trailing whitespace stripped", "hello world  \n\t", 11},
		{"empty", "", 0},
		{"only whitespace", "   \n", 0},
		{"multibyte runes count once", "héllo wörld", 11},
		{"short link still costs 23", "http://a.io", 23},
		{"long link still costs 23", "see https://example.com/a/very/long/path?with=query&and=more", 4 + 23},
		{"two links", "https://a.example.com/x and https://b.example.com/y", 23 + 5 + 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PostedLength(tt.text))
		})
	}
}

func TestSplitShortTextUntouched(t *testing.T) {
	segs, err := Split("short enough", 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"short enough"}, segs)
}

func TestSplitRejectsTinyLimit(t *testing.T) {
	_, err := Split("whatever text", 6)
	require.ErrorIs(t, err, ErrLimitTooSmall)
}

func TestSplitThreeSegments(t *testing.T) {
	segs, err := Split("aaaa bbbb cccc", 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa...", "...bbb...", "...b cccc"}, segs)
	for i, s := range segs {
		assert.LessOrEqual(t, PostedLength(s), 9, "segment %d", i)
	}
}

func TestSplitMarkersAndBudget(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "word%03d ", i)
	}
	limit := 100
	segs, err := Split(b.String(), limit)
	require.NoError(t, err)
	require.Greater(t, len(segs), 2)

	for i, s := range segs {
		assert.LessOrEqual(t, PostedLength(s), limit, "segment %d over budget", i)
		if i == 0 {
			assert.True(t, strings.HasSuffix(s, "..."))
			assert.False(t, strings.HasPrefix(s, "..."))
		} else if i == len(segs)-1 {
			assert.True(t, strings.HasPrefix(s, "..."))
			assert.False(t, strings.HasSuffix(s, "..."))
		} else {
			assert.True(t, strings.HasPrefix(s, "..."))
			assert.True(t, strings.HasSuffix(s, "..."))
		}
	}

	// Nothing lost: stripping markers and whitespace recovers every word.
	joined := strings.Join(segs, " ")
	joined = strings.ReplaceAll(joined, "...", " ")
	for i := 0; i < 120; i++ {
		assert.Contains(t, joined, fmt.Sprintf("word%03d", i))
	}
}

func TestSplitCutsOnWhitespace(t *testing.T) {
	segs, err := Split("alpha beta gamma delta epsilon zeta", 20)
	require.NoError(t, err)
	for i, s := range segs {
		trimmed := strings.TrimPrefix(strings.TrimSuffix(s, "..."), "...")
		for _, w := range strings.Fields(trimmed) {
			assert.Contains(t, "alpha beta gamma delta epsilon zeta", w,
				"segment %d split the word %q", i, w)
		}
	}
}

func TestSplitHardTruncatesUnbrokenRun(t *testing.T) {
	segs, err := Split(strings.Repeat("x", 30), 12)
	require.NoError(t, err)
	require.Greater(t, len(segs), 1)
	for i, s := range segs {
		assert.LessOrEqual(t, PostedLength(s), 12, "segment %d", i)
	}
	assert.Equal(t, 30, strings.Count(strings.Join(segs, ""), "x"))
}

func TestSplitKeepsLinkBudget(t *testing.T) {
	// A long URL is cheap once metered, so the splitter must pack more text
	// around it than a rune count would allow.
	text := "read this https://example.com/extremely/long/path/that/goes/on/and/on/for/a/while " +
		strings.Repeat("filler ", 30)
	limit := 60
	segs, err := Split(text, limit)
	require.NoError(t, err)
	for i, s := range segs {
		assert.LessOrEqual(t, PostedLength(s), limit, "segment %d over metered budget", i)
	}
	assert.Contains(t, strings.Join(segs, " "),
		"https://example.com/extremely/long/path/that/goes/on/and/on/for/a/while",
		"link stays intact in its segment")
}

func TestSplitLinkDenseTextOverMeteredLimit(t *testing.T) {
	// Eight short links meter at 8*23+7 = 191 although the text is only 95
	// runes, so the raw cut position lies past the end of the rune slice.
	text := strings.TrimSpace(strings.Repeat("http://a.io ", 8))
	limit := 100
	segs, err := Split(text, limit)
	require.NoError(t, err)
	require.Greater(t, len(segs), 1)
	for i, s := range segs {
		assert.LessOrEqual(t, PostedLength(s), limit, "segment %d over metered budget", i)
	}
	assert.Equal(t, 8, strings.Count(strings.Join(segs, " "), "http://a.io"),
		"every link survives the split intact")
}

func TestSubstituteMentions(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"@alice hi", "＠alice hi"},
		{"hi @alice", "hi ＠alice"},
		{"mail me a@b.example", "mail me a@b.example"},
		{"hi @", "hi @"},
		{"@alice and @bob", "＠alice and ＠bob"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubstituteMentions(tt.in), "input %q", tt.in)
	}
}

func TestSubstituteHashtags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"#golang rocks", "⋕golang rocks"},
		{"rocks #golang", "rocks ⋕golang"},
		{"issue#42", "issue#42"},
		{"trailing #", "trailing #"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubstituteHashtags(tt.in), "input %q", tt.in)
	}
}
