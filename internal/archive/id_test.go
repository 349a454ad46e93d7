// ABOUTME: Tests for archive id derivation, parsing and remote id handling.
// ABOUTME: Covers UTC and offset instants, ordering and malformed input.
package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalID(t *testing.T) {
	tests := []struct {
		name string
		iso  string
		want string
	}{
		{"utc millis", "2023-01-02T13:15:45.123Z", "20230102_131545_123Z"},
		{"utc no fraction", "2023-06-11T14:25:09Z", "20230611_142509_000Z"},
		{"whole hour offset", "2023-01-02T13:15:45.123+02:00", "20230102_131545_123+02"},
		{"negative offset", "2023-01-02T13:15:45.500-05:00", "20230102_131545_500-05"},
		{"half hour offset", "2023-01-02T13:15:45+05:30", "20230102_131545_000+0530"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalID(tt.iso)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalIDRejectsMalformedInstant(t *testing.T) {
	_, err := LocalID("yesterday at noon")
	require.Error(t, err)
}

func TestTimeOfLocalIDRoundTrip(t *testing.T) {
	for _, iso := range []string{
		"2023-01-02T13:15:45.123Z",
		"2023-01-02T13:15:45.123+02:00",
		"2023-01-02T13:15:45+05:30",
	} {
		id, err := LocalID(iso)
		require.NoError(t, err)
		got, err := TimeOfLocalID(id)
		require.NoError(t, err)
		want, err := time.Parse(time.RFC3339Nano, iso)
		require.NoError(t, err)
		assert.True(t, got.Equal(want), "round trip of %s via %s gave %s", iso, id, got)
	}
}

func TestTimeOfLocalIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{
		"",
		"20230102131545123Z",
		"20230102_131545_12",
		"20230102_131545_123",
		"20230102_131545_123X",
		"20231402_131545_123Z",
	} {
		_, err := TimeOfLocalID(id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestLocalIDOrdering(t *testing.T) {
	earlier, err := LocalID("2023-01-02T13:15:45.123Z")
	require.NoError(t, err)
	later, err := LocalID("2023-01-02T13:15:45.124Z")
	require.NoError(t, err)
	assert.Less(t, earlier, later, "lexicographic order must follow time")
}

func TestIDBeforeAndAfter(t *testing.T) {
	id, err := LocalID("2023-06-11T14:25:09Z")
	require.NoError(t, err)

	before, err := IDBefore(id, "2023-06-12T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, before)

	after, err := IDAfter(id, "2023-06-12T00:00:00Z")
	require.NoError(t, err)
	assert.False(t, after)

	after, err = IDAfter(id, "2023-06-01T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, after)

	_, err = IDBefore(id, "not a date")
	assert.Error(t, err)
}

func TestRemoteIDSplit(t *testing.T) {
	rid := RemoteID("mastodon.example", "110551234567890")
	assert.Equal(t, "mastodon.example_110551234567890", rid)

	instance, id := SplitRemoteID(rid)
	assert.Equal(t, "mastodon.example", instance)
	assert.Equal(t, "110551234567890", id)
}
