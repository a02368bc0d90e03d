package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalTweetID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"bare id", "1846158950324015105", "1846158950324015105"},
		{"twitter.com", "https://twitter.com/jack/status/20", "20"},
		{"x.com", "https://x.com/jack/status/20", "20"},
		{"www prefix", "https://www.twitter.com/jack/status/20", "20"},
		{"mobile prefix", "https://mobile.twitter.com/jack/status/20", "20"},
		{"m prefix", "https://m.twitter.com/jack/status/20", "20"},
		{"statuses path", "https://twitter.com/jack/statuses/20", "20"},
		{"query params", "https://x.com/jack/status/20?s=46&t=abc", "20"},
		{"fragment", "https://x.com/jack/status/20#reply", "20"},
		{"photo suffix", "https://x.com/jack/status/20/photo/1", "20"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalTweetID(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanonicalTweetIDSameIDAcrossHosts(t *testing.T) {
	variants := []string{
		"https://twitter.com/someone/status/1846158950324015105",
		"https://x.com/someone/status/1846158950324015105",
		"https://www.x.com/someone/status/1846158950324015105?s=20",
		"1846158950324015105",
	}

	want, err := CanonicalTweetID(variants[0])
	require.NoError(t, err)
	for _, v := range variants[1:] {
		got, err := CanonicalTweetID(v)
		require.NoError(t, err)
		assert.Equal(t, want, got, "variant %s", v)
	}
}

func TestCanonicalTweetIDRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not a url",
		"https://example.com/jack/status/20",
		"https://x.com/jack",
		"https://x.com/jack/status/abc",
		"https://x.com/jack/likes",
	}

	for _, input := range cases {
		_, err := CanonicalTweetID(input)
		require.Error(t, err, "input %q", input)
		assert.True(t, errors.Is(err, ErrMalformedIdentifier), "input %q", input)
	}
}

func TestTweetURL(t *testing.T) {
	assert.Equal(t, "https://x.com/jack/status/20", TweetURL("jack", "20"))
	assert.Equal(t, "https://x.com/i/status/20", TweetURL("", "20"))
}
