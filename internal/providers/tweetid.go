package providers

import (
	"fmt"
	"net/url"
	"strings"
)

// tweetHosts are the hostnames accepted by CanonicalTweetID, after stripping
// a www/m/mobile prefix.
var tweetHosts = map[string]bool{
	"twitter.com": true,
	"x.com":       true,
}

// CanonicalTweetID normalizes a tweet URL or bare id to the canonical numeric
// id. Accepted forms:
//
//	1234567890123456789
//	https://twitter.com/<handle>/status/<id>
//	https://x.com/<handle>/statuses/<id>?s=20#anchor
//	https://mobile.twitter.com/<handle>/status/<id>/photo/1
//
// Anything else returns ErrMalformedIdentifier.
func CanonicalTweetID(idOrURL string) (string, error) {
	s := strings.TrimSpace(idOrURL)
	if s == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrMalformedIdentifier)
	}

	if isDigits(s) {
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedIdentifier, idOrURL)
	}

	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "mobile."} {
		if strings.HasPrefix(host, prefix) {
			host = strings.TrimPrefix(host, prefix)
			break
		}
	}
	if !tweetHosts[host] {
		return "", fmt.Errorf("%w: unsupported host %q", ErrMalformedIdentifier, u.Hostname())
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if (seg == "status" || seg == "statuses") && i+1 < len(segments) && isDigits(segments[i+1]) {
			return segments[i+1], nil
		}
	}

	return "", fmt.Errorf("%w: no status id in %q", ErrMalformedIdentifier, idOrURL)
}

// TweetURL builds the canonical x.com URL for a tweet.
func TweetURL(handle, tweetID string) string {
	if handle == "" {
		handle = "i"
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", handle, tweetID)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
