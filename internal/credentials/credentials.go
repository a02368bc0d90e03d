// Package credentials holds the per-invocation provider credential context.
//
// A Context is built from one organization's decrypted credential fields and
// is passed explicitly into every fetch call. Nothing in this package is
// process-global: two tenants' refresh runs can overlap without touching each
// other's keys.
package credentials

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/pkg/fieldcrypt"
)

// Source labels where the active credentials came from, surfaced in the
// scrape endpoint's debug block.
type Source string

const (
	SourceNone         Source = "none"
	SourceOrganization Source = "organization"
)

// Context is the credential set for a single pipeline invocation.
type Context struct {
	OrgID  string
	Source Source

	SocialDataAPIKey string
	ApifyAPIKey      string
	TwitterAPIKey    string
	TwitterCookies   string
	TwitterCSRFToken string
}

// FromOrganization decrypts an organization's stored credential fields into a
// fresh Context. The decrypted values live only as long as the invocation
// that requested them.
func FromOrganization(org *types.Organization, enc *fieldcrypt.Encryptor) (*Context, error) {
	ctx := &Context{OrgID: org.ID, Source: SourceOrganization}

	fields := []struct {
		name   string
		stored string
		dst    *string
	}{
		{"socialDataApiKey", org.SocialDataAPIKey, &ctx.SocialDataAPIKey},
		{"apifyApiKey", org.ApifyAPIKey, &ctx.ApifyAPIKey},
		{"twitterApiKey", org.TwitterAPIKey, &ctx.TwitterAPIKey},
		{"twitterCookies", org.TwitterCookies, &ctx.TwitterCookies},
		{"twitterCsrfToken", org.TwitterCSRFToken, &ctx.TwitterCSRFToken},
	}
	for _, f := range fields {
		if f.stored == "" {
			continue
		}
		if !fieldcrypt.IsEncrypted(f.stored) {
			logrus.Warnf("Credential %s for org %s is stored unencrypted", f.name, org.ID)
		}
		plain, err := enc.Decrypt(f.stored)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s for org %s: %w", f.name, org.ID, err)
		}
		*f.dst = plain
	}

	return ctx, nil
}

// HasAnyProvider reports whether at least the primary or secondary provider
// has usable credentials. The tertiary fallback is unauthenticated and does
// not count: it cannot serve profile fetches.
func (c *Context) HasAnyProvider() bool {
	if c == nil {
		return false
	}
	return c.SocialDataAPIKey != "" || c.ApifyAPIKey != ""
}

// Clear zeroes the decrypted material. Callers defer this at the end of an
// invocation, including error paths.
func (c *Context) Clear() {
	if c == nil {
		return
	}
	c.SocialDataAPIKey = ""
	c.ApifyAPIKey = ""
	c.TwitterAPIKey = ""
	c.TwitterCookies = ""
	c.TwitterCSRFToken = ""
	c.Source = SourceNone
}
