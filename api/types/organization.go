package types

type OrganizationType string

const (
	OrganizationTypeAgency OrganizationType = "agency"
	OrganizationTypeBrand  OrganizationType = "brand"
)

// Organization is a tenant. Credential fields are stored encrypted at rest
// (fieldcrypt "enc:v1:" values) and are only decrypted transiently into a
// credentials.Context for the duration of one pipeline invocation.
type Organization struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Type OrganizationType `json:"type"`

	// Encrypted-at-rest provider credentials. Never serialized.
	SocialDataAPIKey string `json:"-"`
	ApifyAPIKey      string `json:"-"`
	TwitterAPIKey    string `json:"-"`
	TwitterCookies   string `json:"-"`
	TwitterCSRFToken string `json:"-"`
}

// Campaign groups posts and KOL assignments under an organization. Keywords
// drive the scrape/import matching.
type Campaign struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organizationId"`
	Name           string   `json:"name"`
	Keywords       []string `json:"keywords"`
}
