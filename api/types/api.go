package types

// JobError is the error envelope returned by API handlers.
type JobError struct {
	Error string `json:"error"`
}

// RefreshCounts reports the outcome of one side of a refresh run.
type RefreshCounts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// RefreshSummary is the response body of the scheduled metrics refresh.
type RefreshSummary struct {
	Posts RefreshCounts `json:"posts"`
	KOLs  RefreshCounts `json:"kols"`
}

// Scrape request modes.
const (
	ScrapeModeAll    = "all"
	ScrapeModeSingle = "single"
)

// ScrapeRequest is the body of POST /campaigns/:id/scrape. Mode "all" scrapes
// every assigned KOL (optionally narrowed by KOLIDs); mode "single" fetches
// the explicitly listed tweet URLs.
type ScrapeRequest struct {
	Mode           string   `json:"mode"`
	KOLIDs         []string `json:"kolIds,omitempty"`
	TweetURLs      []string `json:"tweetUrls,omitempty"`
	AutoImport     bool     `json:"autoImport"`
	FilterKeywords []string `json:"filterKeywords,omitempty"`
}

// KOLScrapeResult reports per-KOL success or failure within a scrape run.
type KOLScrapeResult struct {
	KOL     string `json:"kol"`
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// AnnotatedTweet is a scraped tweet scored against the campaign keywords.
type AnnotatedTweet struct {
	ScrapedTweet
	MatchedKeywords []string `json:"matchedKeywords"`
	HasKeywordMatch bool     `json:"hasKeywordMatch"`
}

// ScrapeDebug surfaces provider configuration state to operators.
// ApifyKeyValid is nil when no Apify token is configured.
type ScrapeDebug struct {
	APIKeyConfigured bool   `json:"apiKeyConfigured"`
	APIKeySource     string `json:"apiKeySource"`
	ApifyKeyValid    *bool  `json:"apifyKeyValid,omitempty"`
}

// ScrapeResponse is the response body of the campaign scrape endpoint.
// Batch-level failures are embedded, never surfaced as non-2xx.
type ScrapeResponse struct {
	Success      bool              `json:"success"`
	Results      []KOLScrapeResult `json:"results"`
	Tweets       []AnnotatedTweet  `json:"tweets"`
	TotalScraped int               `json:"totalScraped"`
	Imported     int               `json:"imported"`
	ImportErrors []string          `json:"importErrors,omitempty"`
	Debug        ScrapeDebug       `json:"debug"`
}
