package models

// ParseMode selects how a fetched body is turned into a record.
type ParseMode string

const (
	ParseModeTable ParseMode = "table" // two-column HTML table rows
	ParseModeJSON  ParseMode = "json"  // flat JSON object
)

// FetchKind selects which fetcher of a source serves a target.
type FetchKind string

const (
	FetchBrowser FetchKind = "browser"
	FetchHTTP    FetchKind = "http"
)

// IPFallback selects the IP extraction used when the parsed record has no ip.
type IPFallback string

const (
	IPFallbackNone   IPFallback = "none"
	IPFallbackBare   IPFallback = "bare"   // first dotted quad in the body
	IPFallbackMarker IPFallback = "marker" // client-ipv4 data-ip attribute, then bare
)
