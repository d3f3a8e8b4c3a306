package models

// Page is what a fetcher returns for one navigation.
type Page struct {
	URL       string `json:"url"`
	HTML      string `json:"html"`
	UserAgent string `json:"user_agent"`
}
