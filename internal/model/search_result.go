package model

// SearchResult is a single web search hit. It lives only for the duration
// of the request that fetched it.
type SearchResult struct {
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	Link          string `json:"link"`
	DisplaySource string `json:"display_source"`
}
