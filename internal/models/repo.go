package models

import "time"

// Repository is a GitHub repository as returned by the search API. URL is its
// identity everywhere in the recommender.
type Repository struct {
	Name        string    `json:"name"         bson:"name"`
	Description string    `json:"description"  bson:"description"`
	URL         string    `json:"url"          bson:"url"`
	Stars       int       `json:"stars"        bson:"stars"`
	Language    string    `json:"language"     bson:"language"`
	Topics      []string  `json:"topics"       bson:"topics"`
	LastUpdated time.Time `json:"last_updated" bson:"last_updated"`
}

// SearchItem captures the minimal fields we care about from GitHub's
// /search/repositories response.
type SearchItem struct {
	Name            string   `json:"name"`
	Description     *string  `json:"description"`
	HTMLURL         string   `json:"html_url"`
	StargazersCount int      `json:"stargazers_count"`
	Language        *string  `json:"language"`
	Topics          []string `json:"topics"`
	UpdatedAt       string   `json:"updated_at"`
}

// SearchResult is the envelope of GitHub's repository search.
type SearchResult struct {
	TotalCount int          `json:"total_count"`
	Items      []SearchItem `json:"items"`
}
