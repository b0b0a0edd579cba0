package model

import "time"

// DocType names a class of ticker documents kept in the primary repository.
type DocType string

const (
	DocNews     DocType = "news"
	DocResearch DocType = "research"
)

// Valid reports whether t is a known document type.
func (t DocType) Valid() bool {
	return t == DocNews || t == DocResearch
}

// MaxDocItems caps the items returned per document type.
const MaxDocItems = 10

// DocItem is one news article or analyst action.
type DocItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher"`
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
}

// AssetDocs is the latest news and research for an asset.
type AssetDocs struct {
	AssetName string    `json:"asset"`
	Ticker    string    `json:"ticker"`
	News      []DocItem `json:"news"`
	Research  []DocItem `json:"research"`
}

// DocSnapshot is the file body written to {type}/{ticker}/{date}.json.
type DocSnapshot struct {
	AsOf  time.Time `json:"asOf"`
	Items []DocItem `json:"items"`
}

// DocCommit describes a document snapshot written to the repository.
type DocCommit struct {
	AssetName string  `json:"asset"`
	Type      DocType `json:"type"`
	Path      string  `json:"path"`
	SHA       string  `json:"sha"`
	URL       string  `json:"url"`
}
