package github

import "time"

// ContentEntry is one item of a repository contents listing.
type ContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Type        string `json:"type"`
	Size        int    `json:"size"`
	DownloadURL string `json:"download_url"`
}

// Row is one line of a dataset CSV. Empty cells decode to nil.
type Row struct {
	Date     time.Time
	Open     *float64
	High     *float64
	Low      *float64
	Close    *float64
	AdjClose *float64
	Volume   *int64
}

// CommitResult describes a dataset written back to the repository.
type CommitResult struct {
	SHA  string `json:"sha"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putContentResponse struct {
	Content struct {
		Path    string `json:"path"`
		HTMLURL string `json:"html_url"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}
