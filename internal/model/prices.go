package model

// PriceWindow is an ad-hoc slice of an asset's closing prices between two
// calendar days, both inclusive. Cached is true when it was served from the
// stored series rather than downloaded.
type PriceWindow struct {
	AssetName string       `json:"asset"`
	Ticker    string       `json:"ticker"`
	Source    Source       `json:"source"`
	Cached    bool         `json:"cached"`
	Range     DateRange    `json:"range"`
	Prices    []PricePoint `json:"prices"`
}
