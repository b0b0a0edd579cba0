package model

// Source identifies one of the two upstream price providers.
type Source string

const (
	// SourcePrimary is the bulk data repository (CSV datasets per ticker).
	SourcePrimary Source = "primary"
	// SourceSecondary is the live quote API.
	SourceSecondary Source = "secondary"
)

// Sources lists the upstreams in the order they are attempted.
var Sources = []Source{SourcePrimary, SourceSecondary}

// ReindexMode selects how a series is normalized against its baseline.
type ReindexMode string

const (
	// ReindexMultiplicative scales closes so the baseline equals 100.
	ReindexMultiplicative ReindexMode = "multiplicative"
	// ReindexAdditive shifts closes so the baseline equals 100. Used for yields and
	// volatility indices where percentage moves are not meaningful.
	ReindexAdditive ReindexMode = "additive"
)

// Asset is a tracked instrument or economic indicator.
//
// Name is the stable identity used as the cache key. Ticker is the symbol used for
// upstream calls; SecondaryTicker overrides it for the quote API when the two
// providers disagree on the symbol (e.g. "VIX" vs "^VIX").
type Asset struct {
	Name            string      `json:"name" yaml:"name"`
	Ticker          string      `json:"ticker" yaml:"ticker"`
	SecondaryTicker string      `json:"secondaryTicker,omitempty" yaml:"secondaryTicker"`
	Kind            string      `json:"kind,omitempty" yaml:"kind"`
	Mode            ReindexMode `json:"mode" yaml:"mode"`
}

// TickerFor returns the symbol to request from the given source.
func (a Asset) TickerFor(src Source) string {
	if src == SourceSecondary && a.SecondaryTicker != "" {
		return a.SecondaryTicker
	}
	return a.Ticker
}

// ReindexMode returns the configured mode, defaulting to multiplicative.
func (a Asset) ReindexMode() ReindexMode {
	if a.Mode == ReindexAdditive {
		return ReindexAdditive
	}
	return ReindexMultiplicative
}
