package model

// AssetStats summarizes the cached series of an asset, optionally against a benchmark.
// Pointer fields are omitted when there is not enough data to compute them.
type AssetStats struct {
	AssetName    string   `json:"assetName"`
	Benchmark    string   `json:"benchmark,omitempty"`
	Observations int      `json:"observations"`
	LastClose    *float64 `json:"lastClose,omitempty"`
	SMA          *float64 `json:"sma,omitempty"`
	SMAPeriod    int      `json:"smaPeriod"`
	RSI          *float64 `json:"rsi,omitempty"`
	RSIPeriod    int      `json:"rsiPeriod"`
	Correlation  *float64 `json:"correlation,omitempty"`
	Beta         *float64 `json:"beta,omitempty"`
	AlignedDays  int      `json:"alignedDays,omitempty"`
}
