// Package scans persists pipeline results to scans.db: an assets table
// resolved or created on save, and gp_scans rows holding key metrics in
// columns plus the full result as a msgpack blob.
package scans

// Asset is a scanned asset. Rows are created from pipeline results the
// first time an asset is saved and reused afterwards.
type Asset struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Ticker          string   `json:"ticker,omitempty"`
	ISIN            string   `json:"isin,omitempty"`
	Country         string   `json:"country,omitempty"`
	Region          string   `json:"region"`
	SubRegion       string   `json:"sub_region,omitempty"`
	AssetType       string   `json:"asset_type"`
	AssetClass      string   `json:"asset_class"`
	Sector          string   `json:"sector"`
	EmergingMarket  bool     `json:"is_emerging_market"`
	DevelopedMarket bool     `json:"is_developed_market"`
	GlobalFund      bool     `json:"is_global_fund"`
	Exposures       []string `json:"exposures"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// ScanRecord is the column view of a persisted scan. The full pipeline
// result is served separately by the /full endpoint.
type ScanRecord struct {
	ID            int64  `json:"id"`
	AssetID       int64  `json:"asset_id"`
	RiskTolerance string `json:"risk_tolerance"`
	DaysLookback  int    `json:"days_lookback"`
	ScanDate      string `json:"scan_date"`

	NegativeProbability float64  `json:"negative_probability"`
	NeutralProbability  float64  `json:"neutral_probability"`
	PositiveProbability float64  `json:"positive_probability"`
	OverallDirection    string   `json:"overall_direction"`
	OverallMagnitude    float64  `json:"overall_magnitude"`
	Confidence          float64  `json:"confidence"`
	SignalCount         int      `json:"signal_count"`
	TopThemes           []string `json:"top_themes"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
