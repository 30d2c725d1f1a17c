package analyzer

// --- JSON output structs ---

// ErrorResult is returned in JSON format when an analysis step fails.
type ErrorResult struct {
	Error string `json:"error"`
	TopN  int    `json:"topN,omitempty"` // omitted when 0
}

// SymbolStat is one ranked symbol in a bloat report (JSON).
type SymbolStat struct {
	Name           string  `json:"name"`           // original qualified name
	Path           string  `json:"path"`           // full path key in the hierarchy
	Category       string  `json:"category"`       // probable toolchain origin
	Size           int64   `json:"size"`           // aggregated size in bytes
	SizeFormatted  string  `json:"sizeFormatted"`  // e.g. "1.23 KB"
	OwnSize        int64   `json:"ownSize"`        // bytes attributed to the node itself
	Instantiations int64   `json:"instantiations"` // instantiation counter after variant merging
	Percentage     float64 `json:"percentage"`     // share of the whole binary
}

// CategoryStat sums the own sizes of all symbols classified into one category (JSON).
type CategoryStat struct {
	Category      string  `json:"category"`
	Size          int64   `json:"size"`
	SizeFormatted string  `json:"sizeFormatted"`
	Symbols       int     `json:"symbols"`
	Percentage    float64 `json:"percentage"`
}

// VariantGroupStat is a group of leaves sharing an instantiation-stripped name (JSON).
type VariantGroupStat struct {
	BaseName           string   `json:"baseName"`
	TotalSize          int64    `json:"totalSize"`
	TotalSizeFormatted string   `json:"totalSizeFormatted"`
	Members            int64    `json:"members"`
	Examples           []string `json:"examples"` // first few member names
}

// BuildSummary mirrors symtree.BuildStats for JSON output.
type BuildSummary struct {
	Rows       int `json:"rows"`
	Normalized int `json:"normalized"`
	Canonical  int `json:"canonical"`
	Inserted   int `json:"inserted"`
	Empty      int `json:"empty"`
	Skipped    int `json:"skipped"`
}

// BloatAnalysisResult is the overall result of a bloat analysis (JSON).
type BloatAnalysisResult struct {
	TotalSize          int64              `json:"totalSize"`
	TotalSizeFormatted string             `json:"totalSizeFormatted"`
	MatchedSize        int64              `json:"matchedSize"` // own bytes of symbols passing the filter
	Build              BuildSummary       `json:"build"`
	TopN               int                `json:"topN"`
	Symbols            []SymbolStat       `json:"symbols"`
	Categories         []CategoryStat     `json:"categories"`
	Variants           []VariantGroupStat `json:"variants"`
	Suggestions        []string           `json:"suggestions,omitempty"` // similar names when a search matched nothing
}

// FlameGraphNode is one node of the flame graph JSON.
// The shape matches what d3-flame-graph consumes.
type FlameGraphNode struct {
	Name           string            `json:"name"`                     // segment name
	Value          int64             `json:"value"`                    // aggregated size of the node
	Category       string            `json:"category,omitempty"`       // omitted on the root
	Instantiations int64             `json:"instantiations,omitempty"` // instantiation counter
	Children       []*FlameGraphNode `json:"children,omitempty"`
}

// GrowthStat describes how one symbol changed between two builds (JSON).
type GrowthStat struct {
	Path           string  `json:"path"`
	OldSize        int64   `json:"oldSize"`
	NewSize        int64   `json:"newSize"`
	Growth         int64   `json:"growth"`
	GrowthPercent  float64 `json:"growthPercent"`
	OldCount       int64   `json:"oldInstantiations"`
	NewCount       int64   `json:"newInstantiations"`
	CountGrowth    int64   `json:"instantiationGrowth"`
	CountGrowthPct float64 `json:"instantiationGrowthPercent"`
}

// ComparisonResult is the result of comparing two builds (JSON).
type ComparisonResult struct {
	OldTotal  int64        `json:"oldTotal"`
	NewTotal  int64        `json:"newTotal"`
	Threshold float64      `json:"threshold"`
	Growth    []GrowthStat `json:"growth"`
}
