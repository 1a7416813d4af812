package model

// Kind discriminates the two listing categories the channels publish.
type Kind string

const (
	KindOffice    Kind = "office"
	KindWarehouse Kind = "warehouse"
)

// Shore is the normalized river side of a warehouse. Empty means the posting
// did not state one.
type Shore string

const (
	ShoreUnknown Shore = ""
	ShoreLeft    Shore = "left"
	ShoreRight   Shore = "right"
)

// Offer is one rentable unit extracted from a posting. A single posting can
// yield several offers, so Identity is not unique across offers.
type Offer struct {
	Kind       Kind    `json:"kind"`
	Identity   int     `json:"posting_id"`
	GroupName  string  `json:"group_name"`
	GroupSlug  string  `json:"group_slug"`
	SizeM2     float64 `json:"size_m2"`
	PriceTotal float64 `json:"price_total"`
	PricePerM2 float64 `json:"price_per_m2"`

	// DisplayText is the fully composed card body, built once at extraction
	// time. The calculator block is the only thing ever appended to it.
	DisplayText string `json:"display_text"`
	Link        string `json:"link"`

	// Office-only attributes.
	FloorLabel   string `json:"floor_label,omitempty"`
	BCClass      string `json:"bc_class,omitempty"`
	Metro        string `json:"metro,omitempty"`
	PriceFormula string `json:"price_formula,omitempty"`

	// Warehouse-only attributes.
	Address        string  `json:"address,omitempty"`
	Shore          Shore   `json:"shore,omitempty"`
	CeilingHeight  float64 `json:"ceiling_height,omitempty"`
	PowerRating    string  `json:"power_rating,omitempty"`
	WarehouseClass string  `json:"warehouse_class,omitempty"`
}

// Posting is one raw channel message: text plus rich-text span annotations.
type Posting struct {
	Channel string `json:"channel"`
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Spans   []Span `json:"spans,omitempty"`
}
