// ABOUTME: Analysis adapter boundary and the metrics document it produces.
// ABOUTME: The gateway treats results as opaque JSON; the types here belong to the adapter.

package analysis

import (
	"context"
	"encoding/json"
)

// Analyzer produces an investment analysis document for a trading-card set.
// The result is an opaque JSON document from the gateway's point of view.
// The useAI flag is advisory; implementations may ignore it.
type Analyzer interface {
	Analyze(ctx context.Context, setName string, useAI bool) (json.RawMessage, error)
}

// ChaseCard is one high-value single card in a set.
type ChaseCard struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// TopChase summarizes the most expensive single cards in a set.
type TopChase struct {
	TopCards []ChaseCard `json:"top_cards"`
	SumTop   float64     `json:"sum_top"`
	AvgTop   *float64    `json:"avg_top"`
	Source   string      `json:"source,omitempty"`
}

// SoldStats summarizes recent completed-sale activity for a product.
type SoldStats struct {
	CountSold int      `json:"count_sold"`
	AvgPrice  *float64 `json:"avg_price"`
}

// Metrics is the analysis document. Pointer fields are null in the JSON when
// the underlying source had no data, matching the distinction between
// "unknown" and zero.
type Metrics struct {
	SetName       string    `json:"set_name"`
	BoxPrice      *float64  `json:"box_price"`
	SoldCount30d  int       `json:"sold_count_30d"`
	DailySales    float64   `json:"daily_sales"`
	WeeklySales   float64   `json:"weekly_sales"`
	ListingsCount int       `json:"listings_count"`
	DaysToClear   *float64  `json:"days_to_clear"`
	TopChase      TopChase  `json:"top_chase"`
	EbaySales     SoldStats `json:"ebay_sales"`
	Summary       string    `json:"summary"`
}
