// ABOUTME: Package documentation for the analysis adapter.
// ABOUTME: Describes the scraper pipeline and the opaque document boundary.

// Package analysis produces investment metrics documents for trading-card
// sets. The Analyzer interface is the boundary the gateway dispatches
// through; everything behind it is adapter detail.
//
// The Scraper implementation gathers a sealed box price, completed-sale
// counts, and current listing supply from public marketplace pages, then
// derives sales velocity and a days-to-clear estimate. Sources fail
// independently and the document is assembled from whatever was reachable.
// Cached decorates any Analyzer with a TTL cache so hot sets skip the
// scrape pipeline.
package analysis
