// Package cache provides a time-based, size-limited store for analysis
// documents so repeated requests for the same set skip the scrape pipeline.
package cache
