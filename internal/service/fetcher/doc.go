// Package fetcher reads equipment status and measurement snapshots from the
// plant data API, resolving the data-source scope when a flow has none.
package fetcher
