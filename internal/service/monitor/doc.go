// Package monitor implements the diagram monitoring engine.
//
// One poll cycle fetches equipment status and measurement snapshots, diffs
// them against the previous cycle, reconciles the derived node fields,
// restyles the connections and raises alarms on spec-violation transitions.
// Cycles never overlap: a single-flight guard drops requests while one is
// running, and non-forced requests are rate limited.
package monitor
