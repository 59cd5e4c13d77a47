// Package flow contains the core domain types of the process diagram monitor.
//
// It defines the snapshots read from the plant backend each poll cycle
// (equipment status and measurements), the diagram definition produced by
// the editor (nodes with watch-lists and the edges between them) and the
// derived View the engine hands to renderers.
package flow
