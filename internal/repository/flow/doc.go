// Package flow loads the catalog of diagram definitions saved by the editor.
//
// The catalog is a YAML file; the monitor only reads it.
package flow
