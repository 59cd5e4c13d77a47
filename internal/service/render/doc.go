// Package render forwards derived diagram views to every configured output.
package render
