// Package ui is the terminal dashboard of the flow monitor: a bubbletea model
// fed by the engine through the Program adapter.
package ui
