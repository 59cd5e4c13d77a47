// Package checker follows the alarm stream of a running monitor and prints
// every alarm, reconnecting when the monitor goes away.
package checker
