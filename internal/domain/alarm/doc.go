// Package alarm contains the alarm event raised when a watched measurement
// enters a spec violation.
package alarm
