// Package notify delivers alarm events to every configured channel.
package notify
