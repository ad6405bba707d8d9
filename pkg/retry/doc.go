// Package retry runs operations with exponential backoff.
//
// Backoff can be chosen per error classification from pkg/errors so that a
// rate-limited transfer waits longer than one that hit a dropped connection.
// Every wait observes the caller's context.
package retry
