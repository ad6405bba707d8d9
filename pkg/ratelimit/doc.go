// Package ratelimit limits how fast artwork parts are requested from the
// image host. Limiters are safe for concurrent use and their Wait methods
// return early when the context is cancelled.
package ratelimit
