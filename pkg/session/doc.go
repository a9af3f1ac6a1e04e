// Package session holds the HTTP state shared by one download run.
//
// A Session owns a cookie jar scoped with the public suffix list and a fixed
// header set, so cookies handed out while fetching the listing are sent
// again when the episode is resolved and downloaded. Page fetches are
// rate-limited, bounded by a per-request timeout and retried on transport
// errors, 5xx and 429. Any other non-2xx status fails at once with a typed
// fetch error carrying the status code.
package session
