// Package ratelimit keeps the downloader polite towards the scraped site.
//
// SlidingWindow tracks request timestamps inside a moving window and blocks
// callers once the window is full. A limit of zero or less disables
// throttling.
//
//	limiter := ratelimit.PerMinute(60)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit
