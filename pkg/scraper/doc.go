// Package scraper orchestrates a download run.
//
// A Scraper ties the listing resolver, the video locator, the downloader and
// the episode store together:
//
//   - DownloadSeries lists a series page and processes its episodes oldest
//     first;
//   - DownloadEpisodeURL processes a single episode page.
//
// For every episode the destination file is derived from the normalized
// episode name. A file that already meets the size threshold is skipped
// without any network traffic unless overwriting was requested. Otherwise
// the video identifier is extracted once, then the preferred quality is
// resolved and downloaded. When that download exhausts its attempts without
// producing a complete file, the opposite quality is tried once. Any other
// failure ends the episode. A failed episode never aborts the rest of the
// series.
//
// Usage:
//
//	s, err := scraper.NewFromConfig(cfg, logger.GetLogger())
//	if err != nil {
//	    return err
//	}
//	report, err := s.DownloadSeries(ctx, "http://www.chia-anime.me/episode/hunter-x-hunter-2011/")
package scraper
