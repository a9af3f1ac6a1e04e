// Package locator resolves an episode page to a downloadable video URL.
//
// The episode page only points at a third-party host through an opaque
// identifier. Resolving it takes two hops:
//
//  1. the site's bootstrap script and the first script of the host's info
//     page define the variables the later payloads refer to;
//  2. for low quality the second info page script decodes to an anchor whose
//     href is the video; for high quality the last script decodes to an
//     intermediate page whose <source> tag holds the video.
//
// Payloads are reversed with pkg/jsdecode; nothing fetched is executed.
// Missing patterns and failed decodes are reported as resolution errors,
// transport problems as fetch errors.
package locator
