// Package listing reads a series page into its episodes.
//
// Entries are the #archive .post blocks of the page. Each contributes the
// text of its first h3 as the display name and its first itemprop="url"
// link as the episode page. Episodes whose link points into a specials or
// OVA section get a -Specials or -OVA suffix so their file names do not
// collide with the regular episode of the same number. The page lists
// newest first; ResolveEpisodes returns them oldest first.
package listing
