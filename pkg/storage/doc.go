// Package storage decides where episodes land on disk and whether they are
// already there.
//
// File names come from NormalizeFileName: accents are folded away and any
// run of characters outside [A-Za-z0-9] becomes a single "-", so
// "Foo!!__Bar 2" is stored as "Foo-Bar-2.mp4". A file is complete once it
// reaches the minimum size threshold (20 MiB by default); anything smaller
// is treated as a partial attempt and overwritten.
//
//	store, err := storage.NewManager(dir, ".mp4", storage.DefaultMinFileSize)
//	path := store.PathFor(episode.Name)
//	if store.IsDownloaded(path) {
//		// skip
//	}
package storage
