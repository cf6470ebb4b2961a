// Package checkpoint records run progress at app granularity.
//
// The file lives in the output directory and lists the apps whose per-app
// file is complete. A resumed run reloads those apps from disk instead of
// scraping them again. The checkpoint is removed once the combined file has
// been written.
package checkpoint
