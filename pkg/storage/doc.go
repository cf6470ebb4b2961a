// Package storage writes the JSON output files of a scrape run.
//
// Each logical name maps to <output dir>/<name>.json. Writes go to a
// temporary file in the same directory, are synced, and are renamed over the
// target, so a reader never sees a half written file and a crash leaves the
// previous version in place.
//
// Usage:
//
//	manager, err := storage.NewManager("out")
//	if err != nil {
//	    return err
//	}
//	err = manager.WriteJSON("com.example.app", reviewsFile)
package storage
