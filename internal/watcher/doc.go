// Package watcher re-runs the foreign package check when the pacman local
// database changes.
//
// pacman creates and removes one directory per package under
// <dbpath>/local on every install, upgrade and removal. The Watcher
// watches that directory with fsnotify, coalesces the burst of events a
// transaction produces into a single callback, and can additionally
// refresh the AUR catalog on a fixed interval.
//
// Example usage:
//
//	w, err := watcher.New("/var/lib/pacman", func(ctx context.Context) error {
//		return runCheck(ctx)
//	}, watcher.WithRefresh(6*time.Hour, syncCatalog))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := w.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
//
//	// Or detach into the background
//	if err := watcher.StartDaemon(pidFile, logFile, args); err != nil {
//		log.Fatal(err)
//	}
package watcher
