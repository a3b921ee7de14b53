// Package watch reloads the instance list when the filesystem changes.
//
// The root directory, each instance directory directly below it and the
// group file are watched with fsnotify. Inside an instance directory only
// the marker file matters; logs and saves written by a running instance
// are ignored. Changes are debounced so that copying an instance in
// produces one reload rather than hundreds.
package watch
