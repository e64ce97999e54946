// Package watcher detects edits to the configuration directory.
//
// A Detector turns fsnotify events into debounced Change values naming the
// service whose files changed, or a global change when config.yaml or a
// shared template was touched.
package watcher
