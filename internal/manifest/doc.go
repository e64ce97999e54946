// Package manifest resolves layered service configuration into deployable
// manifests.
//
// A service is described by a ManifestSource (services/<name>/manifest.yml)
// and any number of ManifestOverrides layers (the environment file, then the
// region file). Build merges, in order,
//
//	global defaults → region defaults → service file → environment → region
//
// and then resolves the image and namespace, derives the implicit gateway,
// kafka and data handling blocks, builds every auxiliary container and
// validates the result. Errors are *ValidationError values carrying a Reason.
//
// BuildSimple is the cheap variant used for listing: it reads no template
// files and skips the full invariant check.
package manifest
