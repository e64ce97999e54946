// Package template renders the config files attached to a manifest.
//
// Templates use text/template syntax with the sprig function library. The
// render context is built from the resolved manifest (name, region,
// environment, namespace, image, version, env, team and, when present, kafka
// and gateway) and may be extended by the caller.
package template
