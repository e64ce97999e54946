// Package context stores named selections of a configuration directory and a
// region, in the manner of kubeconfig contexts.
//
// Contexts are kept in ~/.config/kubeship/contexts.yaml:
//
//	current-context: staging
//	contexts:
//	  - name: staging
//	    region: staging-uk
//	    configPath: /srv/manifests
//	  - name: prod
//	    region: prod-uk
//	    settings:
//	      output: json
//
// # Precedence
//
// The region is taken from, in order: --region, KUBESHIP_REGION, then the
// context selected by --context, KUBESHIP_CONTEXT or current-context. The
// configuration directory follows the same order with --config-path and
// KUBESHIP_CONFIG_PATH.
//
// Storage is safe for use by multiple goroutines of one process only.
package context
