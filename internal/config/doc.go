// Package config loads the global configuration shared by every service.
//
// Configuration lives in a single directory, selected with --config-path or
// $KUBESHIP_CONFIG_PATH and defaulting to the working directory:
//
//	config.yaml        global defaults, teams, regions and clusters
//	services/<name>/   per service manifest, environment and region overrides
//	templates/         shared config templates
//
// Only config.yaml is read here; the services tree is read by the filebacked
// package. Decoding is strict: unknown keys are errors.
//
// # Example
//
//	defaults:
//	  imagePrefix: quay.io/babylon
//	  chart: base
//	  replicaCount: 2
//	teams:
//	  - name: payments
//	    support: "#payments-support"
//	regions:
//	  - name: dev-uk
//	    environment: dev
//	    namespace: dev
//	    cluster: kube-dev
//	clusters:
//	  kube-dev:
//	    api: https://kube-dev.example.com
//	    regions: [dev-uk]
package config
