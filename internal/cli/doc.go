// Package cli holds the pieces shared by the kubeship commands: common
// flags, stored context defaults, output formatter selection and loading of
// the configuration directory.
package cli
