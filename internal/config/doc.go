// Package config defines the fluxtenancy configuration model.
//
// A [Config] names the GitHub owner, the target cluster, the Flux settings
// shared by every tenant, and the tenant list itself. It is loaded from
// fluxtenancy.yaml with [Load], completed with [Config.ApplyDefaults] and
// checked with [Config.Validate] before any remote call is made.
package config
