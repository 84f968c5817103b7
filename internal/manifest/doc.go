// Package manifest defines the workspace manifest model and the resolver that
// turns manifest entries, group selections, and run-level overrides into an
// ordered list of repository targets.
package manifest
