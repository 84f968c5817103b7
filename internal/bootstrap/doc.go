// Package bootstrap initializes a workspace. It validates the manifest
// source, populates the manifest mirror beneath the state directory (or
// records a local manifest file), persists the initial workspace record, and
// hands the workspace to the synchronization pipeline for its first run.
package bootstrap
