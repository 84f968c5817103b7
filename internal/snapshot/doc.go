// Package snapshot captures the observed state of a workspace as a pinned
// manifest and replays captured manifests through the synchronization
// pipeline. Capture walks the workspace for git repositories, records every
// repository's HEAD commit as a fixed reference, and reads its URL from the
// origin remote. Restore feeds a captured manifest to the synchronization
// service so the workspace converges on the recorded commits.
package snapshot
